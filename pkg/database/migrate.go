package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 将内嵌的 SQL 迁移应用到当前库
// 迁移文件随二进制发布，启动时对齐到最新版本，幂等可重入
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("读取内嵌迁移失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("构建 postgres 迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("组装迁移实例失败: %w", err)
	}

	before, _, verr := m.Version()
	fresh := errors.Is(verr, migrate.ErrNilVersion)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("数据库结构已是最新", zap.Uint("version", before))
			return nil
		}
		return fmt.Errorf("应用迁移失败: %w", err)
	}

	after, dirty, _ := m.Version()
	if dirty {
		// dirty 说明某次迁移中途失败，需要人工介入修复后重启
		logger.Warn("迁移版本为 dirty，请人工核查后重试", zap.Uint("version", after))
		return nil
	}
	if fresh {
		logger.Info("全新数据库初始化完成", zap.Uint("version", after))
	} else {
		logger.Info("数据库迁移完成",
			zap.Uint("from", before),
			zap.Uint("to", after),
		)
	}
	return nil
}
