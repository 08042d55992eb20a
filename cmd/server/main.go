package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"examportal/config"
	"examportal/internal/api/handler"
	"examportal/internal/api/router"
	"examportal/internal/proctor"
	"examportal/internal/repository"
	"examportal/internal/service"
	"examportal/pkg/database"
	"examportal/pkg/jwt"
	applogger "examportal/pkg/logger"
	"examportal/pkg/redis"
)

// 管理员引导账号，可通过环境变量覆盖
const (
	defaultAdminName     = "系统管理员"
	defaultAdminEmail    = "admin@exam-portal.local"
	defaultAdminPassword = "admin123456"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单功能将不可用", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 依赖注入: Repository → Service → Proctor → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, rdb, logger)

	// 监考状态机的强制提交回调
	autoSubmit := func(ctx context.Context, assessmentID, studentID string, tabSwitched, violation bool) error {
		_, err := svc.Submission.AutoSubmit(ctx, assessmentID, studentID, tabSwitched, violation)
		return err
	}
	proctorMgr := proctor.NewManager(cfg.Proctor, nil, autoSubmit, logger)

	h := handler.NewHandler(svc, proctorMgr)

	// 6.1 管理员引导账号
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.User.EnsureAdmin(bootCtx, adminName(), adminEmail(), adminPassword()); err != nil {
		logger.Fatal("管理员账号初始化失败", zap.Error(err))
	}
	bootCancel()

	// 6.2 监考 Tick 兜底循环
	proctorCtx, proctorCancel := context.WithCancel(context.Background())
	go proctorMgr.Run(proctorCtx)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	proctorCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}

func adminName() string {
	if v := os.Getenv("EXAM_ADMIN_NAME"); v != "" {
		return v
	}
	return defaultAdminName
}

func adminEmail() string {
	if v := os.Getenv("EXAM_ADMIN_EMAIL"); v != "" {
		return v
	}
	return defaultAdminEmail
}

func adminPassword() string {
	if v := os.Getenv("EXAM_ADMIN_PASSWORD"); v != "" {
		return v
	}
	return defaultAdminPassword
}
