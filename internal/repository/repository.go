package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User       UserRepository
	Student    StudentRepository
	Assessment AssessmentRepository
	Submission SubmissionRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:       NewUserRepo(db),
		Student:    NewStudentRepo(db),
		Assessment: NewAssessmentRepo(db),
		Submission: NewSubmissionRepo(db),
		db:         db,
	}
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误则整体回滚
// 用于级联删除等需要跨集合原子性的操作
func (r *Repository) Transaction(fn func(txRepo *Repository) error) error {
	if r.db == nil {
		// 测试场景下注入的 mock 聚合没有底层连接，直接透传执行
		return fn(r)
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
