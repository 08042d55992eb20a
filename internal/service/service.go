package service

import (
	"go.uber.org/zap"

	"examportal/config"
	"examportal/internal/repository"
	"examportal/pkg/jwt"
	"examportal/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Student    StudentService
	Assessment AssessmentService
	Submission SubmissionService
	Export     ExportService
}

// NewService 创建 Service 聚合
// rdb 允许为 nil：Redis 不可用时登出黑名单降级为空操作
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:       NewUserService(repo, logger),
		Student:    NewStudentService(repo, logger),
		Assessment: NewAssessmentService(repo, logger),
		Submission: NewSubmissionService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}
