package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"examportal/config"
	"examportal/internal/dto"
	"examportal/internal/repository"
	"examportal/pkg/jwt"
	"examportal/pkg/redis"
)

// ── 认证模块业务错误 ──

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
)

// AuthService 认证业务接口
//
// 登录按角色分流：admin/teacher 查 users 表并校验角色一致，
// student 查 students 表。同一邮箱绝不跨角色匹配。
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *jwt.Claims) error
	CurrentUser(ctx context.Context, claims *jwt.Claims) (*dto.UserResponse, error)
}

type authService struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	rdb    *redis.Client
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:    cfg,
		repo:   repo,
		jwtMgr: jwtMgr,
		rdb:    rdb,
		logger: logger,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	var identity dto.UserResponse

	switch req.Role {
	case "student":
		// 1a. 学生登录：查 students 表（邮箱不区分大小写）
		student, err := s.repo.Student.GetByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidCredentials
			}
			s.logger.Error("查询学生失败", zap.Error(err))
			return nil, err
		}
		if bcrypt.CompareHashAndPassword([]byte(student.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
		identity = dto.UserResponse{
			ID:        student.StudentID,
			Name:      student.Name,
			Email:     student.Email,
			Role:      "student",
			CreatedBy: student.CreatedBy,
		}

	default:
		// 1b. 管理员/教师登录：查 users 表并要求角色与请求一致
		user, err := s.repo.User.GetByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidCredentials
			}
			s.logger.Error("查询用户失败", zap.Error(err))
			return nil, err
		}
		if user.Role != req.Role {
			return nil, ErrInvalidCredentials
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
		identity = dto.UserResponse{
			ID:             user.UserID,
			Name:           user.Name,
			Email:          user.Email,
			Role:           user.Role,
			Department:     user.Department,
			IsSuperTeacher: user.IsSuperTeacher,
		}
	}

	// 2. 生成 Token 对
	accessToken, err := s.jwtMgr.GenerateAccessToken(identity.ID, identity.Role)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(identity.ID, identity.Role, req.RememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.Auth.AccessTokenTTL.Seconds()),
		User:         identity,
	}, nil
}

// Logout 将当前 Token 的 JTI 加入黑名单直至其自然过期
// Redis 不可用时降级为无状态登出（Token 到期自动失效）
func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.rdb == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Error("写入 Token 黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// CurrentUser 按 Token 身份加载当前用户资料
func (s *authService) CurrentUser(ctx context.Context, claims *jwt.Claims) (*dto.UserResponse, error) {
	if claims.Role == "student" {
		student, err := s.repo.Student.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		return &dto.UserResponse{
			ID:        student.StudentID,
			Name:      student.Name,
			Email:     student.Email,
			Role:      "student",
			CreatedBy: student.CreatedBy,
		}, nil
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &dto.UserResponse{
		ID:             user.UserID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		Department:     user.Department,
		IsSuperTeacher: user.IsSuperTeacher,
	}, nil
}
