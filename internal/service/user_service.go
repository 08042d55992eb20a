package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/repository"
)

// ── 教师管理业务错误 ──

var (
	ErrEmailExists        = errors.New("邮箱已被占用")
	ErrTeacherNotFound    = errors.New("教师不存在")
	ErrSuperTeacherExists = errors.New("超级教师已存在，全系统至多一名")
	ErrReassignSameTarget = errors.New("转移目标不能与来源相同")
	ErrNotTeacher         = errors.New("目标用户不是教师")
)

// UserService 教师管理业务接口（仅管理员可调用，路由层限定）
type UserService interface {
	CreateTeacher(ctx context.Context, req *dto.CreateTeacherRequest) (*model.User, error)
	GetTeacher(ctx context.Context, id string) (*model.User, error)
	ListTeachers(ctx context.Context) ([]model.User, error)
	DeleteTeacher(ctx context.Context, id string, newTeacherID string) error
	ToggleSuperTeacher(ctx context.Context, id string) (*model.User, error)
	ReassignStudents(ctx context.Context, req *dto.ReassignStudentsRequest) (int64, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateTeacher ──────────────────────

func (s *userService) CreateTeacher(ctx context.Context, req *dto.CreateTeacherRequest) (*model.User, error) {
	// 检查邮箱唯一性（users 与 students 两表均不可重复，避免登录歧义）
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.Student.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 超级教师全系统至多一名
	if req.IsSuperTeacher {
		if _, err := s.repo.User.GetSuperTeacher(ctx); err == nil {
			return nil, ErrSuperTeacherExists
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	teacher := &model.User{
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   string(hash),
		Role:           model.RoleTeacher,
		Department:     req.Department,
		IsSuperTeacher: req.IsSuperTeacher,
	}

	if err := s.repo.User.Create(ctx, teacher); err != nil {
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("教师已创建",
		zap.String("teacher_id", teacher.UserID),
		zap.Bool("is_super", teacher.IsSuperTeacher))
	return teacher, nil
}

// ────────────────────── GetTeacher / ListTeachers ──────────────────────

func (s *userService) GetTeacher(ctx context.Context, id string) (*model.User, error) {
	teacher, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}
	if teacher.Role != model.RoleTeacher {
		return nil, ErrTeacherNotFound
	}
	return teacher, nil
}

func (s *userService) ListTeachers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.User.List(ctx)
	if err != nil {
		s.logger.Error("查询教师列表失败", zap.Error(err))
		return nil, err
	}
	teachers := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.Role == model.RoleTeacher {
			teachers = append(teachers, u)
		}
	}
	return teachers, nil
}

// ────────────────────── DeleteTeacher ──────────────────────
//
// newTeacherID 非空时先把名下学生整体转移给目标教师；
// 为空时级联删除名下学生（含其全部提交）。
// 教师创建的考核连同提交一并删除。整个过程在单事务内完成。

func (s *userService) DeleteTeacher(ctx context.Context, id string, newTeacherID string) error {
	teacher, err := s.GetTeacher(ctx, id)
	if err != nil {
		return err
	}

	if newTeacherID != "" {
		if newTeacherID == id {
			return ErrReassignSameTarget
		}
		if _, err := s.GetTeacher(ctx, newTeacherID); err != nil {
			return err
		}
	}

	return s.repo.Transaction(func(tx *repository.Repository) error {
		// 1. 学生去向：转移或级联删除
		if newTeacherID != "" {
			if _, err := tx.Student.ReassignOwner(ctx, id, newTeacherID); err != nil {
				return err
			}
		} else {
			students, err := tx.Student.ListByTeacher(ctx, id)
			if err != nil {
				return err
			}
			for _, st := range students {
				if err := tx.Submission.DeleteByStudent(ctx, st.StudentID); err != nil {
					return err
				}
				if err := tx.Student.Delete(ctx, st.StudentID); err != nil {
					return err
				}
			}
		}

		// 2. 删除教师创建的考核及其提交
		assessments, err := tx.Assessment.ListByCreator(ctx, id)
		if err != nil {
			return err
		}
		for _, a := range assessments {
			if err := tx.Submission.DeleteByAssessment(ctx, a.AssessmentID); err != nil {
				return err
			}
			if err := tx.Assessment.Delete(ctx, a.AssessmentID); err != nil {
				return err
			}
		}

		// 3. 删除教师本人
		if err := tx.User.Delete(ctx, teacher.UserID); err != nil {
			return err
		}

		s.logger.Info("教师已删除",
			zap.String("teacher_id", id),
			zap.String("reassigned_to", newTeacherID))
		return nil
	})
}

// ────────────────────── ToggleSuperTeacher ──────────────────────

func (s *userService) ToggleSuperTeacher(ctx context.Context, id string) (*model.User, error) {
	teacher, err := s.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}

	if !teacher.IsSuperTeacher {
		// 授予前确认没有其他超级教师
		existing, err := s.repo.User.GetSuperTeacher(ctx)
		if err == nil && existing.UserID != id {
			return nil, ErrSuperTeacherExists
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	teacher.IsSuperTeacher = !teacher.IsSuperTeacher
	if err := s.repo.User.Update(ctx, teacher); err != nil {
		s.logger.Error("更新超级教师标记失败", zap.Error(err))
		return nil, err
	}
	return teacher, nil
}

// ────────────────────── ReassignStudents ──────────────────────

func (s *userService) ReassignStudents(ctx context.Context, req *dto.ReassignStudentsRequest) (int64, error) {
	if req.FromTeacherID == req.ToTeacherID {
		return 0, ErrReassignSameTarget
	}
	if _, err := s.GetTeacher(ctx, req.FromTeacherID); err != nil {
		return 0, err
	}
	if _, err := s.GetTeacher(ctx, req.ToTeacherID); err != nil {
		return 0, err
	}

	moved, err := s.repo.Student.ReassignOwner(ctx, req.FromTeacherID, req.ToTeacherID)
	if err != nil {
		s.logger.Error("批量转移学生失败", zap.Error(err))
		return 0, err
	}

	s.logger.Info("学生已批量转移",
		zap.String("from", req.FromTeacherID),
		zap.String("to", req.ToTeacherID),
		zap.Int64("count", moved))
	return moved, nil
}

// ────────────────────── EnsureAdmin ──────────────────────

// EnsureAdmin 启动引导：管理员账号不存在时创建
// 密码在运行时做 bcrypt 哈希，不落明文
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		return err
	}

	s.logger.Info("管理员账号已初始化", zap.String("email", email))
	return nil
}
