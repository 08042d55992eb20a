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

// ── 学生管理业务错误 ──

var (
	ErrStudentNotFound = errors.New("学生不存在")
	ErrNotStudentOwner = errors.New("只能操作自己名下的学生")
)

// StudentService 学生管理业务接口
//
// 教师只能查看/删除自己名下的学生；管理员不受归属限制。
// 新建学生的归属教师恒为调用者本人。
type StudentService interface {
	CreateStudent(ctx context.Context, req *dto.CreateStudentRequest, teacherID string) (*model.Student, error)
	GetStudent(ctx context.Context, id string, callerID, callerRole string) (*model.Student, error)
	ListStudents(ctx context.Context, callerID, callerRole string) ([]model.Student, error)
	DeleteStudent(ctx context.Context, id string, callerID, callerRole string) error
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

// ────────────────────── CreateStudent ──────────────────────

func (s *studentService) CreateStudent(ctx context.Context, req *dto.CreateStudentRequest, teacherID string) (*model.Student, error) {
	// 邮箱在学生表与用户表中均不可重复
	if _, err := s.repo.Student.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, err := s.repo.User.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	student := &model.Student{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedBy:    teacherID,
	}

	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("学生已创建",
		zap.String("student_id", student.StudentID),
		zap.String("teacher_id", teacherID))
	return student, nil
}

// ────────────────────── GetStudent / ListStudents ──────────────────────

func (s *studentService) GetStudent(ctx context.Context, id string, callerID, callerRole string) (*model.Student, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	if callerRole == model.RoleTeacher && student.CreatedBy != callerID {
		return nil, ErrNotStudentOwner
	}
	return student, nil
}

func (s *studentService) ListStudents(ctx context.Context, callerID, callerRole string) ([]model.Student, error) {
	if callerRole == model.RoleAdmin {
		return s.repo.Student.List(ctx)
	}
	return s.repo.Student.ListByTeacher(ctx, callerID)
}

// ────────────────────── DeleteStudent ──────────────────────

// DeleteStudent 删除学生并级联清理其全部提交（不触碰其他学生的数据）
func (s *studentService) DeleteStudent(ctx context.Context, id string, callerID, callerRole string) error {
	if _, err := s.GetStudent(ctx, id, callerID, callerRole); err != nil {
		return err
	}

	return s.repo.Transaction(func(tx *repository.Repository) error {
		if err := tx.Submission.DeleteByStudent(ctx, id); err != nil {
			return err
		}
		if err := tx.Student.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info("学生已删除", zap.String("student_id", id))
		return nil
	})
}
