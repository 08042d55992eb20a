package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"examportal/config"
	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/repository"
	"examportal/pkg/jwt"
)

// ── 测试辅助 ──

func newTestConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Proctor: config.ProctorConfig{
			ResizeThresholdPercent: 90,
			FullscreenRetryBudget:  3,
			ViolationGraceDelay:    3 * time.Second,
			TickInterval:           time.Second,
		},
	}
}

func newTestRepo() (*repository.Repository, *mockUserRepo, *mockStudentRepo, *mockAssessmentRepo, *mockSubmissionRepo) {
	userRepo := newMockUserRepo()
	studentRepo := newMockStudentRepo()
	assessmentRepo := newMockAssessmentRepo()
	submissionRepo := newMockSubmissionRepo()
	repo := &repository.Repository{
		User:       userRepo,
		Student:    studentRepo,
		Assessment: assessmentRepo,
		Submission: submissionRepo,
	}
	return repo, userRepo, studentRepo, assessmentRepo, submissionRepo
}

func setupTestAuthService() (AuthService, *mockUserRepo, *mockStudentRepo) {
	cfg := newTestConfig()
	repo, userRepo, studentRepo, _, _ := newTestRepo()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, repo, jwtMgr, nil, zap.NewNop())
	return svc, userRepo, studentRepo
}

func createTestTeacher(userRepo *mockUserRepo, id, email, password string, isSuper bool) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	teacher := &model.User{
		UserID:         id,
		Name:           "测试教师",
		Email:          email,
		PasswordHash:   string(hash),
		Role:           model.RoleTeacher,
		IsSuperTeacher: isSuper,
	}
	userRepo.users[teacher.UserID] = teacher
	return teacher
}

func createTestStudent(studentRepo *mockStudentRepo, id, email, password, teacherID string) *model.Student {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	student := &model.Student{
		StudentID:    id,
		Name:         "测试学生",
		Email:        email,
		PasswordHash: string(hash),
		CreatedBy:    teacherID,
	}
	studentRepo.students[student.StudentID] = student
	return student
}

// ── 登录测试 ──

func TestLogin_TeacherSuccess(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "teacher@test.com", "password123", false)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "teacher@test.com",
		Password: "password123",
		Role:     "teacher",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken 不应为空")
	}
	if result.User.Role != "teacher" {
		t.Errorf("期望 Role=teacher，实际=%s", result.User.Role)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
}

func TestLogin_EmailCaseInsensitive(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "Teacher@Test.com", "password123", false)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "teacher@test.com",
		Password: "password123",
		Role:     "teacher",
	})

	if err != nil {
		t.Fatalf("邮箱大小写不同应仍可登录: %v", err)
	}
	if result.User.ID != "teacher-1" {
		t.Errorf("期望匹配 teacher-1，实际=%s", result.User.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "teacher@test.com", "password123", false)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "teacher@test.com",
		Password: "wrong_password",
		Role:     "teacher",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_RoleMismatch(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "teacher@test.com", "password123", false)

	// 教师邮箱以 admin 身份登录应失败，不跨角色匹配
	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "teacher@test.com",
		Password: "password123",
		Role:     "admin",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_StudentSuccess(t *testing.T) {
	svc, _, studentRepo := setupTestAuthService()
	createTestStudent(studentRepo, "student-1", "student@test.com", "password123", "teacher-1")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "student@test.com",
		Password: "password123",
		Role:     "student",
	})

	if err != nil {
		t.Fatalf("学生登录应成功: %v", err)
	}
	if result.User.Role != "student" {
		t.Errorf("期望 Role=student，实际=%s", result.User.Role)
	}
	if result.User.CreatedBy != "teacher-1" {
		t.Errorf("期望 CreatedBy=teacher-1，实际=%s", result.User.CreatedBy)
	}
}

func TestLogin_StudentNotInUsersTable(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "teacher@test.com", "password123", false)

	// 以学生身份用教师邮箱登录应失败
	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "teacher@test.com",
		Password: "password123",
		Role:     "student",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@test.com",
		Password: "password123",
		Role:     "teacher",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── 当前用户测试 ──

func TestCurrentUser_Teacher(t *testing.T) {
	svc, userRepo, _ := setupTestAuthService()
	createTestTeacher(userRepo, "teacher-1", "teacher@test.com", "password123", true)

	user, err := svc.CurrentUser(context.Background(), &jwt.Claims{UserID: "teacher-1", Role: "teacher"})
	if err != nil {
		t.Fatalf("CurrentUser 应成功: %v", err)
	}
	if !user.IsSuperTeacher {
		t.Error("期望 IsSuperTeacher=true")
	}
}

func TestCurrentUser_NotFound(t *testing.T) {
	svc, _, _ := setupTestAuthService()

	_, err := svc.CurrentUser(context.Background(), &jwt.Claims{UserID: "ghost", Role: "teacher"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
