package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"examportal/internal/dto"
	"examportal/internal/model"
)

func setupTestUserService() (UserService, *mockUserRepo, *mockStudentRepo, *mockAssessmentRepo, *mockSubmissionRepo) {
	repo, userRepo, studentRepo, assessmentRepo, submissionRepo := newTestRepo()
	svc := NewUserService(repo, zap.NewNop())
	return svc, userRepo, studentRepo, assessmentRepo, submissionRepo
}

// ── 创建教师 ──

func TestCreateTeacher_Success(t *testing.T) {
	svc, _, _, _, _ := setupTestUserService()

	teacher, err := svc.CreateTeacher(context.Background(), &dto.CreateTeacherRequest{
		Name:     "王老师",
		Email:    "wang@test.com",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("CreateTeacher 应成功: %v", err)
	}
	if teacher.Role != model.RoleTeacher {
		t.Errorf("期望 Role=teacher，实际=%s", teacher.Role)
	}
	if teacher.PasswordHash == "password123" {
		t.Error("密码不应明文存储")
	}
}

func TestCreateTeacher_DuplicateEmail(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)

	_, err := svc.CreateTeacher(context.Background(), &dto.CreateTeacherRequest{
		Name:     "李老师",
		Email:    "wang@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

func TestCreateTeacher_EmailTakenByStudent(t *testing.T) {
	svc, _, studentRepo, _, _ := setupTestUserService()
	createTestStudent(studentRepo, "student-1", "shared@test.com", "password123", "teacher-1")

	_, err := svc.CreateTeacher(context.Background(), &dto.CreateTeacherRequest{
		Name:     "李老师",
		Email:    "shared@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("学生已占用的邮箱应拒绝，实际: %v", err)
	}
}

func TestCreateTeacher_SecondSuperRejected(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "super@test.com", "password123", true)

	_, err := svc.CreateTeacher(context.Background(), &dto.CreateTeacherRequest{
		Name:           "李老师",
		Email:          "li@test.com",
		Password:       "password123",
		IsSuperTeacher: true,
	})

	if !errors.Is(err, ErrSuperTeacherExists) {
		t.Errorf("期望 ErrSuperTeacherExists，实际: %v", err)
	}
}

// ── 超级教师切换 ──

func TestToggleSuperTeacher_Grant(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)

	teacher, err := svc.ToggleSuperTeacher(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("授予超级教师应成功: %v", err)
	}
	if !teacher.IsSuperTeacher {
		t.Error("期望 IsSuperTeacher=true")
	}
}

func TestToggleSuperTeacher_GrantBlockedByExisting(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "super@test.com", "password123", true)
	createTestTeacher(userRepo, "teacher-2", "wang@test.com", "password123", false)

	_, err := svc.ToggleSuperTeacher(context.Background(), "teacher-2")
	if !errors.Is(err, ErrSuperTeacherExists) {
		t.Errorf("已有超级教师时授予应被拒绝，实际: %v", err)
	}
}

func TestToggleSuperTeacher_Revoke(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "super@test.com", "password123", true)

	teacher, err := svc.ToggleSuperTeacher(context.Background(), "teacher-1")
	if err != nil {
		t.Fatalf("撤销超级教师应成功: %v", err)
	}
	if teacher.IsSuperTeacher {
		t.Error("期望 IsSuperTeacher=false")
	}
}

// ── 删除教师 ──

func TestDeleteTeacher_CascadeStudentsAndAssessments(t *testing.T) {
	svc, userRepo, studentRepo, assessmentRepo, submissionRepo := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)
	createTestTeacher(userRepo, "teacher-2", "li@test.com", "password123", false)
	createTestStudent(studentRepo, "student-1", "s1@test.com", "pw123456", "teacher-1")
	createTestStudent(studentRepo, "student-2", "s2@test.com", "pw123456", "teacher-2")

	assessmentRepo.assessments["assessment-1"] = &model.Assessment{
		AssessmentID: "assessment-1", Title: "期中", CreatedBy: "teacher-1",
	}
	submissionRepo.submissions["submission-1"] = &model.Submission{
		SubmissionID: "submission-1", AssessmentID: "assessment-1", StudentID: "student-1",
	}

	if err := svc.DeleteTeacher(context.Background(), "teacher-1", ""); err != nil {
		t.Fatalf("DeleteTeacher 应成功: %v", err)
	}

	if _, ok := userRepo.users["teacher-1"]; ok {
		t.Error("教师应已删除")
	}
	if _, ok := studentRepo.students["student-1"]; ok {
		t.Error("名下学生应级联删除")
	}
	if _, ok := studentRepo.students["student-2"]; !ok {
		t.Error("其他教师的学生不应被删除")
	}
	if _, ok := assessmentRepo.assessments["assessment-1"]; ok {
		t.Error("教师创建的考核应级联删除")
	}
	if _, ok := submissionRepo.submissions["submission-1"]; ok {
		t.Error("考核的提交应级联删除")
	}
}

func TestDeleteTeacher_ReassignStudents(t *testing.T) {
	svc, userRepo, studentRepo, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)
	createTestTeacher(userRepo, "teacher-2", "li@test.com", "password123", false)
	createTestStudent(studentRepo, "student-1", "s1@test.com", "pw123456", "teacher-1")

	if err := svc.DeleteTeacher(context.Background(), "teacher-1", "teacher-2"); err != nil {
		t.Fatalf("带转移的删除应成功: %v", err)
	}

	st := studentRepo.students["student-1"]
	if st == nil {
		t.Fatal("转移后学生不应被删除")
	}
	if st.CreatedBy != "teacher-2" {
		t.Errorf("期望归属 teacher-2，实际=%s", st.CreatedBy)
	}
}

func TestDeleteTeacher_ReassignToSelf(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)

	err := svc.DeleteTeacher(context.Background(), "teacher-1", "teacher-1")
	if !errors.Is(err, ErrReassignSameTarget) {
		t.Errorf("期望 ErrReassignSameTarget，实际: %v", err)
	}
}

// ── 批量转移 ──

func TestReassignStudents_Success(t *testing.T) {
	svc, userRepo, studentRepo, _, _ := setupTestUserService()
	createTestTeacher(userRepo, "teacher-1", "wang@test.com", "password123", false)
	createTestTeacher(userRepo, "teacher-2", "li@test.com", "password123", false)
	createTestStudent(studentRepo, "student-1", "s1@test.com", "pw123456", "teacher-1")
	createTestStudent(studentRepo, "student-2", "s2@test.com", "pw123456", "teacher-1")

	moved, err := svc.ReassignStudents(context.Background(), &dto.ReassignStudentsRequest{
		FromTeacherID: "teacher-1",
		ToTeacherID:   "teacher-2",
	})

	if err != nil {
		t.Fatalf("批量转移应成功: %v", err)
	}
	if moved != 2 {
		t.Errorf("期望转移 2 名学生，实际=%d", moved)
	}
}

// ── 管理员引导 ──

func TestEnsureAdmin_CreatesOnce(t *testing.T) {
	svc, userRepo, _, _, _ := setupTestUserService()

	if err := svc.EnsureAdmin(context.Background(), "管理员", "admin@test.com", "admin123456"); err != nil {
		t.Fatalf("EnsureAdmin 应成功: %v", err)
	}

	admin, err := userRepo.GetByEmail(context.Background(), "admin@test.com")
	if err != nil {
		t.Fatalf("管理员应已创建: %v", err)
	}
	if admin.Role != model.RoleAdmin {
		t.Errorf("期望 Role=admin，实际=%s", admin.Role)
	}

	// 再次调用不应重复创建
	if err := svc.EnsureAdmin(context.Background(), "管理员", "admin@test.com", "other-password"); err != nil {
		t.Fatalf("重复 EnsureAdmin 应为空操作: %v", err)
	}
}
