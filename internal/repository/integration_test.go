//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"examportal/internal/model"
	"examportal/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=examportal password=examportal_password dbname=examportal_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	// 自动迁移测试表结构
	err = testDB.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Assessment{},
		&model.Question{},
		&model.Submission{},
		&model.Answer{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "AutoMigrate 失败: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	os.Exit(code)
}

// setupTestData 创建基础测试数据并返回清理函数
func setupTestData(t *testing.T) (teacher *model.User, student *model.Student, cleanup func()) {
	t.Helper()
	ctx := context.Background()

	teacher = &model.User{
		Name:         "测试教师",
		Email:        fmt.Sprintf("teacher%d@test.com", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		Role:         model.RoleTeacher,
	}
	if err := testDB.WithContext(ctx).Create(teacher).Error; err != nil {
		t.Fatalf("创建教师失败: %v", err)
	}

	student = &model.Student{
		Name:         "测试学生",
		Email:        fmt.Sprintf("student%d@test.com", time.Now().UnixNano()),
		PasswordHash: "$2a$10$placeholder",
		CreatedBy:    teacher.UserID,
	}
	if err := testDB.WithContext(ctx).Create(student).Error; err != nil {
		t.Fatalf("创建学生失败: %v", err)
	}

	cleanup = func() {
		testDB.Where("student_id = ?", student.StudentID).Delete(&model.Student{})
		testDB.Where("user_id = ?", teacher.UserID).Delete(&model.User{})
	}
	return
}

// createTestAssessment 建一份两题考核（选择 + 简答）并返回清理函数
func createTestAssessment(t *testing.T, repo *repository.Repository, teacherID string) (*model.Assessment, func()) {
	t.Helper()
	ctx := context.Background()

	assessment := &model.Assessment{
		Title:     fmt.Sprintf("测试考核-%d", time.Now().UnixNano()),
		CreatedBy: teacherID,
		StartDate: "2026-01-01",
		StartTime: "08:00",
		DueDate:   "2026-12-31",
		DueTime:   "18:00",
		Questions: []model.Question{
			{
				Position:      1,
				Text:          "2+2 等于几？",
				Type:          model.QuestionTypeMultipleChoice,
				Marks:         5,
				Options:       []string{"3", "4", "5", "6"},
				CorrectAnswer: "4",
			},
			{
				Position: 2,
				Text:     "简述归并排序。",
				Type:     model.QuestionTypeText,
				Marks:    10,
				Options:  []string{},
			},
		},
	}
	if err := repo.Assessment.Create(ctx, assessment); err != nil {
		t.Fatalf("创建考核失败: %v", err)
	}

	cleanup := func() {
		testDB.Where("assessment_id = ?", assessment.AssessmentID).Delete(&model.Question{})
		testDB.Where("assessment_id = ?", assessment.AssessmentID).Delete(&model.Assessment{})
	}
	return assessment, cleanup
}

// ═══════════════════════════════════════════════════════════
// Test: Assessment 往返（JSONB 选项、题序）
// ═══════════════════════════════════════════════════════════

func TestAssessment_RoundTripPreservesOptions(t *testing.T) {
	teacher, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	found, err := repo.Assessment.GetByID(ctx, assessment.AssessmentID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(found.Questions) != 2 {
		t.Fatalf("期望 2 道题目，得到 %d 道", len(found.Questions))
	}

	// 题目按 position 升序返回
	if found.Questions[0].Position != 1 || found.Questions[1].Position != 2 {
		t.Errorf("题序不对: %d, %d", found.Questions[0].Position, found.Questions[1].Position)
	}

	// JSONB 选项逐项且保序还原
	choice := found.Questions[0]
	want := []string{"3", "4", "5", "6"}
	if len(choice.Options) != len(want) {
		t.Fatalf("期望 %d 个选项，得到 %d 个", len(want), len(choice.Options))
	}
	for i, opt := range want {
		if choice.Options[i] != opt {
			t.Errorf("选项 %d 期望 %q，得到 %q", i, opt, choice.Options[i])
		}
	}
	if choice.CorrectAnswer != "4" {
		t.Errorf("正确答案期望 4，得到 %q", choice.CorrectAnswer)
	}

	// 简答题的空选项列表不应变成 nil 之外的脏数据
	if len(found.Questions[1].Options) != 0 {
		t.Errorf("简答题不应携带选项: %v", found.Questions[1].Options)
	}
}

func TestAssessment_ReplaceQuestionsReorders(t *testing.T) {
	teacher, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	// 整体替换为题序颠倒的新题目列表
	replaced := []model.Question{
		{
			AssessmentID: assessment.AssessmentID,
			Position:     1,
			Text:         "新的第一题",
			Type:         model.QuestionTypeText,
			Marks:        8,
			Options:      []string{},
		},
		{
			AssessmentID:  assessment.AssessmentID,
			Position:      2,
			Text:          "新的第二题",
			Type:          model.QuestionTypeMultipleChoice,
			Marks:         3,
			Options:       []string{"甲", "乙"},
			CorrectAnswer: "乙",
		},
	}
	if err := repo.Assessment.ReplaceQuestions(ctx, assessment.AssessmentID, replaced); err != nil {
		t.Fatalf("ReplaceQuestions 失败: %v", err)
	}

	found, err := repo.Assessment.GetByID(ctx, assessment.AssessmentID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(found.Questions) != 2 {
		t.Fatalf("替换后期望 2 道题目，得到 %d 道", len(found.Questions))
	}
	if found.Questions[0].Text != "新的第一题" {
		t.Errorf("替换后第一题不符: %q", found.Questions[0].Text)
	}
	if found.Questions[1].CorrectAnswer != "乙" {
		t.Errorf("替换后第二题答案不符: %q", found.Questions[1].CorrectAnswer)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Submission 往返（可空分值、黏性标记、唯一键）
// ═══════════════════════════════════════════════════════════

func TestSubmission_RoundTripNullableMarks(t *testing.T) {
	teacher, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	// 含简答题的提交：自动判分已知、总分待人工评定
	auto := 5
	sub := &model.Submission{
		AssessmentID:    assessment.AssessmentID,
		StudentID:       student.StudentID,
		SubmittedAt:     time.Now(),
		IsCompleted:     true,
		AutoGradedMarks: &auto,
	}
	if err := repo.Submission.Create(ctx, sub); err != nil {
		t.Fatalf("创建提交失败: %v", err)
	}
	defer testDB.Where("submission_id = ?", sub.SubmissionID).Delete(&model.Submission{})

	found, err := repo.Submission.GetByAssessmentAndStudent(ctx, assessment.AssessmentID, student.StudentID)
	if err != nil {
		t.Fatalf("GetByAssessmentAndStudent 失败: %v", err)
	}
	if found.AutoGradedMarks == nil || *found.AutoGradedMarks != 5 {
		t.Errorf("自动判分应还原为 5，得到 %v", found.AutoGradedMarks)
	}
	// 待评分状态必须是 NULL，不能塌缩成 0
	if found.MarksAwarded != nil {
		t.Errorf("未评分的 MarksAwarded 应为 NULL，得到 %d", *found.MarksAwarded)
	}

	// 人工评分后总分落库
	awarded := 12
	found.MarksAwarded = &awarded
	if err := repo.Submission.Update(ctx, found); err != nil {
		t.Fatalf("更新提交失败: %v", err)
	}
	again, err := repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if again.MarksAwarded == nil || *again.MarksAwarded != 12 {
		t.Errorf("评分后应还原为 12，得到 %v", again.MarksAwarded)
	}
}

func TestSubmission_ViolationFlagsPersist(t *testing.T) {
	teacher, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	sub := &model.Submission{
		AssessmentID:        assessment.AssessmentID,
		StudentID:           student.StudentID,
		SubmittedAt:         time.Now(),
		IsCompleted:         true,
		TabSwitched:         true,
		ScreenSizeViolation: true,
	}
	if err := repo.Submission.Create(ctx, sub); err != nil {
		t.Fatalf("创建提交失败: %v", err)
	}
	defer testDB.Where("submission_id = ?", sub.SubmissionID).Delete(&model.Submission{})

	found, err := repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if !found.TabSwitched || !found.ScreenSizeViolation {
		t.Errorf("违规标记应完整还原: tab=%v violation=%v",
			found.TabSwitched, found.ScreenSizeViolation)
	}
}

func TestSubmission_UniquePerAssessmentStudent(t *testing.T) {
	teacher, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	sub1 := &model.Submission{
		AssessmentID: assessment.AssessmentID,
		StudentID:    student.StudentID,
		SubmittedAt:  time.Now(),
	}
	if err := repo.Submission.Create(ctx, sub1); err != nil {
		t.Fatalf("创建第一条提交失败: %v", err)
	}
	defer testDB.Where("submission_id = ?", sub1.SubmissionID).Delete(&model.Submission{})

	// 同一 (assessment_id, student_id) 的第二条提交应被唯一索引拒绝
	sub2 := &model.Submission{
		AssessmentID: assessment.AssessmentID,
		StudentID:    student.StudentID,
		SubmittedAt:  time.Now(),
	}
	err := repo.Submission.Create(ctx, sub2)
	if err == nil {
		testDB.Where("submission_id = ?", sub2.SubmissionID).Delete(&model.Submission{})
		t.Fatal("期望唯一约束违反，但创建成功了")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Logf("唯一约束错误未翻译为 gorm.ErrDuplicatedKey: %v", err)
	}
}

func TestSubmission_ReplaceAnswersRoundTrip(t *testing.T) {
	teacher, student, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	assessment, cleanupAssessment := createTestAssessment(t, repo, teacher.UserID)
	defer cleanupAssessment()

	sub := &model.Submission{
		AssessmentID: assessment.AssessmentID,
		StudentID:    student.StudentID,
		SubmittedAt:  time.Now(),
	}
	if err := repo.Submission.Create(ctx, sub); err != nil {
		t.Fatalf("创建提交失败: %v", err)
	}
	defer func() {
		testDB.Where("submission_id = ?", sub.SubmissionID).Delete(&model.Answer{})
		testDB.Where("submission_id = ?", sub.SubmissionID).Delete(&model.Submission{})
	}()

	q1 := assessment.Questions[0].QuestionID
	q2 := assessment.Questions[1].QuestionID

	answers := []model.Answer{
		{SubmissionID: sub.SubmissionID, QuestionID: q1, Answer: "4"},
		{SubmissionID: sub.SubmissionID, QuestionID: q2, Answer: "分而治之，两路归并。"},
	}
	if err := repo.Submission.ReplaceAnswers(ctx, sub.SubmissionID, answers); err != nil {
		t.Fatalf("ReplaceAnswers 失败: %v", err)
	}

	found, err := repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(found.Answers) != 2 {
		t.Fatalf("期望 2 条作答，得到 %d 条", len(found.Answers))
	}
	if got, ok := found.AnswerFor(q1); !ok || got != "4" {
		t.Errorf("选择题作答还原不符: %q (ok=%v)", got, ok)
	}

	// 重复提交整体替换，不残留旧作答
	if err := repo.Submission.ReplaceAnswers(ctx, sub.SubmissionID, []model.Answer{
		{SubmissionID: sub.SubmissionID, QuestionID: q1, Answer: "5"},
	}); err != nil {
		t.Fatalf("二次 ReplaceAnswers 失败: %v", err)
	}
	found, err = repo.Submission.GetByID(ctx, sub.SubmissionID)
	if err != nil {
		t.Fatalf("GetByID 失败: %v", err)
	}
	if len(found.Answers) != 1 {
		t.Fatalf("替换后期望 1 条作答，得到 %d 条", len(found.Answers))
	}
	if got, _ := found.AnswerFor(q1); got != "5" {
		t.Errorf("替换后作答不符: %q", got)
	}
}

// ═══════════════════════════════════════════════════════════
// Test: Transaction Rollback
// ═══════════════════════════════════════════════════════════

func TestTransaction_Rollback(t *testing.T) {
	teacher, _, cleanup := setupTestData(t)
	defer cleanup()

	repo := repository.NewRepository(testDB)
	ctx := context.Background()

	var assessmentID string
	sentinel := errors.New("触发回滚")

	err := repo.Transaction(func(txRepo *repository.Repository) error {
		assessment := &model.Assessment{
			Title:     "事务内考核",
			CreatedBy: teacher.UserID,
			StartDate: "2026-01-01",
			StartTime: "08:00",
			DueDate:   "2026-12-31",
			DueTime:   "18:00",
		}
		if err := txRepo.Assessment.Create(ctx, assessment); err != nil {
			return err
		}
		assessmentID = assessment.AssessmentID
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("期望透传回滚错误，得到: %v", err)
	}

	// 验证数据未持久化
	if _, err := repo.Assessment.GetByID(ctx, assessmentID); err == nil {
		testDB.Where("assessment_id = ?", assessmentID).Delete(&model.Assessment{})
		t.Fatal("期望回滚后查不到考核，但实际查到了")
	}
}
