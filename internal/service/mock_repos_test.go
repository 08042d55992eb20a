package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"examportal/internal/model"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	// 与 GORM 实现一致：邮箱不区分大小写
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetSuperTeacher(_ context.Context) (*model.User, error) {
	for _, u := range m.users {
		if u.IsSuperTeacher {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students map[string]*model.Student
	seq      int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		m.seq++
		student.StudentID = fmt.Sprintf("student-%d", m.seq)
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByEmail(_ context.Context, email string) (*model.Student, error) {
	for _, s := range m.students {
		if strings.EqualFold(s.Email, email) {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Student, error) {
	var result []model.Student
	for _, s := range m.students {
		if s.CreatedBy == teacherID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockStudentRepo) List(_ context.Context) ([]model.Student, error) {
	var result []model.Student
	for _, s := range m.students {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string) error {
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) ReassignOwner(_ context.Context, fromTeacherID, toTeacherID string) (int64, error) {
	var moved int64
	for _, s := range m.students {
		if s.CreatedBy == fromTeacherID {
			s.CreatedBy = toTeacherID
			moved++
		}
	}
	return moved, nil
}

// ── Mock AssessmentRepository ──

type mockAssessmentRepo struct {
	assessments map[string]*model.Assessment
	seq         int
}

func newMockAssessmentRepo() *mockAssessmentRepo {
	return &mockAssessmentRepo{assessments: make(map[string]*model.Assessment)}
}

func (m *mockAssessmentRepo) Create(_ context.Context, assessment *model.Assessment) error {
	if assessment.AssessmentID == "" {
		m.seq++
		assessment.AssessmentID = fmt.Sprintf("assessment-%d", m.seq)
	}
	for i := range assessment.Questions {
		if assessment.Questions[i].QuestionID == "" {
			assessment.Questions[i].QuestionID = fmt.Sprintf("%s-q%d", assessment.AssessmentID, i+1)
		}
		assessment.Questions[i].AssessmentID = assessment.AssessmentID
	}
	m.assessments[assessment.AssessmentID] = assessment
	return nil
}

func (m *mockAssessmentRepo) GetByID(_ context.Context, id string) (*model.Assessment, error) {
	if a, ok := m.assessments[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssessmentRepo) ListByCreator(_ context.Context, teacherID string) ([]model.Assessment, error) {
	var result []model.Assessment
	for _, a := range m.assessments {
		if a.CreatedBy == teacherID {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssessmentID < result[j].AssessmentID })
	return result, nil
}

func (m *mockAssessmentRepo) ListBySuperTeacher(_ context.Context) ([]model.Assessment, error) {
	var result []model.Assessment
	for _, a := range m.assessments {
		if a.CreatedBySuperTeacher {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssessmentID < result[j].AssessmentID })
	return result, nil
}

func (m *mockAssessmentRepo) List(_ context.Context) ([]model.Assessment, error) {
	var result []model.Assessment
	for _, a := range m.assessments {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AssessmentID < result[j].AssessmentID })
	return result, nil
}

func (m *mockAssessmentRepo) Update(_ context.Context, assessment *model.Assessment) error {
	if existing, ok := m.assessments[assessment.AssessmentID]; ok {
		// Update 不触碰题目列表（与 GORM 实现的 Omit 一致）
		assessment.Questions = existing.Questions
	}
	m.assessments[assessment.AssessmentID] = assessment
	return nil
}

func (m *mockAssessmentRepo) ReplaceQuestions(_ context.Context, assessmentID string, questions []model.Question) error {
	a, ok := m.assessments[assessmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range questions {
		if questions[i].QuestionID == "" {
			questions[i].QuestionID = fmt.Sprintf("%s-q%d", assessmentID, i+1)
		}
		questions[i].AssessmentID = assessmentID
	}
	a.Questions = questions
	return nil
}

func (m *mockAssessmentRepo) Delete(_ context.Context, id string) error {
	delete(m.assessments, id)
	return nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct {
	submissions map[string]*model.Submission
	seq         int
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{submissions: make(map[string]*model.Submission)}
}

func (m *mockSubmissionRepo) Create(_ context.Context, submission *model.Submission) error {
	// 模拟唯一索引 (assessment_id, student_id)
	for _, s := range m.submissions {
		if s.AssessmentID == submission.AssessmentID && s.StudentID == submission.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	if submission.SubmissionID == "" {
		m.seq++
		submission.SubmissionID = fmt.Sprintf("submission-%d", m.seq)
	}
	for i := range submission.Answers {
		submission.Answers[i].SubmissionID = submission.SubmissionID
	}
	m.submissions[submission.SubmissionID] = submission
	return nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	if s, ok := m.submissions[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) GetByAssessmentAndStudent(_ context.Context, assessmentID, studentID string) (*model.Submission, error) {
	for _, s := range m.submissions {
		if s.AssessmentID == assessmentID && s.StudentID == studentID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) ListByAssessment(_ context.Context, assessmentID string) ([]model.Submission, error) {
	var result []model.Submission
	for _, s := range m.submissions {
		if s.AssessmentID == assessmentID {
			result = append(result, *s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmissionID < result[j].SubmissionID })
	return result, nil
}

func (m *mockSubmissionRepo) List(_ context.Context) ([]model.Submission, error) {
	var result []model.Submission
	for _, s := range m.submissions {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SubmissionID < result[j].SubmissionID })
	return result, nil
}

func (m *mockSubmissionRepo) Update(_ context.Context, submission *model.Submission) error {
	if existing, ok := m.submissions[submission.SubmissionID]; ok {
		submission.Answers = existing.Answers
	}
	m.submissions[submission.SubmissionID] = submission
	return nil
}

func (m *mockSubmissionRepo) ReplaceAnswers(_ context.Context, submissionID string, answers []model.Answer) error {
	s, ok := m.submissions[submissionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range answers {
		answers[i].SubmissionID = submissionID
	}
	s.Answers = answers
	return nil
}

func (m *mockSubmissionRepo) DeleteByStudent(_ context.Context, studentID string) error {
	for id, s := range m.submissions {
		if s.StudentID == studentID {
			delete(m.submissions, id)
		}
	}
	return nil
}

func (m *mockSubmissionRepo) DeleteByAssessment(_ context.Context, assessmentID string) error {
	for id, s := range m.submissions {
		if s.AssessmentID == assessmentID {
			delete(m.submissions, id)
		}
	}
	return nil
}
