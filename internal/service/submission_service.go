package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/repository"
)

// ── 提交与评分业务错误 ──

var (
	ErrSubmissionNotFound  = errors.New("提交记录不存在")
	ErrAlreadySubmitted    = errors.New("该考核已完成提交，不能重复作答")
	ErrAssessmentNotActive = errors.New("考核不在活动窗口内")
	ErrMarksOutOfRange     = errors.New("评分超出 0 到总分的范围")
)

// 提交结果状态
const (
	SubmitStatusCompleted = "completed"
	SubmitStatusTabSwitch = "auto_submitted_tab_switch"
	SubmitStatusViolation = "auto_submitted_violation"
	SubmitStatusDraft     = "draft"
)

// SubmissionService 提交与评分业务接口
//
// 判分规则：
//   - 选择题按标准答案自动判分
//   - 屏幕尺寸违规的提交不做自动判分，总分直接记 0
//   - 含简答题的考核须教师手动评定总分；重复提交保留教师
//     已评的简答部分（总分 − 旧自动分），叠加新自动分
//   - TabSwitched / ScreenSizeViolation 一旦置真永久保留
type SubmissionService interface {
	Submit(ctx context.Context, assessmentID, studentID string, req *dto.SubmitRequest) (*dto.SubmitResponse, error)
	AutoSubmit(ctx context.Context, assessmentID, studentID string, tabSwitched, violation bool) (*dto.SubmitResponse, error)
	SaveDraft(ctx context.Context, assessmentID, studentID string, req *dto.SaveDraftRequest) (*dto.SubmitResponse, error)
	Eligibility(ctx context.Context, assessmentID, studentID string, now time.Time) (*dto.EligibilityResponse, error)
	GetOwn(ctx context.Context, assessmentID, studentID string) (*model.Submission, error)
	ListByAssessment(ctx context.Context, assessmentID string, callerID, callerRole string) ([]model.Submission, error)
	AwardMarks(ctx context.Context, submissionID string, marks int, callerID, callerRole string) (*model.Submission, error)
	Scores(ctx context.Context) ([]model.Score, error)
}

type submissionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(repo *repository.Repository, logger *zap.Logger) SubmissionService {
	return &submissionService{repo: repo, logger: logger}
}

// ────────────────────── Submit ──────────────────────

func (s *submissionService) Submit(ctx context.Context, assessmentID, studentID string, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	return s.submit(ctx, assessmentID, studentID, req, true)
}

// AutoSubmit 服务端发起的强制交卷：取暂存作答按监考结论提交
// 到时交卷与违规交卷都发生在截止前后，不做活动窗口校验
func (s *submissionService) AutoSubmit(ctx context.Context, assessmentID, studentID string, tabSwitched, violation bool) (*dto.SubmitResponse, error) {
	req := &dto.SubmitRequest{
		TabSwitched:         tabSwitched,
		ScreenSizeViolation: violation,
	}

	existing, err := s.repo.Submission.GetByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		for _, a := range existing.Answers {
			req.Answers = append(req.Answers, dto.AnswerPayload{QuestionID: a.QuestionID, Answer: a.Answer})
		}
	}

	return s.submit(ctx, assessmentID, studentID, req, false)
}

func (s *submissionService) submit(ctx context.Context, assessmentID, studentID string, req *dto.SubmitRequest, enforceWindow bool) (*dto.SubmitResponse, error) {
	assessment, err := s.loadVisibleAssessment(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}

	// 客户端上报的违规提交允许越过活动窗口（宽限延迟可能跨过截止时刻）
	if enforceWindow && !req.TabSwitched && !req.ScreenSizeViolation && !assessment.IsActiveAt(time.Now()) {
		return nil, ErrAssessmentNotActive
	}

	// 已有提交则原地更新；违规标记只增不减
	existing, err := s.repo.Submission.GetByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tabSwitched := req.TabSwitched
	violation := req.ScreenSizeViolation
	if existing != nil {
		tabSwitched = tabSwitched || existing.TabSwitched
		violation = violation || existing.ScreenSizeViolation
	}

	answers := toAnswers(req.Answers)
	submission := &model.Submission{
		AssessmentID:        assessmentID,
		StudentID:           studentID,
		SubmittedAt:         time.Now(),
		IsCompleted:         tabSwitched || violation || len(answers) > 0,
		TabSwitched:         tabSwitched,
		ScreenSizeViolation: violation,
	}
	if existing != nil {
		submission.SubmissionID = existing.SubmissionID
	}

	if violation {
		// 违规提交：不自动判分，总分记 0
		zero := 0
		submission.AutoGradedMarks = nil
		submission.MarksAwarded = &zero
	} else {
		autoGraded := gradeChoiceQuestions(assessment, answers)
		submission.AutoGradedMarks = &autoGraded

		if existing != nil && existing.MarksAwarded != nil {
			// 教师已评过分：保留人工部分（总分 − 旧自动分，旧自动分缺省按 0），叠加新的自动分
			oldAuto := 0
			if existing.AutoGradedMarks != nil {
				oldAuto = *existing.AutoGradedMarks
			}
			total := autoGraded + *existing.MarksAwarded - oldAuto
			submission.MarksAwarded = &total
		} else if assessment.TotalTextMarks() == 0 {
			// 全选择题：自动分即总分
			total := autoGraded
			submission.MarksAwarded = &total
		}
		// 否则留空，等待教师评分
	}

	if err := s.upsert(ctx, submission, existing, answers); err != nil {
		s.logger.Error("保存提交失败",
			zap.String("assessment_id", assessmentID),
			zap.String("student_id", studentID),
			zap.Error(err))
		return nil, err
	}

	status := SubmitStatusCompleted
	switch {
	case violation:
		status = SubmitStatusViolation
	case tabSwitched:
		status = SubmitStatusTabSwitch
	}

	s.logger.Info("作答已提交",
		zap.String("submission_id", submission.SubmissionID),
		zap.String("status", status))

	return &dto.SubmitResponse{
		SubmissionID:    submission.SubmissionID,
		Status:          status,
		AutoGradedMarks: submission.AutoGradedMarks,
		MarksAwarded:    submission.MarksAwarded,
	}, nil
}

// gradeChoiceQuestions 选择题自动判分：作答与标准答案完全一致得满分
func gradeChoiceQuestions(assessment *model.Assessment, answers []model.Answer) int {
	answerByQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		answerByQuestion[a.QuestionID] = a.Answer
	}

	total := 0
	for _, q := range assessment.Questions {
		if q.Type != model.QuestionTypeMultipleChoice {
			continue
		}
		if answerByQuestion[q.QuestionID] == q.CorrectAnswer {
			total += q.Marks
		}
	}
	return total
}

func toAnswers(payloads []dto.AnswerPayload) []model.Answer {
	answers := make([]model.Answer, 0, len(payloads))
	for _, p := range payloads {
		answers = append(answers, model.Answer{
			QuestionID: p.QuestionID,
			Answer:     p.Answer,
		})
	}
	return answers
}

// upsert 新建或原地更新提交，作答列表整体替换，单事务完成
func (s *submissionService) upsert(ctx context.Context, submission *model.Submission, existing *model.Submission, answers []model.Answer) error {
	return s.repo.Transaction(func(tx *repository.Repository) error {
		if existing == nil {
			submission.Answers = answers
			return tx.Submission.Create(ctx, submission)
		}
		if err := tx.Submission.Update(ctx, submission); err != nil {
			return err
		}
		for i := range answers {
			answers[i].SubmissionID = submission.SubmissionID
		}
		if err := tx.Submission.ReplaceAnswers(ctx, submission.SubmissionID, answers); err != nil {
			return err
		}
		submission.Answers = answers
		return nil
	})
}

// ────────────────────── SaveDraft ──────────────────────

// SaveDraft 暂存作答：不判分、不置完成标记
// 已完成的提交不接受暂存
func (s *submissionService) SaveDraft(ctx context.Context, assessmentID, studentID string, req *dto.SaveDraftRequest) (*dto.SubmitResponse, error) {
	assessment, err := s.loadVisibleAssessment(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}
	if !assessment.IsActiveAt(time.Now()) {
		return nil, ErrAssessmentNotActive
	}

	existing, err := s.repo.Submission.GetByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsCompleted {
		return nil, ErrAlreadySubmitted
	}

	submission := &model.Submission{
		AssessmentID: assessmentID,
		StudentID:    studentID,
		SubmittedAt:  time.Now(),
		IsCompleted:  false,
	}
	if existing != nil {
		submission.SubmissionID = existing.SubmissionID
		submission.TabSwitched = existing.TabSwitched
		submission.ScreenSizeViolation = existing.ScreenSizeViolation
	}

	answers := toAnswers(req.Answers)
	if err := s.upsert(ctx, submission, existing, answers); err != nil {
		s.logger.Error("暂存作答失败", zap.Error(err))
		return nil, err
	}

	return &dto.SubmitResponse{
		SubmissionID: submission.SubmissionID,
		Status:       SubmitStatusDraft,
	}, nil
}

// ────────────────────── Eligibility ──────────────────────

func (s *submissionService) Eligibility(ctx context.Context, assessmentID, studentID string, now time.Time) (*dto.EligibilityResponse, error) {
	assessment, err := s.loadVisibleAssessment(ctx, assessmentID, studentID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Submission.GetByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil && existing.IsCompleted {
		return &dto.EligibilityResponse{CanTake: false, Reason: "已完成提交，不能重复作答"}, nil
	}

	start, err := assessment.StartAt()
	if err != nil {
		return nil, ErrBadDateTime
	}
	due, err := assessment.DueAt()
	if err != nil {
		return nil, ErrBadDateTime
	}
	if now.Before(start) {
		return &dto.EligibilityResponse{CanTake: false, Reason: "考核尚未开始"}, nil
	}
	if now.After(due) {
		return &dto.EligibilityResponse{CanTake: false, Reason: "考核已截止"}, nil
	}

	return &dto.EligibilityResponse{CanTake: true}, nil
}

// loadVisibleAssessment 加载考核并校验对学生可见
func (s *submissionService) loadVisibleAssessment(ctx context.Context, assessmentID, studentID string) (*model.Assessment, error) {
	assessment, err := s.repo.Assessment.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	if !assessment.CreatedBySuperTeacher {
		student, err := s.repo.Student.GetByID(ctx, studentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStudentNotFound
			}
			return nil, err
		}
		if assessment.CreatedBy != student.CreatedBy {
			return nil, ErrAssessmentHasNoView
		}
	}
	return assessment, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *submissionService) GetOwn(ctx context.Context, assessmentID, studentID string) (*model.Submission, error) {
	submission, err := s.repo.Submission.GetByAssessmentAndStudent(ctx, assessmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return submission, nil
}

func (s *submissionService) ListByAssessment(ctx context.Context, assessmentID string, callerID, callerRole string) ([]model.Submission, error) {
	assessment, err := s.repo.Assessment.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if callerRole != model.RoleAdmin && assessment.CreatedBy != callerID {
		return nil, ErrNotAssessmentOwner
	}
	return s.repo.Submission.ListByAssessment(ctx, assessmentID)
}

// ────────────────────── AwardMarks ──────────────────────

// AwardMarks 教师评定提交总分，范围 [0, 考核总分]
func (s *submissionService) AwardMarks(ctx context.Context, submissionID string, marks int, callerID, callerRole string) (*model.Submission, error) {
	submission, err := s.repo.Submission.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	assessment, err := s.repo.Assessment.GetByID(ctx, submission.AssessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if callerRole != model.RoleAdmin && assessment.CreatedBy != callerID {
		return nil, ErrNotAssessmentOwner
	}

	if marks < 0 || marks > assessment.TotalMarks() {
		return nil, ErrMarksOutOfRange
	}

	submission.MarksAwarded = &marks
	if err := s.repo.Submission.Update(ctx, submission); err != nil {
		s.logger.Error("评分保存失败", zap.String("submission_id", submissionID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("评分已保存",
		zap.String("submission_id", submissionID),
		zap.Int("marks", marks))
	return submission, nil
}

// ────────────────────── Scores ──────────────────────

// Scores 管理员成绩总览：已完成且已评分的提交连接考核与学生信息
func (s *submissionService) Scores(ctx context.Context) ([]model.Score, error) {
	submissions, err := s.repo.Submission.List(ctx)
	if err != nil {
		return nil, err
	}

	assessmentCache := make(map[string]*model.Assessment)
	studentCache := make(map[string]*model.Student)
	teacherCache := make(map[string]*model.User)

	scores := make([]model.Score, 0, len(submissions))
	for _, sub := range submissions {
		if !sub.IsCompleted || sub.MarksAwarded == nil {
			continue
		}

		assessment, ok := assessmentCache[sub.AssessmentID]
		if !ok {
			assessment, err = s.repo.Assessment.GetByID(ctx, sub.AssessmentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue // 悬挂提交，考核已删除
				}
				return nil, err
			}
			assessmentCache[sub.AssessmentID] = assessment
		}

		student, ok := studentCache[sub.StudentID]
		if !ok {
			student, err = s.repo.Student.GetByID(ctx, sub.StudentID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return nil, err
			}
			studentCache[sub.StudentID] = student
		}

		// 成绩归属学生的归属教师（超级教师发布的考核也不例外）
		teacher, cached := teacherCache[student.CreatedBy]
		if !cached {
			teacher, err = s.repo.User.GetByID(ctx, student.CreatedBy)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, err
				}
				teacher = nil
			}
			teacherCache[student.CreatedBy] = teacher
		}
		if teacher == nil {
			continue // 归属教师已删除
		}

		scores = append(scores, model.Score{
			StudentID:             student.StudentID,
			StudentName:           student.Name,
			AssessmentID:          assessment.AssessmentID,
			AssessmentTitle:       assessment.Title,
			MarksAwarded:          *sub.MarksAwarded,
			TotalMarks:            assessment.TotalMarks(),
			TeacherID:             teacher.UserID,
			TeacherName:           teacher.Name,
			Department:            teacher.Department,
			CreatedBySuperTeacher: assessment.CreatedBySuperTeacher,
		})
	}
	return scores, nil
}
