package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/repository"
)

// ── 考核模块业务错误 ──

var (
	ErrAssessmentNotFound  = errors.New("考核不存在")
	ErrNotAssessmentOwner  = errors.New("只能操作自己创建的考核")
	ErrDueBeforeStart      = errors.New("截止时刻必须晚于开始时刻")
	ErrBadDateTime         = errors.New("日期或时间格式不正确")
	ErrChoiceNeedsOptions  = errors.New("选择题至少需要两个选项")
	ErrChoiceBadOption     = errors.New("选择题选项不能为空或重复")
	ErrChoiceBadAnswer     = errors.New("选择题的正确答案必须是选项之一")
	ErrAssessmentNoAccess  = errors.New("无权查看该考核")
	ErrAssessmentHasNoView = errors.New("该考核对当前学生不可见")
)

// AssessmentService 考核业务接口
//
// 可见性规则：
//   - 教师只见自己创建的考核
//   - 学生可见归属教师创建的 + 超级教师创建的考核
//   - 管理员可见全部
type AssessmentService interface {
	Create(ctx context.Context, req *dto.CreateAssessmentRequest, creatorID string) (*model.Assessment, error)
	Get(ctx context.Context, id string, callerID, callerRole string) (*model.Assessment, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]model.Assessment, error)
	ListForStudent(ctx context.Context, studentID string) ([]model.Assessment, error)
	ListAll(ctx context.Context) ([]model.Assessment, error)
	Update(ctx context.Context, id string, req *dto.UpdateAssessmentRequest, callerID string) (*model.Assessment, error)
	Delete(ctx context.Context, id string, callerID, callerRole string) error
	Status(ctx context.Context, id string, callerID, callerRole string, now time.Time) (*dto.AssessmentStatusResponse, error)
	ParseImportFile(reader io.Reader) (*dto.CreateAssessmentRequest, error)
}

type assessmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAssessmentService 创建 AssessmentService 实例
func NewAssessmentService(repo *repository.Repository, logger *zap.Logger) AssessmentService {
	return &assessmentService{repo: repo, logger: logger}
}

// ────────────────────── 校验 ──────────────────────

// validateSchedule 校验起止时刻：两段均可解析且截止严格晚于开始
func validateSchedule(startDate, startTime, dueDate, dueTime string) error {
	start, err := time.ParseInLocation("2006-01-02T15:04", startDate+"T"+startTime, time.Local)
	if err != nil {
		return ErrBadDateTime
	}
	due, err := time.ParseInLocation("2006-01-02T15:04", dueDate+"T"+dueTime, time.Local)
	if err != nil {
		return ErrBadDateTime
	}
	if !due.After(start) {
		return ErrDueBeforeStart
	}
	return nil
}

// validateQuestions 校验题目载荷并转为模型（Position 按载荷顺序编号）
func validateQuestions(payloads []dto.QuestionPayload) ([]model.Question, error) {
	questions := make([]model.Question, 0, len(payloads))
	for i, p := range payloads {
		q := model.Question{
			Position: i + 1,
			Text:     strings.TrimSpace(p.Text),
			Type:     p.Type,
			Marks:    p.Marks,
		}

		if p.Type == model.QuestionTypeMultipleChoice {
			// 空白或重复的选项是录入错误，整体拒绝而非静默修补
			seen := make(map[string]bool)
			for _, opt := range p.Options {
				opt = strings.TrimSpace(opt)
				if opt == "" || seen[opt] {
					return nil, ErrChoiceBadOption
				}
				seen[opt] = true
				q.Options = append(q.Options, opt)
			}
			if len(q.Options) < 2 {
				return nil, ErrChoiceNeedsOptions
			}
			answer := strings.TrimSpace(p.CorrectAnswer)
			if !seen[answer] {
				return nil, ErrChoiceBadAnswer
			}
			q.CorrectAnswer = answer
		} else {
			// 简答题不携带选项与标准答案
			q.Options = []string{}
		}

		questions = append(questions, q)
	}
	return questions, nil
}

// ────────────────────── Create ──────────────────────

func (s *assessmentService) Create(ctx context.Context, req *dto.CreateAssessmentRequest, creatorID string) (*model.Assessment, error) {
	if err := validateSchedule(req.StartDate, req.StartTime, req.DueDate, req.DueTime); err != nil {
		return nil, err
	}
	questions, err := validateQuestions(req.Questions)
	if err != nil {
		return nil, err
	}

	// 快照创建者当时的超级教师身份，后续撤销超级身份不影响已发布考核的可见范围
	creator, err := s.repo.User.GetByID(ctx, creatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		return nil, err
	}

	assessment := &model.Assessment{
		Title:                 strings.TrimSpace(req.Title),
		Description:           strings.TrimSpace(req.Description),
		CreatedBy:             creatorID,
		StartDate:             req.StartDate,
		StartTime:             req.StartTime,
		DueDate:               req.DueDate,
		DueTime:               req.DueTime,
		CreatedBySuperTeacher: creator.IsSuperTeacher,
		Questions:             questions,
	}

	if err := s.repo.Assessment.Create(ctx, assessment); err != nil {
		s.logger.Error("创建考核失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("考核已创建",
		zap.String("assessment_id", assessment.AssessmentID),
		zap.String("creator_id", creatorID),
		zap.Int("questions", len(questions)))
	return assessment, nil
}

// ────────────────────── Get / List ──────────────────────

func (s *assessmentService) Get(ctx context.Context, id string, callerID, callerRole string) (*model.Assessment, error) {
	assessment, err := s.repo.Assessment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}

	switch callerRole {
	case model.RoleAdmin:
		return assessment, nil
	case model.RoleTeacher:
		// 超级教师创建的考核对全体教师可见
		if assessment.CreatedBy != callerID && !assessment.CreatedBySuperTeacher {
			return nil, ErrAssessmentNoAccess
		}
		return assessment, nil
	case model.RoleStudent:
		visible, err := s.visibleToStudent(ctx, assessment, callerID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, ErrAssessmentHasNoView
		}
		return assessment, nil
	default:
		return nil, ErrAssessmentNoAccess
	}
}

// visibleToStudent 学生可见性：归属教师创建的或超级教师创建的
func (s *assessmentService) visibleToStudent(ctx context.Context, assessment *model.Assessment, studentID string) (bool, error) {
	if assessment.CreatedBySuperTeacher {
		return true, nil
	}
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrStudentNotFound
		}
		return false, err
	}
	return assessment.CreatedBy == student.CreatedBy, nil
}

// ListForTeacher 自己创建的考核，外加超级教师发布的全局考核（去重）
func (s *assessmentService) ListForTeacher(ctx context.Context, teacherID string) ([]model.Assessment, error) {
	own, err := s.repo.Assessment.ListByCreator(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	global, err := s.repo.Assessment.ListBySuperTeacher(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(own))
	merged := make([]model.Assessment, 0, len(own)+len(global))
	for _, a := range own {
		seen[a.AssessmentID] = true
		merged = append(merged, a)
	}
	for _, a := range global {
		if !seen[a.AssessmentID] {
			merged = append(merged, a)
		}
	}
	return merged, nil
}

// ListForStudent 合并归属教师创建的与超级教师创建的考核并去重
func (s *assessmentService) ListForStudent(ctx context.Context, studentID string) ([]model.Assessment, error) {
	student, err := s.repo.Student.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}

	own, err := s.repo.Assessment.ListByCreator(ctx, student.CreatedBy)
	if err != nil {
		return nil, err
	}
	global, err := s.repo.Assessment.ListBySuperTeacher(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(own))
	merged := make([]model.Assessment, 0, len(own)+len(global))
	for _, a := range own {
		seen[a.AssessmentID] = true
		merged = append(merged, a)
	}
	for _, a := range global {
		if !seen[a.AssessmentID] {
			merged = append(merged, a)
		}
	}
	return merged, nil
}

func (s *assessmentService) ListAll(ctx context.Context) ([]model.Assessment, error) {
	return s.repo.Assessment.List(ctx)
}

// ────────────────────── Update ──────────────────────

// Update 整体替换语义：基础字段与题目列表一并覆盖
func (s *assessmentService) Update(ctx context.Context, id string, req *dto.UpdateAssessmentRequest, callerID string) (*model.Assessment, error) {
	assessment, err := s.repo.Assessment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		return nil, err
	}
	if assessment.CreatedBy != callerID {
		return nil, ErrNotAssessmentOwner
	}

	if err := validateSchedule(req.StartDate, req.StartTime, req.DueDate, req.DueTime); err != nil {
		return nil, err
	}
	questions, err := validateQuestions(req.Questions)
	if err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].AssessmentID = id
	}

	assessment.Title = strings.TrimSpace(req.Title)
	assessment.Description = strings.TrimSpace(req.Description)
	assessment.StartDate = req.StartDate
	assessment.StartTime = req.StartTime
	assessment.DueDate = req.DueDate
	assessment.DueTime = req.DueTime

	err = s.repo.Transaction(func(tx *repository.Repository) error {
		if err := tx.Assessment.Update(ctx, assessment); err != nil {
			return err
		}
		return tx.Assessment.ReplaceQuestions(ctx, id, questions)
	})
	if err != nil {
		s.logger.Error("更新考核失败", zap.String("assessment_id", id), zap.Error(err))
		return nil, err
	}

	assessment.Questions = questions
	return assessment, nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除考核并级联清理其全部提交
func (s *assessmentService) Delete(ctx context.Context, id string, callerID, callerRole string) error {
	assessment, err := s.repo.Assessment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssessmentNotFound
		}
		return err
	}
	if callerRole != model.RoleAdmin && assessment.CreatedBy != callerID {
		return ErrNotAssessmentOwner
	}

	return s.repo.Transaction(func(tx *repository.Repository) error {
		if err := tx.Submission.DeleteByAssessment(ctx, id); err != nil {
			return err
		}
		if err := tx.Assessment.Delete(ctx, id); err != nil {
			return err
		}
		s.logger.Info("考核已删除", zap.String("assessment_id", id))
		return nil
	})
}

// ────────────────────── Status ──────────────────────

func (s *assessmentService) Status(ctx context.Context, id string, callerID, callerRole string, now time.Time) (*dto.AssessmentStatusResponse, error) {
	assessment, err := s.Get(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, err
	}

	start, err := assessment.StartAt()
	if err != nil {
		return nil, ErrBadDateTime
	}
	due, err := assessment.DueAt()
	if err != nil {
		return nil, ErrBadDateTime
	}

	return &dto.AssessmentStatusResponse{
		AssessmentID: assessment.AssessmentID,
		Active:       !now.Before(start) && !now.After(due),
		Upcoming:     now.Before(start),
		Expired:      now.After(due),
	}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportQuestions = 200

var (
	ErrImportNoData       = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows  = fmt.Errorf("题目行数超过上限 %d 行", maxImportQuestions)
	ErrImportBadMeta      = errors.New("首个数据行缺少考核标题或起止日期")
	ErrImportBadQuestion  = errors.New("题目行格式不正确")
	ErrImportBadType      = errors.New("题目类型必须是 text 或 multiple-choice")
	ErrImportBadMarks     = errors.New("题目分值必须是正整数")
	ErrImportNoQuestions  = errors.New("Excel文件不包含任何题目行")
	defaultImportStart    = "09:00"
	defaultImportDeadline = "17:00"
)

// ParseImportFile 解析考核导入 Excel
//
// 工作表布局（第一行为表头，不参与解析）：
//   - 第 2 行：Title | Description | StartDate | StartTime | DueDate | DueTime
//     时间列缺省时分别回落到 09:00 / 17:00
//   - 第 3 行起：QuestionText | Type | Marks | Options(逗号分隔) | CorrectAnswer
//
// 任何一行非法则整个导入失败，不做部分导入
func (s *assessmentService) ParseImportFile(reader io.Reader) (*dto.CreateAssessmentRequest, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(rows) < 2 {
		return nil, ErrImportNoData
	}

	// 第 2 行：考核元信息
	meta := rows[1]
	req := &dto.CreateAssessmentRequest{
		Title:       cellAt(meta, 0),
		Description: cellAt(meta, 1),
		StartDate:   cellAt(meta, 2),
		StartTime:   cellAt(meta, 3),
		DueDate:     cellAt(meta, 4),
		DueTime:     cellAt(meta, 5),
	}
	if req.StartTime == "" {
		req.StartTime = defaultImportStart
	}
	if req.DueTime == "" {
		req.DueTime = defaultImportDeadline
	}
	if req.Title == "" || req.StartDate == "" || req.DueDate == "" {
		return nil, ErrImportBadMeta
	}
	if err := validateSchedule(req.StartDate, req.StartTime, req.DueDate, req.DueTime); err != nil {
		return nil, err
	}

	// 第 3 行起：题目
	for i := 2; i < len(rows); i++ {
		row := rows[i]

		text := cellAt(row, 0)
		qType := cellAt(row, 1)
		marksRaw := cellAt(row, 2)
		optionsRaw := cellAt(row, 3)
		correct := cellAt(row, 4)

		// 跳过全空行
		if text == "" && qType == "" && marksRaw == "" && optionsRaw == "" && correct == "" {
			continue
		}
		if text == "" {
			return nil, fmt.Errorf("%w: 第 %d 行缺少题干", ErrImportBadQuestion, i+1)
		}
		if qType != model.QuestionTypeText && qType != model.QuestionTypeMultipleChoice {
			return nil, fmt.Errorf("%w: 第 %d 行", ErrImportBadType, i+1)
		}
		marks, err := strconv.Atoi(marksRaw)
		if err != nil || marks <= 0 {
			return nil, fmt.Errorf("%w: 第 %d 行", ErrImportBadMarks, i+1)
		}

		payload := dto.QuestionPayload{
			Text:          text,
			Type:          qType,
			Marks:         marks,
			CorrectAnswer: correct,
		}
		if optionsRaw != "" {
			for _, opt := range strings.Split(optionsRaw, ",") {
				payload.Options = append(payload.Options, strings.TrimSpace(opt))
			}
		}

		req.Questions = append(req.Questions, payload)
	}

	if len(req.Questions) == 0 {
		return nil, ErrImportNoQuestions
	}
	if len(req.Questions) > maxImportQuestions {
		return nil, ErrImportTooManyRows
	}

	// 题目级校验提前到解析阶段，保证整体失败语义
	if _, err := validateQuestions(req.Questions); err != nil {
		return nil, err
	}

	return req, nil
}

// cellAt 安全取列并去除首尾空白，越界返回空串
func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
