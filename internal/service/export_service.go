package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"examportal/internal/model"
	"examportal/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoStudents   = errors.New("该考核没有可导出的学生")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 成绩单按「应考学生」逐行导出：未提交的学生同样占一行，
//     成绩列以 "-" 占位，便于教师核对缺考名单
//   - 每道题展开为「作答」+「判对」两列，简答题判对列恒为 "-"
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入
type ExportService interface {
	// ExportResults 导出考核成绩单为 Excel
	ExportResults(ctx context.Context, assessmentID string, callerID, callerRole string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportResults — 导出考核成绩单
// ═══════════════════════════════════════════════════════════
//
// 列布局：
//   学生姓名 | 邮箱 | 状态 | 提交时刻 | 得分 | 自动判分 | 切屏标记
//   | 题1 作答 | 题1 判对 | 题2 作答 | 题2 判对 | …
//
// 应考学生范围：超级教师考核 = 全体学生；普通考核 = 创建者名下学生

func (s *exportService) ExportResults(ctx context.Context, assessmentID string, callerID, callerRole string) (*bytes.Buffer, string, error) {
	// 1. 加载考核并校验权限
	assessment, err := s.repo.Assessment.GetByID(ctx, assessmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrAssessmentNotFound
		}
		s.logger.Error("查询考核失败", zap.Error(err))
		return nil, "", err
	}
	if callerRole != model.RoleAdmin && assessment.CreatedBy != callerID {
		return nil, "", ErrNotAssessmentOwner
	}

	// 2. 圈定应考学生
	var students []model.Student
	if assessment.CreatedBySuperTeacher {
		students, err = s.repo.Student.List(ctx)
	} else {
		students, err = s.repo.Student.ListByTeacher(ctx, assessment.CreatedBy)
	}
	if err != nil {
		s.logger.Error("查询学生名单失败", zap.Error(err))
		return nil, "", err
	}
	if len(students) == 0 {
		return nil, "", ErrExportNoStudents
	}

	// 3. 提交索引: studentID → submission
	submissions, err := s.repo.Submission.ListByAssessment(ctx, assessmentID)
	if err != nil {
		s.logger.Error("查询提交失败", zap.Error(err))
		return nil, "", err
	}
	subByStudent := make(map[string]*model.Submission, len(submissions))
	for i := range submissions {
		subByStudent[submissions[i].StudentID] = &submissions[i]
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheet := "成绩单"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := []interface{}{"学生姓名", "邮箱", "状态", "提交时刻", "得分", "自动判分", "切屏标记"}
	for i := range assessment.Questions {
		header = append(header,
			fmt.Sprintf("题%d 作答", i+1),
			fmt.Sprintf("题%d 判对", i+1))
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, "", ErrExportGenerateFail
	}

	for rowIdx, student := range students {
		row := s.buildResultRow(assessment, &student, subByStudent[student.StudentID])
		cell := fmt.Sprintf("A%d", rowIdx+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", ErrExportGenerateFail
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("写出 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("%s_成绩单.xlsx", sanitizeFilename(assessment.Title))
	return buf, filename, nil
}

// buildResultRow 拼装单个学生的成绩行，缺失数据以 "-" 占位
func (s *exportService) buildResultRow(assessment *model.Assessment, student *model.Student, sub *model.Submission) []interface{} {
	const placeholder = "-"

	row := []interface{}{student.Name, student.Email}

	if sub == nil || !sub.IsCompleted {
		row = append(row, "未提交", placeholder, placeholder, placeholder, placeholder)
		for range assessment.Questions {
			row = append(row, placeholder, placeholder)
		}
		return row
	}

	status := "已提交"
	switch {
	case sub.ScreenSizeViolation:
		status = "强制提交（屏幕违规）"
	case sub.TabSwitched:
		status = "强制提交（切屏）"
	}

	marks := placeholder
	if sub.MarksAwarded != nil {
		marks = fmt.Sprintf("%d / %d", *sub.MarksAwarded, assessment.TotalMarks())
	}
	autoGraded := placeholder
	if sub.AutoGradedMarks != nil {
		autoGraded = fmt.Sprintf("%d", *sub.AutoGradedMarks)
	}
	tabSwitched := "否"
	if sub.TabSwitched {
		tabSwitched = "是"
	}

	row = append(row, status, sub.SubmittedAt.Format("2006-01-02 15:04:05"), marks, autoGraded, tabSwitched)

	for _, q := range assessment.Questions {
		answer, ok := sub.AnswerFor(q.QuestionID)
		if !ok || answer == "" {
			row = append(row, placeholder, placeholder)
			continue
		}

		correct := placeholder
		if q.Type == model.QuestionTypeMultipleChoice {
			if answer == q.CorrectAnswer {
				correct = "对"
			} else {
				correct = "错"
			}
		}
		row = append(row, answer, correct)
	}
	return row
}

// sanitizeFilename 去掉文件名中的路径分隔与保留字符
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	cleaned := strings.TrimSpace(replacer.Replace(name))
	if cleaned == "" {
		return "assessment"
	}
	return cleaned
}
