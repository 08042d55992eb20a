package repository

import (
	"context"

	"gorm.io/gorm"

	"examportal/internal/model"
)

// SubmissionRepository 提交数据访问接口
type SubmissionRepository interface {
	Create(ctx context.Context, submission *model.Submission) error
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	GetByAssessmentAndStudent(ctx context.Context, assessmentID, studentID string) (*model.Submission, error)
	ListByAssessment(ctx context.Context, assessmentID string) ([]model.Submission, error)
	List(ctx context.Context) ([]model.Submission, error)
	Update(ctx context.Context, submission *model.Submission) error
	ReplaceAnswers(ctx context.Context, submissionID string, answers []model.Answer) error
	DeleteByStudent(ctx context.Context, studentID string) error
	DeleteByAssessment(ctx context.Context, assessmentID string) error
}

// submissionRepo SubmissionRepository 的 GORM 实现
type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Where("submission_id = ?", id).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

// GetByAssessmentAndStudent 按唯一键 (assessment_id, student_id) 查找
func (r *submissionRepo) GetByAssessmentAndStudent(ctx context.Context, assessmentID, studentID string) (*model.Submission, error) {
	var submission model.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Where("assessment_id = ? AND student_id = ?", assessmentID, studentID).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *submissionRepo) ListByAssessment(ctx context.Context, assessmentID string) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Where("assessment_id = ?", assessmentID).
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepo) List(ctx context.Context) ([]model.Submission, error) {
	var submissions []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Answers").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepo) Update(ctx context.Context, submission *model.Submission) error {
	return r.db.WithContext(ctx).
		Omit("Answers").
		Save(submission).Error
}

// ReplaceAnswers 整体替换作答内容（重复提交原地更新）
func (r *submissionRepo) ReplaceAnswers(ctx context.Context, submissionID string, answers []model.Answer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", submissionID).
			Delete(&model.Answer{}).Error; err != nil {
			return err
		}
		if len(answers) == 0 {
			return nil
		}
		return tx.Create(&answers).Error
	})
}

// DeleteByStudent 删除学生时级联清理其全部提交
func (r *submissionRepo) DeleteByStudent(ctx context.Context, studentID string) error {
	return r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Delete(&model.Submission{}).Error
}

// DeleteByAssessment 删除考核时级联清理其全部提交
func (r *submissionRepo) DeleteByAssessment(ctx context.Context, assessmentID string) error {
	return r.db.WithContext(ctx).
		Where("assessment_id = ?", assessmentID).
		Delete(&model.Submission{}).Error
}
