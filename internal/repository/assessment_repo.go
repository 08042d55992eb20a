package repository

import (
	"context"

	"gorm.io/gorm"

	"examportal/internal/model"
)

// AssessmentRepository 考核数据访问接口
type AssessmentRepository interface {
	Create(ctx context.Context, assessment *model.Assessment) error
	GetByID(ctx context.Context, id string) (*model.Assessment, error)
	ListByCreator(ctx context.Context, teacherID string) ([]model.Assessment, error)
	ListBySuperTeacher(ctx context.Context) ([]model.Assessment, error)
	List(ctx context.Context) ([]model.Assessment, error)
	Update(ctx context.Context, assessment *model.Assessment) error
	ReplaceQuestions(ctx context.Context, assessmentID string, questions []model.Question) error
	Delete(ctx context.Context, id string) error
}

// assessmentRepo AssessmentRepository 的 GORM 实现
type assessmentRepo struct {
	db *gorm.DB
}

// NewAssessmentRepo 创建 AssessmentRepository 实例
func NewAssessmentRepo(db *gorm.DB) AssessmentRepository {
	return &assessmentRepo{db: db}
}

func (r *assessmentRepo) Create(ctx context.Context, assessment *model.Assessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *assessmentRepo) GetByID(ctx context.Context, id string) (*model.Assessment, error) {
	var assessment model.Assessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("assessment_id = ?", id).
		First(&assessment).Error
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepo) ListByCreator(ctx context.Context, teacherID string) ([]model.Assessment, error) {
	var assessments []model.Assessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("created_by = ?", teacherID).
		Order("created_at ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

// ListBySuperTeacher 超级教师创建的全局可见考核
func (r *assessmentRepo) ListBySuperTeacher(ctx context.Context) ([]model.Assessment, error) {
	var assessments []model.Assessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("created_by_super_teacher = ?", true).
		Order("created_at ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepo) List(ctx context.Context) ([]model.Assessment, error) {
	var assessments []model.Assessment
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *assessmentRepo) Update(ctx context.Context, assessment *model.Assessment) error {
	return r.db.WithContext(ctx).
		Omit("Questions").
		Save(assessment).Error
}

// ReplaceQuestions 整体替换题目列表（题库编辑保存）
func (r *assessmentRepo) ReplaceQuestions(ctx context.Context, assessmentID string, questions []model.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("assessment_id = ?", assessmentID).
			Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if len(questions) == 0 {
			return nil
		}
		return tx.Create(&questions).Error
	})
}

func (r *assessmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("assessment_id = ?", id).
		Delete(&model.Assessment{}).Error
}
