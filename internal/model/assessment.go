package model

import (
	"time"
)

// 题目类型
const (
	QuestionTypeText           = "text"
	QuestionTypeMultipleChoice = "multiple-choice"
)

// Question 题目表 — 对应 questions
// Position 保持题序；Options/CorrectAnswer 仅选择题使用
type Question struct {
	QuestionID    string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"     json:"question_id"`
	AssessmentID  string   `gorm:"type:uuid;not null;index"                           json:"assessment_id"`
	Position      int      `gorm:"not null"                                           json:"position"`
	Text          string   `gorm:"type:text;not null"                                 json:"text"`
	Type          string   `gorm:"type:varchar(20);not null"                          json:"type"`
	Marks         int      `gorm:"not null"                                           json:"marks"`
	Options       []string `gorm:"type:jsonb;serializer:json;not null;default:'[]'"   json:"options,omitempty"`
	CorrectAnswer string   `gorm:"type:text;not null;default:''"                      json:"correct_answer,omitempty"`
}

// TableName 指定表名
func (Question) TableName() string { return "questions" }

// Assessment 考核表 — 对应 assessments
// 起止时刻保持「日期 + 时间」两段字符串存储（与前端表单字段一一对应），
// 计算活动窗口时再合并解析
type Assessment struct {
	AssessmentID          string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assessment_id"`
	Title                 string `gorm:"type:varchar(255);not null"                     json:"title"`
	Description           string `gorm:"type:text;not null;default:''"                  json:"description"`
	CreatedBy             string `gorm:"type:uuid;not null;index"                       json:"created_by"`
	StartDate             string `gorm:"type:varchar(10);not null"                      json:"start_date"`
	StartTime             string `gorm:"type:varchar(5);not null"                       json:"start_time"`
	DueDate               string `gorm:"type:varchar(10);not null"                      json:"due_date"`
	DueTime               string `gorm:"type:varchar(5);not null"                       json:"due_time"`
	CreatedBySuperTeacher bool   `gorm:"not null;default:false"                         json:"created_by_super_teacher"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// 关联
	Questions []Question `gorm:"foreignKey:AssessmentID;references:AssessmentID" json:"questions,omitempty"`
}

// TableName 指定表名
func (Assessment) TableName() string { return "assessments" }

const dateTimeLayout = "2006-01-02T15:04"

// StartAt 合并解析开始时刻
func (a *Assessment) StartAt() (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, a.StartDate+"T"+a.StartTime, time.Local)
}

// DueAt 合并解析截止时刻
func (a *Assessment) DueAt() (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, a.DueDate+"T"+a.DueTime, time.Local)
}

// IsActiveAt 活动窗口判定：start ≤ now ≤ due（两端含）
func (a *Assessment) IsActiveAt(now time.Time) bool {
	start, err := a.StartAt()
	if err != nil {
		return false
	}
	due, err := a.DueAt()
	if err != nil {
		return false
	}
	return !now.Before(start) && !now.After(due)
}

// TotalMarks 全部题目总分
func (a *Assessment) TotalMarks() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Marks
	}
	return total
}

// TotalChoiceMarks 选择题总分
func (a *Assessment) TotalChoiceMarks() int {
	total := 0
	for _, q := range a.Questions {
		if q.Type == QuestionTypeMultipleChoice {
			total += q.Marks
		}
	}
	return total
}

// TotalTextMarks 简答题总分
func (a *Assessment) TotalTextMarks() int {
	total := 0
	for _, q := range a.Questions {
		if q.Type == QuestionTypeText {
			total += q.Marks
		}
	}
	return total
}
