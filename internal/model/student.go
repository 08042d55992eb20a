package model

import "time"

// Student 学生表 — 对应 students
// CreatedBy 为归属教师，学生存续期间恒非空；批量转移时整体改写
type Student struct {
	StudentID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	CreatedBy    string `gorm:"type:uuid;not null"                             json:"created_by"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// 关联
	Owner *User `gorm:"foreignKey:CreatedBy;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Student) TableName() string { return "students" }
