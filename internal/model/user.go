package model

import "time"

// 角色取值
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User 教师/管理员表 — 对应 users
// 学生单独建表（见 Student），登录时投影为 student 角色身份
type User struct {
	UserID         string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name           string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email          string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash   string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role           string  `gorm:"type:varchar(20);not null;default:'teacher'"    json:"role"`
	Department     *string `gorm:"type:varchar(100)"                              json:"department,omitempty"`
	IsSuperTeacher bool    `gorm:"not null;default:false"                         json:"is_super_teacher"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
