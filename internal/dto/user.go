package dto

// ── 教师管理 DTO（仅管理员） ──

// CreateTeacherRequest 创建教师请求
type CreateTeacherRequest struct {
	Name           string  `json:"name"             binding:"required,min=2,max=100"`
	Email          string  `json:"email"            binding:"required,email"`
	Password       string  `json:"password"         binding:"required,min=6"`
	Department     *string `json:"department"       binding:"omitempty,max=100"`
	IsSuperTeacher bool    `json:"is_super_teacher"`
}

// DeleteTeacherRequest 删除教师请求
// NewTeacherID 非空时先将名下学生转移给该教师
type DeleteTeacherRequest struct {
	NewTeacherID string `json:"new_teacher_id" binding:"omitempty,uuid"`
}

// ReassignStudentsRequest 批量转移学生请求
type ReassignStudentsRequest struct {
	FromTeacherID string `json:"from_teacher_id" binding:"required,uuid"`
	ToTeacherID   string `json:"to_teacher_id"   binding:"required,uuid"`
}

// ReassignStudentsResponse 批量转移结果
type ReassignStudentsResponse struct {
	Reassigned int64 `json:"reassigned"`
}
