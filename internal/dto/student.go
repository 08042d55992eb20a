package dto

// ── 学生管理 DTO ──

// CreateStudentRequest 创建学生请求（归属教师 = 调用者）
type CreateStudentRequest struct {
	Name     string `json:"name"     binding:"required,min=2,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}
