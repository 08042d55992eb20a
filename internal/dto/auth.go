package dto

// ── 认证模块 DTO ──

// LoginRequest 登录请求
// Role 指定期望身份：同一邮箱不会跨角色匹配
type LoginRequest struct {
	Email      string `json:"email"       binding:"required,email"`
	Password   string `json:"password"    binding:"required"`
	Role       string `json:"role"        binding:"required,oneof=admin teacher student"`
	RememberMe bool   `json:"remember_me"`
}

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// UserResponse 当前会话身份（脱敏）
type UserResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	Department     *string `json:"department,omitempty"`
	IsSuperTeacher bool    `json:"is_super_teacher,omitempty"`
	CreatedBy      string  `json:"created_by,omitempty"` // 学生身份的归属教师
}
