package dto

// ── 考核模块 DTO ──

// QuestionPayload 题目载荷（创建/编辑共用）
// 选择题要求 Options 至少两项且 CorrectAnswer 必须命中其一，由服务层校验
type QuestionPayload struct {
	Text          string   `json:"text"           binding:"required"`
	Type          string   `json:"type"           binding:"required,oneof=text multiple-choice"`
	Marks         int      `json:"marks"          binding:"required,min=1"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
}

// CreateAssessmentRequest 创建考核请求
type CreateAssessmentRequest struct {
	Title       string            `json:"title"       binding:"required,max=255"`
	Description string            `json:"description"`
	StartDate   string            `json:"start_date"  binding:"required,datetime=2006-01-02"`
	StartTime   string            `json:"start_time"  binding:"required,datetime=15:04"`
	DueDate     string            `json:"due_date"    binding:"required,datetime=2006-01-02"`
	DueTime     string            `json:"due_time"    binding:"required,datetime=15:04"`
	Questions   []QuestionPayload `json:"questions"   binding:"required,min=1,dive"`
}

// UpdateAssessmentRequest 编辑考核请求（整体替换语义）
type UpdateAssessmentRequest struct {
	Title       string            `json:"title"       binding:"required,max=255"`
	Description string            `json:"description"`
	StartDate   string            `json:"start_date"  binding:"required,datetime=2006-01-02"`
	StartTime   string            `json:"start_time"  binding:"required,datetime=15:04"`
	DueDate     string            `json:"due_date"    binding:"required,datetime=2006-01-02"`
	DueTime     string            `json:"due_time"    binding:"required,datetime=15:04"`
	Questions   []QuestionPayload `json:"questions"   binding:"required,min=1,dive"`
}

// AssessmentStatusResponse 考核当前状态
type AssessmentStatusResponse struct {
	AssessmentID string `json:"assessment_id"`
	Active       bool   `json:"active"`
	Upcoming     bool   `json:"upcoming"`
	Expired      bool   `json:"expired"`
}
