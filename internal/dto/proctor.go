package dto

// ── 监考会话 DTO ──

// StartSessionRequest 开始作答（记录初始窗口尺寸作为基准）
type StartSessionRequest struct {
	ScreenWidth  int `json:"screen_width"  binding:"required,min=1"`
	ScreenHeight int `json:"screen_height" binding:"required,min=1"`
}

// ProctorEventRequest 监考事件上报
// Type 取值：visibility_hidden / window_blur / fullscreen_exit / resize / fullscreen_restored
type ProctorEventRequest struct {
	Type         string `json:"type" binding:"required,oneof=visibility_hidden window_blur fullscreen_exit resize fullscreen_restored"`
	ScreenWidth  int    `json:"screen_width"`
	ScreenHeight int    `json:"screen_height"`
}

// ProctorSessionResponse 会话快照
type ProctorSessionResponse struct {
	AssessmentID         string `json:"assessment_id"`
	StudentID            string `json:"student_id"`
	State                string `json:"state"`
	RemainingSeconds     int    `json:"remaining_seconds"`
	FullscreenRetryLeft  int    `json:"fullscreen_retry_left"`
	TabSwitched          bool   `json:"tab_switched"`
	ScreenSizeViolation  bool   `json:"screen_size_violation"`
	ViolationGraceActive bool   `json:"violation_grace_active"`
	RequestFullscreen    bool   `json:"request_fullscreen"`
}
