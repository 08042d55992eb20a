package dto

// ── 提交与评分 DTO ──

// AnswerPayload 单题作答
type AnswerPayload struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	Answer     string `json:"answer"`
}

// SubmitRequest 提交作答请求
// TabSwitched / ScreenSizeViolation 由监考上报，正常交卷均为 false
type SubmitRequest struct {
	Answers             []AnswerPayload `json:"answers"`
	TabSwitched         bool            `json:"tab_switched"`
	ScreenSizeViolation bool            `json:"screen_size_violation"`
}

// SaveDraftRequest 暂存作答请求（不触发判分）
type SaveDraftRequest struct {
	Answers []AnswerPayload `json:"answers"`
}

// SubmitResponse 提交结果
type SubmitResponse struct {
	SubmissionID    string `json:"submission_id"`
	Status          string `json:"status"` // completed / auto_submitted_tab_switch / auto_submitted_violation / draft
	AutoGradedMarks *int   `json:"auto_graded_marks,omitempty"`
	MarksAwarded    *int   `json:"marks_awarded,omitempty"`
}

// AwardMarksRequest 教师评分请求
type AwardMarksRequest struct {
	Marks int `json:"marks" binding:"min=0"`
}

// EligibilityResponse 学生可答性检查结果
type EligibilityResponse struct {
	CanTake bool   `json:"can_take"`
	Reason  string `json:"reason,omitempty"`
}
