package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"examportal/internal/dto"
	"examportal/internal/proctor"
	"examportal/internal/service"
	"examportal/pkg/response"
)

// SubmissionHandler 提交与评分模块 HTTP 处理器
type SubmissionHandler struct {
	submissionSvc service.SubmissionService
	proctorMgr    *proctor.Manager
}

// NewSubmissionHandler 创建 SubmissionHandler
func NewSubmissionHandler(submissionSvc service.SubmissionService, proctorMgr *proctor.Manager) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc, proctorMgr: proctorMgr}
}

// Submit 学生交卷
// POST /api/v1/assessments/:id/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assessmentID := c.Param("id")
	result, err := h.submissionSvc.Submit(c.Request.Context(), assessmentID, studentID, &req)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}

	// 正常交卷后收尾监考会话，避免 Tick 兜底重复触发
	h.proctorMgr.Complete(assessmentID, studentID)

	response.OK(c, result)
}

// SaveDraft 暂存作答
// PUT /api/v1/assessments/:id/draft
func (h *SubmissionHandler) SaveDraft(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.submissionSvc.SaveDraft(c.Request.Context(), c.Param("id"), studentID, &req)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}
	response.OK(c, result)
}

// Eligibility 学生可答性检查
// GET /api/v1/assessments/:id/eligibility
func (h *SubmissionHandler) Eligibility(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.submissionSvc.Eligibility(c.Request.Context(), c.Param("id"), studentID, time.Now())
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}
	response.OK(c, result)
}

// GetOwnSubmission 学生查看自己的提交
// GET /api/v1/assessments/:id/submissions/me
func (h *SubmissionHandler) GetOwnSubmission(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	submission, err := h.submissionSvc.GetOwn(c.Request.Context(), c.Param("id"), studentID)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}
	response.OK(c, submission)
}

// ListSubmissions 教师查看考核的全部提交
// GET /api/v1/assessments/:id/submissions
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	submissions, err := h.submissionSvc.ListByAssessment(c.Request.Context(), c.Param("id"), callerID, callerRole)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}
	response.OK(c, submissions)
}

// AwardMarks 教师评分
// PUT /api/v1/submissions/:id/marks
func (h *SubmissionHandler) AwardMarks(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	var req dto.AwardMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	submission, err := h.submissionSvc.AwardMarks(c.Request.Context(), c.Param("id"), req.Marks, callerID, callerRole)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}
	response.OK(c, submission)
}

// Scores 管理员成绩总览
// GET /api/v1/scores
func (h *SubmissionHandler) Scores(c *gin.Context) {
	scores, err := h.submissionSvc.Scores(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, scores)
}

func (h *SubmissionHandler) handleSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, 15001, "提交记录不存在")
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Conflict(c, 15002, "该考核已完成提交")
	case errors.Is(err, service.ErrAssessmentNotActive):
		response.Error(c, http.StatusForbidden, 15003, "考核不在活动窗口内")
	case errors.Is(err, service.ErrMarksOutOfRange):
		response.BadRequest(c, 15004, "评分超出允许范围")
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.NotFound(c, 14001, "考核不存在")
	case errors.Is(err, service.ErrNotAssessmentOwner):
		response.Forbidden(c, 14002, "只能操作自己创建的考核")
	case errors.Is(err, service.ErrAssessmentHasNoView):
		response.Forbidden(c, 14003, "无权查看该考核")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13002, "学生不存在")
	case errors.Is(err, service.ErrBadDateTime):
		response.BadRequest(c, 14004, "考核起止时刻不合法")
	default:
		response.InternalError(c)
	}
}
