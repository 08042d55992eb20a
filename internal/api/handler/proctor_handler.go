package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/proctor"
	"examportal/internal/service"
	"examportal/pkg/response"
)

// ProctorHandler 监考会话模块 HTTP 处理器
//
// 客户端在作答页面上报可见性/焦点/全屏/尺寸事件，
// 状态机结论（重进全屏、宽限倒计时、强制提交）随快照返回。
type ProctorHandler struct {
	assessmentSvc service.AssessmentService
	proctorMgr    *proctor.Manager
}

// NewProctorHandler 创建 ProctorHandler
func NewProctorHandler(assessmentSvc service.AssessmentService, proctorMgr *proctor.Manager) *ProctorHandler {
	return &ProctorHandler{assessmentSvc: assessmentSvc, proctorMgr: proctorMgr}
}

// StartSession 开始监考会话
// POST /api/v1/assessments/:id/proctor/start
func (h *ProctorHandler) StartSession(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assessmentID := c.Param("id")
	assessment, err := h.assessmentSvc.Get(c.Request.Context(), assessmentID, studentID, model.RoleStudent)
	if err != nil {
		h.handleProctorError(c, err)
		return
	}

	deadline, err := assessment.DueAt()
	if err != nil {
		response.BadRequest(c, 14004, "考核起止时刻不合法")
		return
	}

	snap, err := h.proctorMgr.Start(assessmentID, studentID, deadline, req.ScreenWidth, req.ScreenHeight)
	if err != nil {
		h.handleProctorError(c, err)
		return
	}
	response.Created(c, toSessionResponse(snap))
}

// ReportEvent 上报监考事件
// POST /api/v1/assessments/:id/proctor/events
func (h *ProctorHandler) ReportEvent(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ProctorEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	snap, err := h.proctorMgr.HandleEvent(
		c.Request.Context(),
		c.Param("id"),
		studentID,
		proctor.EventType(req.Type),
		req.ScreenWidth,
		req.ScreenHeight,
	)
	if err != nil {
		h.handleProctorError(c, err)
		return
	}
	response.OK(c, toSessionResponse(snap))
}

// GetSession 查询会话快照
// GET /api/v1/assessments/:id/proctor
func (h *ProctorHandler) GetSession(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	snap, err := h.proctorMgr.Get(c.Param("id"), studentID)
	if err != nil {
		h.handleProctorError(c, err)
		return
	}
	response.OK(c, toSessionResponse(snap))
}

func toSessionResponse(snap *proctor.Snapshot) dto.ProctorSessionResponse {
	return dto.ProctorSessionResponse{
		AssessmentID:         snap.AssessmentID,
		StudentID:            snap.StudentID,
		State:                string(snap.State),
		RemainingSeconds:     snap.RemainingSeconds,
		FullscreenRetryLeft:  snap.FullscreenRetryLeft,
		TabSwitched:          snap.TabSwitched,
		ScreenSizeViolation:  snap.Violation,
		ViolationGraceActive: snap.GraceActive,
		RequestFullscreen:    snap.RequestFullscreen,
	}
}

func (h *ProctorHandler) handleProctorError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, proctor.ErrSessionNotFound):
		response.NotFound(c, 17001, "监考会话不存在")
	case errors.Is(err, proctor.ErrSessionFinished):
		response.Conflict(c, 17002, "监考会话已结束")
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.NotFound(c, 14001, "考核不存在")
	case errors.Is(err, service.ErrAssessmentHasNoView),
		errors.Is(err, service.ErrAssessmentNoAccess):
		response.Forbidden(c, 14003, "无权查看该考核")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13002, "学生不存在")
	default:
		response.InternalError(c)
	}
}
