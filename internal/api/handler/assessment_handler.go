package handler

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"examportal/internal/dto"
	"examportal/internal/model"
	"examportal/internal/service"
	"examportal/pkg/response"
)

// 导入文件大小上限
const maxImportFileSize = 5 << 20

// AssessmentHandler 考核模块 HTTP 处理器
type AssessmentHandler struct {
	assessmentSvc service.AssessmentService
	exportSvc     service.ExportService
}

// NewAssessmentHandler 创建 AssessmentHandler
func NewAssessmentHandler(assessmentSvc service.AssessmentService, exportSvc service.ExportService) *AssessmentHandler {
	return &AssessmentHandler{assessmentSvc: assessmentSvc, exportSvc: exportSvc}
}

// CreateAssessment 创建考核
// POST /api/v1/assessments
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	creatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assessment, err := h.assessmentSvc.Create(c.Request.Context(), &req, creatorID)
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.Created(c, assessment)
}

// ListAssessments 按角色返回可见考核
// GET /api/v1/assessments
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	var (
		assessments []model.Assessment
		err         error
	)
	switch callerRole {
	case model.RoleAdmin:
		assessments, err = h.assessmentSvc.ListAll(c.Request.Context())
	case model.RoleStudent:
		assessments, err = h.assessmentSvc.ListForStudent(c.Request.Context(), callerID)
	default:
		assessments, err = h.assessmentSvc.ListForTeacher(c.Request.Context(), callerID)
	}
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.OK(c, assessments)
}

// GetAssessment 考核详情
// GET /api/v1/assessments/:id
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentSvc.Get(c.Request.Context(), c.Param("id"), callerID, callerRole)
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}

	// 学生端隐藏标准答案
	if callerRole == model.RoleStudent {
		for i := range assessment.Questions {
			assessment.Questions[i].CorrectAnswer = ""
		}
	}
	response.OK(c, assessment)
}

// UpdateAssessment 编辑考核（整体替换）
// PUT /api/v1/assessments/:id
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	assessment, err := h.assessmentSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.OK(c, assessment)
}

// DeleteAssessment 删除考核（级联清理提交）
// DELETE /api/v1/assessments/:id
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.assessmentSvc.Delete(c.Request.Context(), c.Param("id"), callerID, callerRole); err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetAssessmentStatus 考核活动窗口状态
// GET /api/v1/assessments/:id/status
func (h *AssessmentHandler) GetAssessmentStatus(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	status, err := h.assessmentSvc.Status(c.Request.Context(), c.Param("id"), callerID, callerRole, time.Now())
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.OK(c, status)
}

// ImportAssessment 从 Excel 导入考核
// POST /api/v1/assessments/import  (multipart: file)
func (h *AssessmentHandler) ImportAssessment(c *gin.Context) {
	creatorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 10001, "缺少上传文件")
		return
	}
	if fileHeader.Size > maxImportFileSize {
		response.BadRequest(c, 14006, "上传文件过大")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 10001, "无法读取上传文件")
		return
	}
	defer file.Close()

	req, err := h.assessmentSvc.ParseImportFile(file)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 14005, "导入文件解析失败", err.Error())
		return
	}

	assessment, err := h.assessmentSvc.Create(c.Request.Context(), req, creatorID)
	if err != nil {
		h.handleAssessmentError(c, err)
		return
	}
	response.Created(c, assessment)
}

// ExportResults 导出考核成绩单
// GET /api/v1/assessments/:id/export
func (h *AssessmentHandler) ExportResults(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportResults(c.Request.Context(), c.Param("id"), callerID, callerRole)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *AssessmentHandler) handleAssessmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.NotFound(c, 14001, "考核不存在")
	case errors.Is(err, service.ErrNotAssessmentOwner):
		response.Forbidden(c, 14002, "只能操作自己创建的考核")
	case errors.Is(err, service.ErrAssessmentNoAccess),
		errors.Is(err, service.ErrAssessmentHasNoView):
		response.Forbidden(c, 14003, "无权查看该考核")
	case errors.Is(err, service.ErrDueBeforeStart),
		errors.Is(err, service.ErrBadDateTime),
		errors.Is(err, service.ErrChoiceNeedsOptions),
		errors.Is(err, service.ErrChoiceBadOption),
		errors.Is(err, service.ErrChoiceBadAnswer):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14004, "考核内容不合法", err.Error())
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13002, "学生不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 12002, "教师不存在")
	default:
		response.InternalError(c)
	}
}

func (h *AssessmentHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssessmentNotFound):
		response.NotFound(c, 14001, "考核不存在")
	case errors.Is(err, service.ErrNotAssessmentOwner):
		response.Forbidden(c, 14002, "只能操作自己创建的考核")
	case errors.Is(err, service.ErrExportNoStudents):
		response.BadRequest(c, 16101, "该考核没有可导出的学生")
	default:
		response.InternalError(c)
	}
}
