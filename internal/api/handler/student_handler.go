package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"examportal/internal/dto"
	"examportal/internal/service"
	"examportal/pkg/response"
)

// StudentHandler 学生管理模块 HTTP 处理器
type StudentHandler struct {
	studentSvc service.StudentService
}

// NewStudentHandler 创建 StudentHandler
func NewStudentHandler(studentSvc service.StudentService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc}
}

// CreateStudent 创建学生（归属教师 = 调用者）
// POST /api/v1/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	teacherID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	student, err := h.studentSvc.CreateStudent(c.Request.Context(), &req, teacherID)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}
	response.Created(c, student)
}

// ListStudents 学生列表（教师见名下，管理员见全部）
// GET /api/v1/students
func (h *StudentHandler) ListStudents(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	students, err := h.studentSvc.ListStudents(c.Request.Context(), callerID, callerRole)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, students)
}

// GetStudent 学生详情
// GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	student, err := h.studentSvc.GetStudent(c.Request.Context(), c.Param("id"), callerID, callerRole)
	if err != nil {
		h.handleStudentError(c, err)
		return
	}
	response.OK(c, student)
}

// DeleteStudent 删除学生（级联清理其提交）
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	callerRole, ok := MustGetRole(c)
	if !ok {
		return
	}

	if err := h.studentSvc.DeleteStudent(c.Request.Context(), c.Param("id"), callerID, callerRole); err != nil {
		h.handleStudentError(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *StudentHandler) handleStudentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 13001, "邮箱已被占用")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 13002, "学生不存在")
	case errors.Is(err, service.ErrNotStudentOwner):
		response.Forbidden(c, 13003, "只能操作自己名下的学生")
	default:
		response.InternalError(c)
	}
}
