package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"examportal/internal/dto"
	"examportal/internal/service"
	"examportal/pkg/response"
)

// UserHandler 教师管理模块 HTTP 处理器（仅管理员路由可达）
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateTeacher 创建教师
// POST /api/v1/teachers
func (h *UserHandler) CreateTeacher(c *gin.Context) {
	var req dto.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teacher, err := h.userSvc.CreateTeacher(c.Request.Context(), &req)
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}
	response.Created(c, teacher)
}

// ListTeachers 教师列表
// GET /api/v1/teachers
func (h *UserHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.userSvc.ListTeachers(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, teachers)
}

// GetTeacher 教师详情
// GET /api/v1/teachers/:id
func (h *UserHandler) GetTeacher(c *gin.Context) {
	teacher, err := h.userSvc.GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}
	response.OK(c, teacher)
}

// DeleteTeacher 删除教师
// DELETE /api/v1/teachers/:id
// 请求体可选携带 new_teacher_id：删除前先转移名下学生
func (h *UserHandler) DeleteTeacher(c *gin.Context) {
	var req dto.DeleteTeacherRequest
	// 请求体允许为空
	_ = c.ShouldBindJSON(&req)

	if err := h.userSvc.DeleteTeacher(c.Request.Context(), c.Param("id"), req.NewTeacherID); err != nil {
		h.handleTeacherError(c, err)
		return
	}
	response.OK(c, nil)
}

// ToggleSuperTeacher 切换超级教师标记
// PUT /api/v1/teachers/:id/super
func (h *UserHandler) ToggleSuperTeacher(c *gin.Context) {
	teacher, err := h.userSvc.ToggleSuperTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}
	response.OK(c, teacher)
}

// ReassignStudents 批量转移学生
// POST /api/v1/teachers/reassign-students
func (h *UserHandler) ReassignStudents(c *gin.Context) {
	var req dto.ReassignStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	moved, err := h.userSvc.ReassignStudents(c.Request.Context(), &req)
	if err != nil {
		h.handleTeacherError(c, err)
		return
	}
	response.OK(c, dto.ReassignStudentsResponse{Reassigned: moved})
}

func (h *UserHandler) handleTeacherError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 12001, "邮箱已被占用")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 12002, "教师不存在")
	case errors.Is(err, service.ErrSuperTeacherExists):
		response.Conflict(c, 12003, "超级教师已存在")
	case errors.Is(err, service.ErrReassignSameTarget):
		response.BadRequest(c, 12004, "转移目标不能与来源相同")
	default:
		response.InternalError(c)
	}
}
