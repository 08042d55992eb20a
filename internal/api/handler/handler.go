package handler

import (
	"examportal/internal/proctor"
	"examportal/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Student    *StudentHandler
	Assessment *AssessmentHandler
	Submission *SubmissionHandler
	Proctor    *ProctorHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, proctorMgr *proctor.Manager) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Student:    NewStudentHandler(svc.Student),
		Assessment: NewAssessmentHandler(svc.Assessment, svc.Export),
		Submission: NewSubmissionHandler(svc.Submission, proctorMgr),
		Proctor:    NewProctorHandler(svc.Assessment, proctorMgr),
	}
}
