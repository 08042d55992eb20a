package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"examportal/config"
	"examportal/internal/api/handler"
	"examportal/internal/api/middleware"
	"examportal/internal/model"
	"examportal/pkg/jwt"
	"examportal/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
//
// 授权矩阵：
//   - /teachers/*        仅管理员
//   - /students/*        教师（名下）与管理员
//   - /assessments 写    教师；删除额外放行管理员
//   - 交卷/监考          仅学生
//   - /scores            仅管理员
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		v1.POST("/auth/login", h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)

			// 教师管理模块（仅管理员）
			teachers := authorized.Group("/teachers", middleware.RoleAuth(model.RoleAdmin))
			{
				teachers.GET("", h.User.ListTeachers)
				teachers.POST("", h.User.CreateTeacher)
				teachers.GET("/:id", h.User.GetTeacher)
				teachers.DELETE("/:id", h.User.DeleteTeacher)
				teachers.PUT("/:id/super", h.User.ToggleSuperTeacher)
				teachers.POST("/reassign-students", h.User.ReassignStudents)
			}

			// 学生管理模块
			students := authorized.Group("/students")
			{
				students.GET("", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Student.ListStudents)
				students.POST("", middleware.RoleAuth(model.RoleTeacher), h.Student.CreateStudent)
				students.GET("/:id", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Student.GetStudent)
				students.DELETE("/:id", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Student.DeleteStudent)
			}

			// 考核模块
			assessments := authorized.Group("/assessments")
			{
				assessments.GET("", h.Assessment.ListAssessments)
				assessments.GET("/:id", h.Assessment.GetAssessment)
				assessments.GET("/:id/status", h.Assessment.GetAssessmentStatus)
				assessments.POST("", middleware.RoleAuth(model.RoleTeacher), h.Assessment.CreateAssessment)
				assessments.PUT("/:id", middleware.RoleAuth(model.RoleTeacher), h.Assessment.UpdateAssessment)
				assessments.DELETE("/:id", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Assessment.DeleteAssessment)
				assessments.POST("/import", middleware.RoleAuth(model.RoleTeacher), h.Assessment.ImportAssessment)
				assessments.GET("/:id/export", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Assessment.ExportResults)

				// 提交模块
				assessments.GET("/:id/eligibility", middleware.RoleAuth(model.RoleStudent), h.Submission.Eligibility)
				assessments.POST("/:id/submissions", middleware.RoleAuth(model.RoleStudent), h.Submission.Submit)
				assessments.PUT("/:id/draft", middleware.RoleAuth(model.RoleStudent), h.Submission.SaveDraft)
				assessments.GET("/:id/submissions/me", middleware.RoleAuth(model.RoleStudent), h.Submission.GetOwnSubmission)
				assessments.GET("/:id/submissions", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Submission.ListSubmissions)

				// 监考会话（仅学生）
				proctorGroup := assessments.Group("/:id/proctor", middleware.RoleAuth(model.RoleStudent))
				{
					proctorGroup.POST("/start", h.Proctor.StartSession)
					proctorGroup.POST("/events", h.Proctor.ReportEvent)
					proctorGroup.GET("", h.Proctor.GetSession)
				}
			}

			// 评分与成绩
			authorized.PUT("/submissions/:id/marks", middleware.RoleAuth(model.RoleTeacher, model.RoleAdmin), h.Submission.AwardMarks)
			authorized.GET("/scores", middleware.RoleAuth(model.RoleAdmin), h.Submission.Scores)
		}
	}

	return r
}
