package router

import (
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/handler"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/middleware"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Exam     *handler.ExamHandler
	Delivery *handler.DeliveryHandler
	WS       *handler.WSHandler
	System   *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID middleware runs globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", handlers.System.Health)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Generation hits a paid upstream; keep it tight (5 per minute per IP).
	generateLimiter := middleware.NewRateLimiter(5, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Authoring Group (Teacher JWT) ──────────────────────────────
	exams := router.Group("/api/v1/exams")
	exams.Use(middleware.RequireTeacherJWT(authService))
	{
		exams.GET("", handlers.Exam.ListExams)
		exams.POST("", handlers.Exam.CreateExam)
		exams.POST("/generate", generateLimiter.Middleware(), handlers.Exam.GenerateExam)
		exams.GET("/:exam_id", handlers.Exam.GetExam)
		exams.PUT("/:exam_id", handlers.Exam.UpdateExam)
		exams.DELETE("/:exam_id", handlers.Exam.DeleteExam)
		exams.POST("/:exam_id/publish", handlers.Exam.PublishExam)
		exams.POST("/:exam_id/unpublish", handlers.Exam.UnpublishExam)
		exams.GET("/:exam_id/stats", handlers.Exam.ExamStats)
		exams.GET("/:exam_id/results", handlers.Exam.ExamResults)

		exams.POST("/:exam_id/questions", handlers.Exam.AddQuestion)
		exams.POST("/:exam_id/questions/reorder", handlers.Exam.ReorderQuestion)
		exams.POST("/:exam_id/questions/:index/duplicate", handlers.Exam.DuplicateQuestion)
		exams.DELETE("/:exam_id/questions/:index", handlers.Exam.RemoveQuestion)
	}

	// ─── 3. Delivery Group (Student JWT) ───────────────────────────────
	delivery := router.Group("/api/v1/delivery")
	delivery.Use(middleware.RequireStudentJWT(authService))
	{
		delivery.GET("/exams", handlers.Delivery.ListAvailable)
		delivery.POST("/exams/:exam_id/start", handlers.Delivery.StartAttempt)
		delivery.GET("/exams/:exam_id/paper", handlers.Delivery.GetPaper)
		delivery.GET("/exams/:exam_id/state", handlers.Delivery.GetState)
		delivery.POST("/exams/:exam_id/submit", handlers.Delivery.SubmitAttempt)
		delivery.GET("/exams/:exam_id/result", handlers.Delivery.GetResult)
		delivery.POST("/exams/:exam_id/retake", handlers.Delivery.RetakeAttempt)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/exams/:exam_id/stream", handlers.WS.ExamStream)
	}

	return router
}
