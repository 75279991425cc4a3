package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/handler"
	"github.com/stemsi/lms-backend/internal/middleware"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Exam    *handler.ExamHandler
	Result  *handler.ResultHandler
	Student *handler.StudentHandler
	WS      *handler.WSHandler
	Metrics *handler.MetricsHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by middleware such as the rate limiter.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	metrics *service.MetricsService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.GinMode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Metrics(metrics))

	// Health check and Prometheus scrape endpoint.
	router.GET("/health", handlers.Metrics.Health)
	router.GET("/metrics", handlers.Metrics.Prometheus)

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)
	}

	// ─── 2. Instructor Group (JWT) ─────────────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(
		middleware.RequireInstructorJWT(authService),
		middleware.NoStore(),
		middleware.Brotli(),
	)
	{
		instructorAPI.GET("/exams", handlers.Exam.ListExams)
		instructorAPI.POST("/exams", handlers.Exam.CreateExam)
		instructorAPI.GET("/exams/:id", handlers.Exam.GetExam)
		instructorAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		instructorAPI.DELETE("/exams/:id", handlers.Exam.DeleteExam)
		instructorAPI.POST("/exams/:id/publish", handlers.Exam.PublishExam)
		instructorAPI.POST("/exams/:id/unpublish", handlers.Exam.UnpublishExam)
		instructorAPI.POST("/exams/:id/complete", handlers.Exam.CompleteExam)
		instructorAPI.GET("/exams/:id/results", handlers.Result.GetResults)
	}

	// ─── 3. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.NoStore(),
		middleware.Brotli(),
	)
	{
		studentAPI.GET("/me", handlers.Student.GetProfile)
		studentAPI.GET("/exams", handlers.Student.ListExams)
	}

	// ─── 4. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/exams/feed", handlers.WS.ExamFeed)
		ws.GET("/student/exams/:id/attempt", handlers.WS.ExamAttempt)
	}

	return router
}
