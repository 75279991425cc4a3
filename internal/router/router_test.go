package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/config"
	"github.com/stemsi/lms-backend/internal/handler"
	"github.com/stemsi/lms-backend/internal/repository"
	"github.com/stemsi/lms-backend/internal/service"
	"github.com/stemsi/lms-backend/internal/validator"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	validator.Setup()

	log := zerolog.Nop()
	cfg := &config.Config{GinMode: gin.TestMode, JWTSecret: "router-secret", JWTExpiry: time.Hour}
	metrics := service.NewMetricsService()

	accounts := repository.NewMemoryAccountRepository()
	auth := service.NewAuthService(cfg, accounts, log)
	exams := service.NewExamService(
		repository.NewMemoryExamRepository(),
		repository.NewMemoryPublishedRepository(),
		accounts,
		broadcast.NewLocalBus(4, nil, log),
		metrics,
		log,
	)
	attempts := service.NewAttemptService(exams, repository.NewMemoryResultQueue(4), metrics, log)
	results := service.NewResultService(exams, repository.NewMemoryResultRepository(), log)

	handlers := &Handlers{
		Auth:    handler.NewAuthHandler(auth, log),
		Exam:    handler.NewExamHandler(exams, log),
		Result:  handler.NewResultHandler(results, log),
		Student: handler.NewStudentHandler(exams, log),
		WS:      handler.NewWSHandler(exams, attempts, metrics, log, nil),
		Metrics: handler.NewMetricsHandler(metrics),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return SetupRouter(ctx, auth, metrics, handlers, cfg)
}

func TestSetupRouter(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK},
		{"instructor needs token", http.MethodGet, "/api/v1/instructor/exams", http.StatusUnauthorized},
		{"results need token", http.MethodGet, "/api/v1/instructor/exams/x/results", http.StatusUnauthorized},
		{"student needs token", http.MethodGet, "/api/v1/student/exams", http.StatusUnauthorized},
		{"feed needs token", http.MethodGet, "/ws/v1/student/exams/feed", http.StatusUnauthorized},
		{"login validates body", http.MethodPost, "/api/v1/auth/login", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetupRouterKeepsClientRequestID(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "trace-42", w.Header().Get("X-Request-ID"))
}
