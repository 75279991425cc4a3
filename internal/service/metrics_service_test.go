package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/lms-backend/internal/broadcast"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceExposesCounters(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 5*time.Millisecond)
	m.ExamEvent(broadcast.KindExamPublished)
	m.EventDropped(broadcast.ExamDeleted(uuid.New()))
	m.AttemptSubmitted(model.SubmitReasonTimeout)
	m.ResultsPersisted(3)
	m.ViewOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, body, `exam_events_total{kind="exam.published"} 1`)
	assert.Contains(t, body, `exam_events_dropped_total{kind="exam.deleted"} 1`)
	assert.Contains(t, body, `attempt_submissions_total{reason="timeout"} 1`)
	assert.Contains(t, body, `attempt_results_persisted_total 3`)
	assert.Contains(t, body, `student_views_active 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ExamEvent(broadcast.KindExamDeleted)
		m.ViewOpened()
		m.ViewClosed()
		m.ResultsPersisted(1)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
