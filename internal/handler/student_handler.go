package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/middleware"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
)

// StudentHandler serves the student portal.
type StudentHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(examService *service.ExamService, log zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		examService: examService,
		log:         log.With().Str("component", "student_handler").Logger(),
	}
}

// GetProfile godoc
// GET /api/v1/student/me
// Returns the section and batch the session resolves to.
func (h *StudentHandler) GetProfile(c *gin.Context) {
	profile := middleware.GetStudentProfile(c)
	if profile == nil {
		response.Fail(c, http.StatusForbidden, response.ErrProfileUnavailable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"profile": profile})
}

// ListExams godoc
// GET /api/v1/student/exams
// Lists the published exams targeted at the authenticated student.
func (h *StudentHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.ListVisible(c.Request.Context(), middleware.GetStudentProfile(c))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	out := make([]model.StudentExam, len(exams))
	for i := range exams {
		out[i] = exams[i].ForStudent()
	}

	response.Success(c, http.StatusOK, gin.H{"exams": out})
}
