package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
	"github.com/stemsi/lms-backend/internal/validator"
)

// ExamHandler handles instructor exam management endpoints.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/instructor/exams
// Lists every exam in creation order.
func (h *ExamHandler) ListExams(c *gin.Context) {
	exams, err := h.examService.List(c.Request.Context())
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// CreateExam godoc
// POST /api/v1/instructor/exams
// Creates a new draft exam.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.ExamDraft
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Created(c, gin.H{"exam": exam})
}

// GetExam godoc
// GET /api/v1/instructor/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Get(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/instructor/exams/:id
// Replaces the fields of a draft exam.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	var req model.ExamDraft
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, &req)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/instructor/exams/:id
// Deletes an exam and withdraws it from every open student view.
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// PublishExam godoc
// POST /api/v1/instructor/exams/:id/publish
// Validates the exam and makes it visible to the targeted students.
func (h *ExamHandler) PublishExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Publish(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// UnpublishExam godoc
// POST /api/v1/instructor/exams/:id/unpublish
// Returns the exam to draft.
func (h *ExamHandler) UnpublishExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	if err := h.examService.Unpublish(c.Request.Context(), id); err != nil {
		failWithError(c, h.log, err)
		return
	}

	exam, err := h.examService.Get(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CompleteExam godoc
// POST /api/v1/instructor/exams/:id/complete
// Closes a published exam.
func (h *ExamHandler) CompleteExam(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	exam, err := h.examService.Complete(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}
