package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
)

// ResultHandler serves persisted exam results to instructors.
type ResultHandler struct {
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewResultHandler creates a new ResultHandler.
func NewResultHandler(resultService *service.ResultService, log zerolog.Logger) *ResultHandler {
	return &ResultHandler{
		resultService: resultService,
		log:           log.With().Str("component", "result_handler").Logger(),
	}
}

// GetResults godoc
// GET /api/v1/instructor/exams/:id/results
// Returns the submitted attempts of an exam with aggregate scores.
func (h *ResultHandler) GetResults(c *gin.Context) {
	id, ok := parseExamID(c)
	if !ok {
		return
	}

	summary, err := h.resultService.Summary(c.Request.Context(), id)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"summary": summary})
}
