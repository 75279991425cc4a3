package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReason records what ended an attempt.
type SubmitReason string

const (
	SubmitReasonManual  SubmitReason = "manual"
	SubmitReasonTimeout SubmitReason = "timeout"
)

// AttemptResult is the graded, terminal submission of one attempt.
// Short answers are not auto-graded; they count towards PendingReview.
type AttemptResult struct {
	AttemptID     uuid.UUID      `json:"attempt_id"`
	ExamID        uuid.UUID      `json:"exam_id"`
	StudentID     uuid.UUID      `json:"student_id"`
	Answers       map[int]string `json:"answers"`
	Score         int            `json:"score"`
	MaxScore      int            `json:"max_score"`
	PendingReview int            `json:"pending_review"`
	Reason        SubmitReason   `json:"reason"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// ResultSummary aggregates the persisted results of one exam.
type ResultSummary struct {
	ExamID        uuid.UUID       `json:"exam_id"`
	Submissions   int             `json:"submissions"`
	Timeouts      int             `json:"timeouts"`
	AverageScore  float64         `json:"average_score"`
	MaxScore      int             `json:"max_score"`
	PendingReview int             `json:"pending_review"`
	Results       []AttemptResult `json:"results"`
}
