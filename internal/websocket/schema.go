package websocket

import "github.com/stemsi/lms-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records the answer to one question. For mcq questions the
// answer is the chosen option index.
type AnswerRequest struct {
	Action        Action `json:"action"`
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventSnapshot    Event = "snapshot"
	EventViewUpdated Event = "view_updated"
	EventStarted     Event = "started"
	EventTick        Event = "tick"
	EventAnswered    Event = "answered"
	EventSubmitted   Event = "submitted"
	EventError       Event = "error"
	EventPong        Event = "pong"
	// EventResync tells the client its list may be stale; it should
	// reconnect for a fresh snapshot.
	EventResync Event = "resync"
)

// ExamListResponse carries a student's visible exams, as the initial
// snapshot or after a change.
type ExamListResponse struct {
	Event Event               `json:"event"`
	Exams []model.StudentExam `json:"exams"`
}

type StartedResponse struct {
	Event     Event             `json:"event"`
	AttemptID string            `json:"attempt_id"`
	Exam      model.StudentExam `json:"exam"`
	Remaining int               `json:"remaining_seconds"`
}

type TickResponse struct {
	Event     Event `json:"event"`
	Remaining int   `json:"remaining_seconds"`
}

type AnsweredResponse struct {
	Event         Event `json:"event"`
	QuestionIndex int   `json:"question_index"`
}

type SubmittedResponse struct {
	Event         Event              `json:"event"`
	Reason        model.SubmitReason `json:"reason"`
	Score         int                `json:"score"`
	MaxScore      int                `json:"max_score"`
	PendingReview int                `json:"pending_review"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type ResyncResponse struct {
	Event Event `json:"event"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
