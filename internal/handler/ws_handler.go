package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/lms-backend/internal/middleware"
	"github.com/stemsi/lms-backend/internal/model"
	"github.com/stemsi/lms-backend/internal/response"
	"github.com/stemsi/lms-backend/internal/service"
	ws "github.com/stemsi/lms-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler serves the live exam feed and exam attempts over WebSocket.
type WSHandler struct {
	examService    *service.ExamService
	attemptService *service.AttemptService
	metrics        *service.MetricsService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
	tickEvery      time.Duration
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	examService *service.ExamService,
	attemptService *service.AttemptService,
	metrics *service.MetricsService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		examService:    examService,
		attemptService: attemptService,
		metrics:        metrics,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
		tickEvery:      time.Second,
	}
}

// ExamFeed godoc
// WS /ws/v1/student/exams/feed
// Sends the visible exam list, then a fresh list whenever it changes. If
// the feed falls behind the event bus it sends resync and closes.
func (h *WSHandler) ExamFeed(c *gin.Context) {
	profile := middleware.GetStudentProfile(c)
	if profile == nil {
		response.Fail(c, http.StatusForbidden, response.ErrProfileUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	view, sub, err := h.examService.OpenStudentView(ctx, profile)
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	wc := ws.NewConn(conn)
	defer wc.Close()

	wsLog := h.log.With().Str("student_id", profile.StudentID.String()).Logger()
	wsLog.Info().Msg("Exam feed connected")

	h.metrics.ViewOpened()
	defer h.metrics.ViewClosed()

	if err := wc.WriteExams(ws.EventSnapshot, view.Visible()); err != nil {
		sub.Close()
		return
	}

	go h.readFeed(wc, cancel, wsLog)

	err = view.Run(ctx, sub, func(exams []model.Exam) {
		if err := wc.WriteExams(ws.EventViewUpdated, exams); err != nil {
			wsLog.Debug().Err(err).Msg("Write failed")
			cancel()
		}
	})
	if errors.Is(err, service.ErrViewStale) {
		wsLog.Info().Msg("Exam feed lost events, asking client to resync")
		_ = wc.WriteTyped(ws.ResyncResponse{Event: ws.EventResync})
	}

	wsLog.Debug().Msg("Exam feed closed")
}

// readFeed answers pings until the client goes away.
func (h *WSHandler) readFeed(wc *ws.Conn, cancel context.CancelFunc, log zerolog.Logger) {
	defer cancel()

	for {
		var msg ws.RequestEnvelope
		if err := wc.ReadJSON(&msg); err != nil {
			logReadError(log, err)
			return
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = wc.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		default:
			_ = wc.WriteError("unknown action: " + string(msg.Action))
		}
	}
}

// ExamAttempt godoc
// WS /ws/v1/student/exams/:id/attempt
// Runs one exam attempt: a tick every second, answer and submit actions,
// and a final submitted frame. Disconnecting abandons the attempt.
func (h *WSHandler) ExamAttempt(c *gin.Context) {
	examID, ok := parseExamID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), examID, middleware.GetStudentProfile(c))
	if err != nil {
		failWithError(c, h.log, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		attempt.Abandon()
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	wc := ws.NewConn(conn)
	defer wc.Close()

	wsLog := h.log.With().
		Str("attempt_id", attempt.ID.String()).
		Str("exam_id", examID.String()).
		Logger()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := wc.WriteTyped(ws.StartedResponse{
		Event:     ws.EventStarted,
		AttemptID: attempt.ID.String(),
		Exam:      attempt.Exam(),
		Remaining: attempt.Remaining(),
	}); err != nil {
		attempt.Abandon()
		return
	}

	go h.readAttempt(ctx, cancel, wc, attempt, wsLog)

	ticker := time.NewTicker(h.tickEvery)
	defer ticker.Stop()

	result, err := attempt.Run(ctx, ticker.C, func(remaining int) {
		_ = wc.WriteTyped(ws.TickResponse{Event: ws.EventTick, Remaining: remaining})
	})
	if result != nil {
		_ = wc.WriteTyped(ws.SubmittedResponse{
			Event:         ws.EventSubmitted,
			Reason:        result.Reason,
			Score:         result.Score,
			MaxScore:      result.MaxScore,
			PendingReview: result.PendingReview,
		})
	}
	if err != nil && ctx.Err() == nil {
		wsLog.Error().Err(err).Msg("Attempt result not saved")
		_ = wc.WriteError("result could not be saved")
	}
}

func (h *WSHandler) readAttempt(ctx context.Context, cancel context.CancelFunc, wc *ws.Conn, attempt *service.Attempt, log zerolog.Logger) {
	defer cancel()

	for {
		raw, err := wc.ReadMessage()
		if err != nil {
			logReadError(log, err)
			return
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			_ = wc.WriteError("invalid payload")
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			var req ws.AnswerRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				_ = wc.WriteError("invalid payload")
				continue
			}
			if err := attempt.RecordAnswer(req.QuestionIndex, req.Answer); err != nil {
				_ = wc.WriteError(err.Error())
				continue
			}
			_ = wc.WriteTyped(ws.AnsweredResponse{Event: ws.EventAnswered, QuestionIndex: req.QuestionIndex})

		case ws.ActionSubmit:
			// The submitted frame is written by ExamAttempt once Run returns.
			if _, err := attempt.Submit(ctx); err != nil {
				if errors.Is(err, service.ErrAttemptFinished) {
					_ = wc.WriteError(err.Error())
					continue
				}
				log.Error().Err(err).Msg("Attempt result not saved")
				_ = wc.WriteError("result could not be saved")
			}

		case ws.ActionPing:
			_ = wc.WriteTyped(ws.PongResponse{Event: ws.EventPong})

		default:
			log.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			_ = wc.WriteError("unknown action: " + string(env.Action))
		}
	}
}

func logReadError(log zerolog.Logger, err error) {
	if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		log.Warn().Err(err).Msg("Unexpected close")
		return
	}
	log.Debug().Msg("Connection closed")
}
