package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/exam"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/middleware"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/model"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/service"
	ws "github.com/CodesWithRakib/edutrack-exam-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
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

// WSHandler streams exam delivery over WebSocket: server-driven countdown,
// autosave and submission on one connection.
type WSHandler struct {
	examService     *service.ExamService
	deliveryService *service.DeliveryService
	log             zerolog.Logger
	upgrader        websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, deliveryService *service.DeliveryService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService:     examService,
		deliveryService: deliveryService,
		log:             log.With().Str("component", "ws_handler").Logger(),
		upgrader:        buildUpgrader(allowedOrigins),
	}
}

// ExamStream godoc
// WS /ws/v1/exams/:exam_id/stream
// One connection per attempt. The server owns the clock: it ticks every
// second, pushes the remaining time, and auto-submits when time expires.
func (h *WSHandler) ExamStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	studentID := claims.UserID
	ctx := context.Background()

	state, err := h.deliveryService.GetState(ctx, examID, studentID)
	if err != nil {
		ws.WriteError(conn, "no attempt for this exam")
		return
	}
	if state.Status == model.AttemptStatusCompleted {
		ws.WriteError(conn, "attempt already completed")
		return
	}

	payload, err := h.examService.GetExamPayload(ctx, examID)
	if err != nil {
		ws.WriteError(conn, "exam is not available")
		return
	}

	delivery := exam.ResumeDelivery(
		payload.Questions,
		payload.DurationSeconds,
		state.RemainingSeconds,
		state.AttemptNumber,
		state.AutosavedAnswers,
	)

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Int("attempt", delivery.AttemptNumber()).
		Logger()
	wsLog.Info().Msg("Student connected")

	_ = ws.WriteTyped(conn, ws.StateResponse{
		Event:            ws.EventState,
		AttemptNumber:    delivery.AttemptNumber(),
		RemainingSeconds: delivery.TimeLeft(),
		Answers:          delivery.Answers(),
	})

	// Reader goroutine feeds client messages into the select loop; the loop
	// alone mutates the delivery machine, so tick and message handling never
	// race.
	msgCh := make(chan ws.RequestPayload)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(msgCh)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					wsLog.Warn().Err(err).Msg("Unexpected close")
				} else {
					wsLog.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case msgCh <- msg:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if delivery.Tick() {
				// Time expired. A failed submission resumes the loop and the
				// next tick fires again.
				if h.submit(ctx, conn, wsLog, examID, studentID, delivery, true) {
					return
				}
				continue
			}
			_ = ws.WriteTyped(conn, ws.TickResponse{
				Event:            ws.EventTick,
				RemainingSeconds: delivery.TimeLeft(),
			})

		case msg, ok := <-msgCh:
			if !ok {
				wsLog.Info().Msg("Student disconnected")
				return
			}

			switch msg.Action {
			case ws.ActionAnswer:
				h.handleAnswer(ctx, conn, wsLog, examID, studentID, delivery, &msg)

			case ws.ActionNavigate:
				delivery.Navigate(msg.Index)

			case ws.ActionSubmit:
				if err := delivery.BeginSubmit(); err != nil {
					ws.WriteError(conn, "submission already underway")
					continue
				}
				// On failure the machine is back in progress; keep the
				// connection so the taker can retry or keep answering.
				if h.submit(ctx, conn, wsLog, examID, studentID, delivery, false) {
					return
				}

			case ws.ActionPing:
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})

			default:
				wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
				ws.WriteError(conn, "unknown action: "+string(msg.Action))
			}
		}
	}
}

// handleAnswer records the answer in the delivery machine and autosaves it
// through the service (Redis hash + durable queue).
func (h *WSHandler) handleAnswer(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, studentID int, delivery *exam.Delivery, msg *ws.RequestPayload) {
	if msg.QID == "" {
		ws.WriteError(conn, "q_id is required")
		return
	}

	questionID, err := uuid.Parse(msg.QID)
	if err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	delivery.RecordAnswer(msg.QID, msg.Answer)

	if err := h.deliveryService.RecordAnswer(ctx, examID, studentID, questionID, msg.Answer); err != nil {
		wsLog.Error().Err(err).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	_ = ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, QID: msg.QID})
}

// submit finishes the attempt and reports whether it is over. On a transient
// failure the machine goes back to InProgress and false is returned; the
// stream stays open and the taker may retry or keep answering.
func (h *WSHandler) submit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, examID uuid.UUID, studentID int, delivery *exam.Delivery, auto bool) bool {
	result, err := h.deliveryService.Submit(ctx, examID, studentID, delivery.AttemptNumber(), delivery.Answers())
	if err != nil {
		// Another path (a parallel HTTP submit, or another device) may have
		// graded first; the stored result is still the one to report.
		if errors.Is(err, service.ErrSubmitInProgress) || errors.Is(err, service.ErrAttemptCompleted) {
			if stored, getErr := h.deliveryService.GetResult(ctx, examID, studentID); getErr == nil {
				delivery.CompleteSubmit(stored)
				_ = ws.WriteTyped(conn, ws.GradedResponse{
					Event:         ws.EventGraded,
					AttemptNumber: delivery.AttemptNumber(),
					AutoSubmitted: auto,
					Result:        stored,
				})
				return true
			}
		}

		// A retake on another device superseded this attempt; retrying with
		// the old attempt number can never succeed.
		if errors.Is(err, service.ErrStaleAttempt) {
			wsLog.Warn().Bool("auto", auto).Msg("Attempt superseded by retake")
			ws.WriteError(conn, "attempt was superseded by a retake")
			return true
		}

		wsLog.Error().Err(err).Bool("auto", auto).Msg("Submit failed")
		delivery.FailSubmit()
		ws.WriteError(conn, "submission failed")
		return false
	}

	delivery.CompleteSubmit(result)

	wsLog.Info().
		Int("score", result.Score).
		Int("total", result.Total).
		Bool("auto", auto).
		Msg("Attempt graded")

	_ = ws.WriteTyped(conn, ws.GradedResponse{
		Event:         ws.EventGraded,
		AttemptNumber: delivery.AttemptNumber(),
		AutoSubmitted: auto,
		Result:        result,
	})
	return true
}
