package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/session"
)

// AttemptStorage hands out the durable key area for one user's attempt.
type AttemptStorage interface {
	For(email string) session.Storage
}

// WSHandler hosts a user's attempt over a websocket. The attempt lives for the
// connection; its state lives in AttemptStorage so a reconnect resumes it.
type WSHandler struct {
	quiz      *app.QuizService
	questions *app.QuestionService
	storage   AttemptStorage
	registry  app.AttemptRegistry
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time
	upgrader  websocket.Upgrader
}

type WSOption func(*WSHandler)

// WithTickInterval overrides the 1 s countdown tick.
func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) { h.interval = d }
}

func WithWSClock(now func() time.Time) WSOption {
	return func(h *WSHandler) { h.now = now }
}

func NewWSHandler(quiz *app.QuizService, questions *app.QuestionService, storage AttemptStorage, registry app.AttemptRegistry, logger *zap.Logger, opts ...WSOption) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &WSHandler{
		quiz:      quiz,
		questions: questions,
		storage:   storage,
		registry:  registry,
		logger:    logger,
		interval:  time.Second,
		now:       time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type visibilityPayload struct {
	Hidden bool `json:"hidden"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type statePayload struct {
	session.Snapshot
	Questions []domain.PublicQuestion `json:"questions,omitempty"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type warningPayload struct {
	Message    string `json:"message"`
	TabChanges int    `json:"tabChanges"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and runs the attempt protocol.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if name == "" || email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "missing name or email"})
		return
	}

	claimed, err := h.registry.Claim(r.Context(), email)
	if err != nil {
		writeServiceError(w, h.logger, r, err)
		return
	}
	if !claimed {
		writeJSON(w, http.StatusConflict, errorResponse{Message: "an attempt is already open for this email"})
		return
	}
	defer func() {
		if err := h.registry.Release(context.Background(), email); err != nil {
			h.logger.Warn("release attempt failed", zap.String("email", email), zap.Error(err))
		}
	}()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	questions, err := h.questions.Active(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "questions unavailable"}})
		h.logger.Error("load questions for attempt", zap.String("email", email), zap.Error(err))
		return
	}

	attempt := session.New(session.Config{
		User:          domain.Participant{Name: name, Email: email},
		QuestionCount: len(questions),
		Storage:       h.storage.For(email),
		Settings:      h.quiz,
		Submitter:     h.quiz,
		Logger:        h.logger,
		Now:           h.now,
	})
	if err := attempt.Load(ctx); err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "attempt unavailable"}})
		h.logger.Error("load attempt", zap.String("email", email), zap.Error(err))
		return
	}

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit("state", statePayload{Snapshot: attempt.Snapshot(), Questions: questions})

	go func() {
		defer close(tickerDone)
		attempt.Run(ctx, h.interval, func(ev session.TickEvent) {
			switch {
			case ev.Summary != nil:
				emit("submitted", ev.Summary)
			case ev.Err != nil:
				h.emitError(emit, ev.Err)
			case ev.State == session.Running:
				emit("tick", tickPayload{Remaining: ev.Remaining})
			}
		})
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !h.handle(ctx, attempt, inbound, emit) {
			break
		}
	}

	close(closeSignals)
	cancel()
	<-tickerDone
	close(send)
	<-writerDone
}

// handle processes one inbound message and reports whether to keep reading.
func (h *WSHandler) handle(ctx context.Context, attempt *session.Attempt, inbound inboundMessage, emit func(string, any)) bool {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid answer payload"})
			return true
		}
		snap, err := attempt.Answer(ctx, payload.Question, payload.Option)
		if err != nil {
			h.emitError(emit, err)
			return true
		}
		emit("state", statePayload{Snapshot: snap})
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid navigate payload"})
			return true
		}
		snap, err := attempt.Navigate(ctx, payload.Index)
		if err != nil {
			h.emitError(emit, err)
			return true
		}
		emit("state", statePayload{Snapshot: snap})
	case "visibility":
		var payload visibilityPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid visibility payload"})
			return true
		}
		if !payload.Hidden {
			return true
		}
		ev := attempt.Hidden(ctx)
		switch ev.Outcome {
		case session.TabWarned:
			emit("warning", warningPayload{
				Message:    "Leaving the quiz tab again will submit your answers.",
				TabChanges: ev.Count,
			})
		case session.TabForceSubmit:
			if ev.Err != nil {
				h.emitError(emit, ev.Err)
				return true
			}
			emit("submitted", ev.Summary)
		}
	case "submit":
		summary, err := attempt.Submit(ctx)
		if err != nil {
			h.emitError(emit, err)
			return true
		}
		emit("submitted", summary)
	case "status":
		attempt.RefreshStatus(ctx)
		emit("state", statePayload{Snapshot: attempt.Snapshot()})
	case "logout":
		if err := attempt.Logout(ctx); err != nil {
			h.logger.Warn("clear attempt on logout", zap.Error(err))
		}
		return false
	default:
		emit("error", errorPayload{Message: "unsupported message type"})
	}
	return true
}

func (h *WSHandler) emitError(emit func(string, any), err error) {
	switch {
	case errors.Is(err, domain.ErrNotLive):
		inactive := false
		emit("notLive", errorResponse{Message: "Quiz is not active", QuizActive: &inactive})
	case errors.Is(err, domain.ErrValidation):
		emit("error", errorPayload{Message: validationMessage(err)})
	case errors.Is(err, session.ErrSubmitInProgress),
		errors.Is(err, session.ErrAlreadySubmitted),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrTimeUp),
		errors.Is(err, domain.ErrNoQuestions):
		emit("error", errorPayload{Message: err.Error()})
	default:
		h.logger.Error("attempt operation failed", zap.Error(err))
		emit("error", errorPayload{Message: "Server error"})
	}
}
