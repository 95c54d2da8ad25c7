package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"textinput-service/internal/app"
	"textinput-service/internal/domain"
)

const writeWait = 10 * time.Second

// Dispatcher runs a lifecycle hook with a JSON envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, hook app.Hook, payload json.RawMessage) (any, error)
}

type WSHandler struct {
	hooks    Dispatcher
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(hooks Dispatcher, hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hooks: hooks,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionUID string `json:"questionUid"`
	ExerciseID  string `json:"exercise_id"`
	Submission  any    `json:"submission"`
	Confidence  *int   `json:"confidence,omitempty"`
}

type timeoutPayload struct {
	QuestionUID string `json:"questionUid"`
}

type connectedPayload struct {
	SocketID string `json:"socketId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type client struct {
	ep             *Endpoint
	presentationID string
	user           string
}

// ServeWS upgrades the request and bridges socket messages to the hook table.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session")
	role, ok := domain.ParseRole(q.Get("role"))
	user := q.Get("user")
	if sessionID == "" || !ok {
		http.Error(w, "missing session or role", http.StatusBadRequest)
		return
	}
	if role == domain.RoleViewer && user == "" {
		http.Error(w, "missing user", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := client{
		ep:             h.hub.Register(sessionID, role),
		presentationID: q.Get("presentation"),
		user:           user,
	}
	defer h.hub.Unregister(c.ep)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.ep.Frames() {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("ws write failed", "socket", c.ep.ID, "err", err)
				// Unblocks the read loop below.
				_ = conn.Close()
				return
			}
		}
	}()

	ctx := r.Context()
	_ = h.hub.Send(c.ep.ID, "connected", connectedPayload{SocketID: c.ep.ID})
	h.connected(ctx, c)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			h.answer(ctx, c, inbound.Payload)
		case "timeout":
			h.timeout(ctx, c, inbound.Payload)
		default:
			h.reject(c, "unsupported message type")
		}
	}

	h.hub.Unregister(c.ep)
	<-writerDone
}

func (h *WSHandler) connected(ctx context.Context, c client) {
	hook := app.HookViewerConnected
	if c.ep.Role == domain.RolePresenter {
		hook = app.HookPresenterConnected
	}
	h.dispatch(ctx, c, hook, domain.ConnectionInfo{
		SessionID:      c.ep.SessionID,
		PresentationID: c.presentationID,
		SocketID:       c.ep.ID,
		WhitelistID:    c.user,
	})
}

func (h *WSHandler) answer(ctx context.Context, c client, raw json.RawMessage) {
	if c.ep.Role != domain.RoleViewer {
		h.reject(c, "only viewers submit answers")
		return
	}
	var payload answerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.reject(c, "invalid answer payload")
		return
	}
	h.dispatch(ctx, c, app.HookAnswerSubmission, domain.AnswerEnvelope{
		QuestionUID: payload.QuestionUID,
		ExerciseID:  payload.ExerciseID,
		Answeree:    c.user,
		Session:     c.ep.SessionID,
		Submission:  payload.Submission,
		Confidence:  payload.Confidence,
		SocketID:    c.ep.ID,
	})
}

func (h *WSHandler) timeout(ctx context.Context, c client, raw json.RawMessage) {
	var payload timeoutPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.reject(c, "invalid timeout payload")
		return
	}
	h.dispatch(ctx, c, app.HookPlugin, domain.TimeoutSignal{
		Type:         app.PluginQuizTimedOut,
		SessionID:    c.ep.SessionID,
		QuestionType: domain.TextInputType,
		QuestionUID:  payload.QuestionUID,
		SocketID:     c.ep.ID,
	})
}

func (h *WSHandler) dispatch(ctx context.Context, c client, hook app.Hook, envelope any) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		h.reject(c, err.Error())
		return
	}
	if _, err := h.hooks.Dispatch(ctx, hook, raw); err != nil {
		h.logger.Debug("hook failed", "hook", hook, "socket", c.ep.ID, "err", err)
		h.reject(c, err.Error())
	}
}

func (h *WSHandler) reject(c client, message string) {
	_ = h.hub.Send(c.ep.ID, "error", errorPayload{Message: message})
}
