package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"textinput-service/internal/domain"
)

const sendBuffer = 16

// frame is the wire shape of every server-to-client message.
type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Endpoint is one registered socket. Frames are drained by a single writer.
type Endpoint struct {
	ID        string
	SessionID string
	Role      domain.Role

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Frames is the queue the connection writer drains; it is closed on unregister.
func (e *Endpoint) Frames() <-chan []byte {
	return e.send
}

// enqueue never blocks: when the buffer is full the oldest frame is dropped.
func (e *Endpoint) enqueue(msg []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.send <- msg:
	default:
		select {
		case <-e.send:
		default:
		}
		e.send <- msg
	}
}

func (e *Endpoint) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.send)
	}
}

// Hub routes events to sockets connected to this instance. It implements
// app.Publisher and the redis relay's local publisher.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	logger    *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{endpoints: make(map[string]*Endpoint), logger: logger}
}

// Register adds a socket for the session role and returns it with a fresh id.
func (h *Hub) Register(sessionID string, role domain.Role) *Endpoint {
	ep := &Endpoint{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		send:      make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.endpoints[ep.ID] = ep
	h.mu.Unlock()
	h.logger.Debug("socket registered", "socket", ep.ID, "session", sessionID, "role", role)
	return ep
}

func (h *Hub) Unregister(ep *Endpoint) {
	h.mu.Lock()
	delete(h.endpoints, ep.ID)
	h.mu.Unlock()
	ep.close()
}

// Send queues an arbitrary frame for one socket.
func (h *Hub) Send(socketID, msgType string, payload any) error {
	raw, err := json.Marshal(frame{Type: msgType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	h.mu.RLock()
	ep, ok := h.endpoints[socketID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrEndpointNotFound, socketID)
	}
	ep.enqueue(raw)
	return nil
}

func (h *Hub) EmitTo(_ context.Context, socketID string, evt domain.Event) error {
	return h.Send(socketID, string(evt.Kind()), evt)
}

func (h *Hub) EmitToRole(_ context.Context, sessionID string, role domain.Role, evt domain.Event) error {
	raw, err := json.Marshal(frame{Type: string(evt.Kind()), Payload: evt})
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ep := range h.endpoints {
		if ep.SessionID == sessionID && ep.Role == role {
			ep.enqueue(raw)
		}
	}
	return nil
}
