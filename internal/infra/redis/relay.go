package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"textinput-service/internal/domain"
)

// LocalPublisher delivers events to sockets connected to this instance.
type LocalPublisher interface {
	EmitTo(ctx context.Context, socketID string, evt domain.Event) error
	EmitToRole(ctx context.Context, sessionID string, role domain.Role, evt domain.Event) error
}

// Relay publishes events on a Redis channel so that every instance delivers
// them to its own connected sockets. It satisfies app.Publisher; delivery
// to an unknown socket is silently dropped by the receiving instances.
type Relay struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

type relayMessage struct {
	SocketID  string           `json:"socketId,omitempty"`
	SessionID string           `json:"sessionId,omitempty"`
	Role      domain.Role      `json:"role,omitempty"`
	Type      domain.EventType `json:"type"`
	Event     json.RawMessage  `json:"event"`
}

// relayedEvent re-emits an already encoded event unchanged.
type relayedEvent struct {
	kind domain.EventType
	raw  json.RawMessage
}

func (e relayedEvent) Kind() domain.EventType        { return e.kind }
func (e relayedEvent) MarshalJSON() ([]byte, error) { return e.raw, nil }

func NewRelay(client *redis.Client, channel string, logger *slog.Logger) *Relay {
	if channel == "" {
		channel = "textinput:events"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{client: client, channel: channel, logger: logger}
}

func (r *Relay) EmitTo(ctx context.Context, socketID string, evt domain.Event) error {
	return r.publish(ctx, relayMessage{SocketID: socketID}, evt)
}

func (r *Relay) EmitToRole(ctx context.Context, sessionID string, role domain.Role, evt domain.Event) error {
	return r.publish(ctx, relayMessage{SessionID: sessionID, Role: role}, evt)
}

func (r *Relay) publish(ctx context.Context, msg relayMessage, evt domain.Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg.Type = evt.Kind()
	msg.Event = raw
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal relay message: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Start subscribes to the channel and forwards every message to local until
// ctx is done or the returned stop function is called. It returns once the
// subscription is confirmed.
func (r *Relay) Start(ctx context.Context, local LocalPublisher) (func(), error) {
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				r.forward(ctx, local, m.Payload)
			}
		}
	}()

	stop := func() {
		cancel()
		_ = sub.Close()
		<-done
	}
	return stop, nil
}

func (r *Relay) forward(ctx context.Context, local LocalPublisher, payload string) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("relay message dropped", "err", err)
		return
	}
	evt := relayedEvent{kind: msg.Type, raw: msg.Event}

	var err error
	if msg.SocketID != "" {
		err = local.EmitTo(ctx, msg.SocketID, evt)
	} else {
		err = local.EmitToRole(ctx, msg.SessionID, msg.Role, evt)
	}
	if err != nil {
		r.logger.Debug("relay delivery dropped", "type", msg.Type, "err", err)
	}
}
