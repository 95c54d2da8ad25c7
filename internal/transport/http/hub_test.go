package http

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"textinput-service/internal/domain"
)

func progressEvent(uid string) domain.QuestionEvent {
	return domain.QuestionEvent{
		QuestionType: domain.TextInputType,
		Type:         domain.EventProgress,
		Question:     domain.ProgressQuestion{UID: uid, Answers: []domain.ProgressRow{}},
	}
}

func TestHubEmitToRoleScopesBySessionAndRole(t *testing.T) {
	hub := NewHub(nil)
	presenter := hub.Register("s1", domain.RolePresenter)
	viewer := hub.Register("s1", domain.RoleViewer)
	otherSession := hub.Register("s2", domain.RolePresenter)

	if err := hub.EmitToRole(context.Background(), "s1", domain.RolePresenter, progressEvent("q1")); err != nil {
		t.Fatalf("emit: %v", err)
	}

	if got := len(presenter.Frames()); got != 1 {
		t.Fatalf("expected presenter to get one frame, got %d", got)
	}
	if len(viewer.Frames()) != 0 || len(otherSession.Frames()) != 0 {
		t.Fatalf("event leaked outside session role")
	}

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			QuestionType string `json:"questionType"`
			Question     struct {
				UID string `json:"uid"`
			} `json:"question"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(<-presenter.Frames(), &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if msg.Type != "progress" || msg.Payload.QuestionType != domain.TextInputType || msg.Payload.Question.UID != "q1" {
		t.Fatalf("unexpected frame %+v", msg)
	}
}

func TestHubEmitToUnknownSocket(t *testing.T) {
	hub := NewHub(nil)
	err := hub.EmitTo(context.Background(), "missing", progressEvent("q1"))
	if !errors.Is(err, domain.ErrEndpointNotFound) {
		t.Fatalf("expected ErrEndpointNotFound, got %v", err)
	}
}

func TestHubDropsOldestWhenFull(t *testing.T) {
	hub := NewHub(nil)
	ep := hub.Register("s1", domain.RoleViewer)

	for i := 0; i < sendBuffer+3; i++ {
		if err := hub.Send(ep.ID, "tick", i); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	if got := len(ep.Frames()); got != sendBuffer {
		t.Fatalf("expected full buffer of %d, got %d", sendBuffer, got)
	}

	var first struct {
		Payload int `json:"payload"`
	}
	if err := json.Unmarshal(<-ep.Frames(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Payload != 3 {
		t.Fatalf("expected oldest frames dropped, first payload %d", first.Payload)
	}
}

func TestHubUnregisterClosesQueue(t *testing.T) {
	hub := NewHub(nil)
	ep := hub.Register("s1", domain.RoleViewer)
	hub.Unregister(ep)
	hub.Unregister(ep)

	if _, ok := <-ep.Frames(); ok {
		t.Fatalf("expected closed queue")
	}
	if err := hub.Send(ep.ID, "tick", 1); !errors.Is(err, domain.ErrEndpointNotFound) {
		t.Fatalf("expected unregistered socket to be unknown, got %v", err)
	}
}
