package app_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"textinput-service/internal/app"
	"textinput-service/internal/domain"
	"textinput-service/internal/infra/memory"
)

type sent struct {
	socket  string
	session string
	role    domain.Role
	event   domain.Event
}

// recordingPublisher captures pushes; failRoles makes role broadcasts fail.
type recordingPublisher struct {
	mu        sync.Mutex
	events    []sent
	failRoles map[domain.Role]bool
}

func (p *recordingPublisher) EmitTo(_ context.Context, socketID string, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, sent{socket: socketID, event: evt})
	return nil
}

func (p *recordingPublisher) EmitToRole(_ context.Context, sessionID string, role domain.Role, evt domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failRoles[role] {
		return errors.New("publisher down")
	}
	p.events = append(p.events, sent{session: sessionID, role: role, event: evt})
	return nil
}

func (p *recordingPublisher) ofKind(kind domain.EventType) []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sent
	for _, e := range p.events {
		if e.event.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	p.events = nil
	p.mu.Unlock()
}

// tickingClock advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	service   *app.TextInputService
	publisher *recordingPublisher
	stats     *memory.StatsStore
	questions *memory.QuestionStore
}

func newFixture(questions ...domain.Question) *fixture {
	f := &fixture{
		publisher: &recordingPublisher{},
		stats:     memory.NewStatsStore(),
		questions: memory.NewQuestionStore(questions...),
	}
	f.service = app.NewTextInputService(
		memory.NewAnswerStore(),
		f.questions,
		f.stats,
		f.publisher,
		app.WithClock(tickingClock()),
	)
	return f
}

func textQuestion(uid, solution, hint string) domain.Question {
	return domain.Question{
		UID:            uid,
		Type:           domain.TextInputType,
		PresentationID: "p1",
		Data:           domain.QuestionData{Stem: "stem " + uid, Solution: solution, Hint: hint},
	}
}

func (f *fixture) submit(ctx context.Context, question, answeree, text string) error {
	_, err := f.service.SubmitAnswer(ctx, domain.AnswerEnvelope{
		QuestionUID: question,
		Answeree:    answeree,
		Session:     "s1",
		Submission:  text,
		SocketID:    "sock-" + answeree,
	})
	return err
}

func (f *fixture) showAll(ctx context.Context, uid string) error {
	return f.stats.SaveStats(ctx, []domain.StatsConfig{{QuestionUID: uid, ShowViewer: domain.ShowViewerAll}})
}
