package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"textinput-service/internal/domain"
)

// AnswerStore is the append-only log of submissions (in-memory, Redis, Postgres, SQLite).
type AnswerStore interface {
	// Append stores a new record and returns it with its store-assigned id.
	Append(ctx context.Context, answer domain.Answer) (domain.Answer, error)
	// LatestPerParticipant returns, per requested question that has answers,
	// the most recent submission of each answeree. When two submissions of the
	// same answeree share a timestamp either one may be returned.
	LatestPerParticipant(ctx context.Context, sessionID string, questionIDs []string) ([]domain.QuestionSubmissions, error)
}

// QuestionRepository loads and stores parsed questions.
type QuestionRepository interface {
	GetQuestion(ctx context.Context, uid string) (domain.Question, error)
	QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// StatsRepository stores per-question viewer visibility.
type StatsRepository interface {
	SaveStats(ctx context.Context, stats []domain.StatsConfig) error
	// ViewerVisibility returns ShowViewerAll if any config of the question says so.
	ViewerVisibility(ctx context.Context, questionUID string) (domain.ShowViewer, error)
}

// Publisher pushes events to connected clients. Delivery is best effort.
type Publisher interface {
	EmitTo(ctx context.Context, socketID string, evt domain.Event) error
	EmitToRole(ctx context.Context, sessionID string, role domain.Role, evt domain.Event) error
}

// TextInputService implements the free-text question use cases.
type TextInputService struct {
	answers    AnswerStore
	questions  QuestionRepository
	stats      StatsRepository
	publisher  Publisher
	visibility *visibilityCache
	hooks      map[Hook]HookFunc

	now           func() time.Time
	newUID        func() string
	logger        *slog.Logger
	visibilityTTL time.Duration
}

// Option customises a TextInputService.
type Option func(*TextInputService)

// WithClock is used by tests for deterministic submit dates.
func WithClock(now func() time.Time) Option {
	return func(s *TextInputService) { s.now = now }
}

// WithUIDGenerator replaces the uid source used when parsing markup.
func WithUIDGenerator(newUID func() string) Option {
	return func(s *TextInputService) { s.newUID = newUID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *TextInputService) { s.logger = logger }
}

// WithVisibilityTTL bounds how long a question's viewer visibility is cached.
// Zero caches until a local re-parse.
func WithVisibilityTTL(ttl time.Duration) Option {
	return func(s *TextInputService) { s.visibilityTTL = ttl }
}

func NewTextInputService(answers AnswerStore, questions QuestionRepository, stats StatsRepository, publisher Publisher, opts ...Option) *TextInputService {
	s := &TextInputService{
		answers:   answers,
		questions: questions,
		stats:     stats,
		publisher: publisher,
		now:       time.Now,
		newUID:    func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.visibility = newVisibilityCache(stats, s.visibilityTTL, s.now)
	s.hooks = s.buildHooks()
	return s
}

// SubmitAnswer records an answer and broadcasts the updated progress. The
// envelope is returned unchanged for downstream hooks.
func (s *TextInputService) SubmitAnswer(ctx context.Context, env domain.AnswerEnvelope) (domain.AnswerEnvelope, error) {
	question, err := s.questions.GetQuestion(ctx, env.QuestionUID)
	if err != nil {
		return env, err
	}
	// Other question types share the hook.
	if question.Type != domain.TextInputType {
		return env, nil
	}

	text, ok := env.Submission.(string)
	if !ok {
		return env, domain.ErrInvalidSubmission
	}

	stored, err := s.answers.Append(ctx, domain.Answer{
		ExerciseID:  env.ExerciseID,
		QuestionUID: question.UID,
		Answeree:    env.Answeree,
		SessionID:   env.Session,
		Type:        question.Type,
		SubmitDate:  s.now().UTC().Truncate(time.Millisecond),
		Submission:  text,
		Confidence:  env.Confidence,
	})
	if err != nil {
		s.logger.Error("append answer failed", "question", question.UID, "session", env.Session, "err", err)
		return env, fmt.Errorf("append answer: %w", err)
	}
	s.logger.Debug("answer appended", "id", stored.ID, "question", question.UID, "answeree", stored.Answeree)

	// The answer is durable from here on; fan-out failures only cost pushes
	// that a later broadcast or restore supersedes.
	s.broadcast(ctx, question, stored, env.SocketID)
	return env, nil
}

// push sends evt to a single socket, absorbing delivery failures.
func (s *TextInputService) push(ctx context.Context, socketID string, evt domain.Event) {
	if socketID == "" {
		return
	}
	if err := s.publisher.EmitTo(ctx, socketID, evt); err != nil {
		s.logger.Debug("push dropped", "type", evt.Kind(), "socket", socketID, "err", err)
	}
}

// pushToRole sends evt to every socket of a session role, absorbing failures.
func (s *TextInputService) pushToRole(ctx context.Context, sessionID string, role domain.Role, evt domain.Event) {
	if err := s.publisher.EmitToRole(ctx, sessionID, role, evt); err != nil {
		s.logger.Debug("broadcast dropped", "type", evt.Kind(), "session", sessionID, "role", role, "err", err)
	}
}
