package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"textinput-service/internal/domain"
)

// AnswerStore is an in-memory implementation of app.AnswerStore. Each
// (session, question) log only ever grows, so readers scan a snapshot of it
// without holding the lock.
type AnswerStore struct {
	mu   sync.RWMutex
	logs map[logKey][]domain.Answer
}

type logKey struct {
	session  string
	question string
}

func NewAnswerStore() *AnswerStore {
	return &AnswerStore{logs: make(map[logKey][]domain.Answer)}
}

func (s *AnswerStore) Append(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	if err := answer.Validate(); err != nil {
		return domain.Answer{}, err
	}
	answer.ID = uuid.Must(uuid.NewV7()).String()

	key := logKey{session: answer.SessionID, question: answer.QuestionUID}
	s.mu.Lock()
	s.logs[key] = append(s.logs[key], answer)
	s.mu.Unlock()
	return answer, nil
}

func (s *AnswerStore) LatestPerParticipant(ctx context.Context, sessionID string, questionIDs []string) ([]domain.QuestionSubmissions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.QuestionSubmissions, 0, len(questionIDs))
	for _, qid := range questionIDs {
		snapshot := s.snapshot(logKey{session: sessionID, question: qid})
		if len(snapshot) == 0 {
			continue
		}
		out = append(out, domain.QuestionSubmissions{
			QuestionUID: qid,
			Submissions: domain.LatestSubmissions(snapshot),
		})
	}
	return out, nil
}

// snapshot returns the log prefix visible now; later appends never touch it.
func (s *AnswerStore) snapshot(key logKey) []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[key]
	return log[:len(log):len(log)]
}
