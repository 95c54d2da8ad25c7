package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"textinput-service/internal/domain"
)

// QuestionSource is the backing store behind a CachedQuestionRepository
// (Postgres, or QuestionStore for tests/demos).
type QuestionSource interface {
	GetQuestion(ctx context.Context, uid string) (domain.Question, error)
	QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// CachedQuestionRepository caches single-question lookups with TTL to avoid
// a backing-store hit on every submission.
type CachedQuestionRepository struct {
	source QuestionSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewCachedQuestionRepository(source QuestionSource, ttl time.Duration) *CachedQuestionRepository {
	return &CachedQuestionRepository{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (r *CachedQuestionRepository) GetQuestion(ctx context.Context, uid string) (domain.Question, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[uid]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.question, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(uid, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[uid]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.question, nil
		}
		r.mu.RUnlock()

		q, err := r.source.GetQuestion(ctx, uid)
		if err != nil {
			return domain.Question{}, err
		}

		r.mu.Lock()
		r.cache[uid] = cachedQuestion{
			question:  q,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// QuestionsByType is only used on reconnect and always reads through.
func (r *CachedQuestionRepository) QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error) {
	return r.source.QuestionsByType(ctx, presentationID, questionType)
}

func (r *CachedQuestionRepository) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := r.source.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	r.mu.Lock()
	for _, q := range questions {
		delete(r.cache, q.UID)
	}
	r.mu.Unlock()
	return nil
}

func (r *CachedQuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// QuestionStore keeps questions in memory (useful for tests/demos and as the
// default when no database is configured).
type QuestionStore struct {
	mu    sync.RWMutex
	byUID map[string]domain.Question
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{byUID: make(map[string]domain.Question)}
	for _, q := range questions {
		s.byUID[q.UID] = q
	}
	return s
}

func (s *QuestionStore) GetQuestion(_ context.Context, uid string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.byUID[uid]; ok {
		return q, nil
	}
	return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, uid)
}

// QuestionsByType returns the questions of a presentation in document order.
func (s *QuestionStore) QuestionsByType(_ context.Context, presentationID, questionType string) ([]domain.Question, error) {
	s.mu.RLock()
	out := make([]domain.Question, 0)
	for _, q := range s.byUID {
		if q.PresentationID == presentationID && q.Type == questionType {
			out = append(out, q)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].UID < out[j].UID
	})
	return out, nil
}

func (s *QuestionStore) SaveQuestions(_ context.Context, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range questions {
		s.byUID[q.UID] = q
	}
	return nil
}
