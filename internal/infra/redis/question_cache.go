package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"textinput-service/internal/domain"
)

// QuestionSource fetches questions from a backing store (e.g. Postgres).
type QuestionSource interface {
	GetQuestion(ctx context.Context, uid string) (domain.Question, error)
	QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error)
	SaveQuestions(ctx context.Context, questions []domain.Question) error
}

// QuestionCache caches questions in Redis and falls back to a source on miss.
// Questions are stored as: SET textinput:question:{uid} {question json} EX ttl
type QuestionCache struct {
	client *redis.Client
	source QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, source QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, uid string) (domain.Question, error) {
	if q, ok := c.cached(ctx, uid); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(uid, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := c.cached(ctx, uid); ok {
			return q, nil
		}

		q, err := c.source.GetQuestion(ctx, uid)
		if err != nil {
			return domain.Question{}, err
		}

		if raw, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, c.key(uid), raw, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error) {
	return c.source.QuestionsByType(ctx, presentationID, questionType)
}

// SaveQuestions writes through and drops the cached copies.
func (c *QuestionCache) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	if err := c.source.SaveQuestions(ctx, questions); err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	keys := make([]string, 0, len(questions))
	for _, q := range questions {
		keys = append(keys, c.key(q.UID))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("evict cached questions: %w", err)
	}
	return nil
}

func (c *QuestionCache) cached(ctx context.Context, uid string) (domain.Question, bool) {
	raw, err := c.client.Get(ctx, c.key(uid)).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (c *QuestionCache) key(uid string) string {
	return "textinput:question:" + uid
}

// ttlWithJitter never returns 0 for a positive ttl; 0 means no expiry.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
