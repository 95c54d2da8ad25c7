package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"textinput-service/internal/domain"
)

// AnswerStore keeps one append-only list per (session, question):
//
//	RPUSH textinput:answers:{session}:{question} {answer json}
//
// Appends run in MULTI so readers never observe a half-written record. A
// zero ttl keeps the log forever; a positive one is an explicit retention
// window refreshed on every append.
type AnswerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerStore(client *redis.Client, ttl time.Duration) *AnswerStore {
	return &AnswerStore{client: client, ttl: ttl}
}

func (s *AnswerStore) Append(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if err := answer.Validate(); err != nil {
		return domain.Answer{}, err
	}
	answer.ID = uuid.Must(uuid.NewV7()).String()

	raw, err := json.Marshal(answer)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("marshal answer: %w", err)
	}

	key := s.key(answer.SessionID, answer.QuestionUID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, raw)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("append answer: %w", err)
	}
	return answer, nil
}

func (s *AnswerStore) LatestPerParticipant(ctx context.Context, sessionID string, questionIDs []string) ([]domain.QuestionSubmissions, error) {
	if len(questionIDs) == 0 {
		return []domain.QuestionSubmissions{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(questionIDs))
	for i, qid := range questionIDs {
		cmds[i] = pipe.LRange(ctx, s.key(sessionID, qid), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	out := make([]domain.QuestionSubmissions, 0, len(questionIDs))
	for i, qid := range questionIDs {
		raws := cmds[i].Val()
		if len(raws) == 0 {
			continue
		}
		log := make([]domain.Answer, 0, len(raws))
		for _, raw := range raws {
			var a domain.Answer
			if err := json.Unmarshal([]byte(raw), &a); err != nil {
				return nil, fmt.Errorf("decode answer in %s: %w", s.key(sessionID, qid), err)
			}
			log = append(log, a)
		}
		out = append(out, domain.QuestionSubmissions{
			QuestionUID: qid,
			Submissions: domain.LatestSubmissions(log),
		})
	}
	return out, nil
}

func (s *AnswerStore) key(sessionID, questionUID string) string {
	return "textinput:answers:" + sessionID + ":" + questionUID
}
