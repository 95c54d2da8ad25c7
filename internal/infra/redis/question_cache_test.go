package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"textinput-service/internal/domain"
	"textinput-service/internal/infra/memory"
)

func TestQuestionCacheCachesInRedis(t *testing.T) {
	mr, client := startRedis(t)

	source := &countingSource{QuestionSource: memory.NewQuestionStore(sampleQuestion())}
	cache := NewQuestionCache(client, source, time.Minute)

	q, err := cache.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.Data.Solution != "^3$" {
		t.Fatalf("unexpected question %+v", q)
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if !mr.Exists("textinput:question:q1") {
		t.Fatalf("expected question cached in redis")
	}

	// Second call should hit cache, source not incremented.
	_, _ = cache.GetQuestion(context.Background(), "q1")
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
}

func TestQuestionCacheEvictsOnSave(t *testing.T) {
	mr, client := startRedis(t)
	ctx := context.Background()
	cache := NewQuestionCache(client, memory.NewQuestionStore(sampleQuestion()), time.Minute)

	_, _ = cache.GetQuestion(ctx, "q1")
	if err := cache.SaveQuestions(ctx, []domain.Question{sampleQuestion()}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mr.Exists("textinput:question:q1") {
		t.Fatalf("expected cached copy evicted")
	}
}

func TestQuestionCacheMissingQuestion(t *testing.T) {
	_, client := startRedis(t)
	cache := NewQuestionCache(client, memory.NewQuestionStore(), time.Minute)

	_, err := cache.GetQuestion(context.Background(), "nope")
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

type countingSource struct {
	QuestionSource
	calls int
}

func (s *countingSource) GetQuestion(ctx context.Context, uid string) (domain.Question, error) {
	s.calls++
	return s.QuestionSource.GetQuestion(ctx, uid)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		UID:  "q1",
		Type: domain.TextInputType,
		Data: domain.QuestionData{Stem: "Root of 9?", Solution: "^3$", Hint: "odd"},
	}
}
