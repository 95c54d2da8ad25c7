package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"textinput-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	source := &countingSource{QuestionSource: NewQuestionStore(sampleQuestion())}
	repo := NewCachedQuestionRepository(source, time.Minute)

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source once, got %d", source.calls)
	}

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls)
	}
}

func TestQuestionRepositorySaveEvicts(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{QuestionSource: NewQuestionStore(sampleQuestion())}
	repo := NewCachedQuestionRepository(source, time.Minute)

	_, _ = repo.GetQuestion(ctx, "q1")
	updated := sampleQuestion()
	updated.Data.Hint = "new hint"
	if err := repo.SaveQuestions(ctx, []domain.Question{updated}); err != nil {
		t.Fatalf("save: %v", err)
	}

	q, err := repo.GetQuestion(ctx, "q1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if q.Data.Hint != "new hint" || source.calls != 2 {
		t.Fatalf("expected reload after save, got hint=%q calls=%d", q.Data.Hint, source.calls)
	}
}

func TestQuestionStoreNotFound(t *testing.T) {
	_, err := NewQuestionStore().GetQuestion(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestQuestionStoreQuestionsByType(t *testing.T) {
	store := NewQuestionStore(
		domain.Question{UID: "b", Type: domain.TextInputType, PresentationID: "p1", Position: 1},
		domain.Question{UID: "a", Type: domain.TextInputType, PresentationID: "p1", Position: 0},
		domain.Question{UID: "c", Type: "asq-multi-choice-q", PresentationID: "p1", Position: 2},
		domain.Question{UID: "d", Type: domain.TextInputType, PresentationID: "p2"},
	)
	got, err := store.QuestionsByType(context.Background(), "p1", domain.TextInputType)
	if err != nil {
		t.Fatalf("questions by type: %v", err)
	}
	if len(got) != 2 || got[0].UID != "a" || got[1].UID != "b" {
		t.Fatalf("expected [a b] in document order, got %+v", got)
	}
}

func TestStatsStoreVisibility(t *testing.T) {
	ctx := context.Background()
	stats := NewStatsStore()

	v, _ := stats.ViewerVisibility(ctx, "q1")
	if v != domain.ShowViewerSelf {
		t.Fatalf("expected self without config, got %s", v)
	}

	_ = stats.SaveStats(ctx, []domain.StatsConfig{
		{QuestionUID: "q1", ShowViewer: domain.ShowViewerSelf},
		{QuestionUID: "q1", ShowViewer: domain.ShowViewerAll},
	})
	if v, _ := stats.ViewerVisibility(ctx, "q1"); v != domain.ShowViewerAll {
		t.Fatalf("expected all when any config says all, got %s", v)
	}

	_ = stats.SaveStats(ctx, []domain.StatsConfig{{QuestionUID: "q1", ShowViewer: domain.ShowViewerSelf}})
	if v, _ := stats.ViewerVisibility(ctx, "q1"); v != domain.ShowViewerSelf {
		t.Fatalf("expected re-parse to replace configs, got %s", v)
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
