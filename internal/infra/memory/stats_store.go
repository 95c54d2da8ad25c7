package memory

import (
	"context"
	"sync"

	"textinput-service/internal/domain"
)

// StatsStore is an in-memory implementation of app.StatsRepository. A parse
// replaces every config previously stored for the questions it declares.
type StatsStore struct {
	mu      sync.RWMutex
	configs map[string][]domain.StatsConfig
}

func NewStatsStore() *StatsStore {
	return &StatsStore{configs: make(map[string][]domain.StatsConfig)}
}

func (s *StatsStore) SaveStats(_ context.Context, stats []domain.StatsConfig) error {
	grouped := make(map[string][]domain.StatsConfig)
	for _, cfg := range stats {
		grouped[cfg.QuestionUID] = append(grouped[cfg.QuestionUID], cfg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for uid, cfgs := range grouped {
		s.configs[uid] = cfgs
	}
	return nil
}

func (s *StatsStore) ViewerVisibility(_ context.Context, questionUID string) (domain.ShowViewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cfg := range s.configs[questionUID] {
		if cfg.ShowViewer == domain.ShowViewerAll {
			return domain.ShowViewerAll, nil
		}
	}
	return domain.ShowViewerSelf, nil
}
