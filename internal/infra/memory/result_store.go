package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/magnusohlin/numba/internal/domain"
)

// ResultStore keeps finished games in process memory, newest first.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.GameResult
	limit   int
}

// NewResultStore retains at most limit results; zero keeps everything.
func NewResultStore(limit int) *ResultStore {
	return &ResultStore{limit: limit}
}

func (s *ResultStore) RecordResult(_ context.Context, result domain.GameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	sort.SliceStable(s.results, func(i, j int) bool {
		return s.results[i].FinishedAt.After(s.results[j].FinishedAt)
	})
	if s.limit > 0 && len(s.results) > s.limit {
		s.results = s.results[:s.limit]
	}
	return nil
}

func (s *ResultStore) RecentResults(_ context.Context, limit int) ([]domain.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]domain.GameResult, limit)
	copy(out, s.results[:limit])
	return out, nil
}

func (s *ResultStore) Result(_ context.Context, id string) (domain.GameResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.GameResult{}, domain.ErrResultNotFound
}
