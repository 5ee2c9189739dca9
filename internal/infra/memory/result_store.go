package memory

import (
	"context"
	"sort"
	"sync"

	"quizctl/internal/domain"
)

// ResultStore keeps recorded results in process, newest first when listed.
type ResultStore struct {
	mu      sync.RWMutex
	nextID  int64
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{nextID: 1}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = s.nextID
	s.nextID++
	s.results = append(s.results, result)
	return result, nil
}

func (s *ResultStore) GetResult(_ context.Context, id int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Result{}, domain.ErrResultNotFound
}

func (s *ResultStore) ListResults(_ context.Context, userID *int64, page, limit int) (domain.ResultPage, error) {
	page, limit = domain.NormalizePage(page, limit)

	s.mu.RLock()
	matched := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		if userID != nil && r.UserID != *userID {
			continue
		}
		matched = append(matched, r)
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return domain.ResultPage{
		Total:   len(matched),
		Page:    page,
		Limit:   limit,
		Results: pageOf(matched, page, limit),
	}, nil
}
