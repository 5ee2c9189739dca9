package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizctl/internal/domain"
	"quizctl/internal/gateway"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz())}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
		t.Fatalf("get quiz after expiry: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryCollapsesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(sampleQuiz()), gate: release}
	repo := NewQuizRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetQuiz(context.Background(), 1); err != nil {
				t.Errorf("get quiz: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected one load for concurrent misses, got %d", loader.calls.Load())
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), 42); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestStaticQuizLoaderListFilters(t *testing.T) {
	active := true
	inactive := sampleQuiz()
	inactive.ID = 2
	inactive.Title = "Go Basics: Archived"
	inactive.IsActive = false
	other := sampleQuiz()
	other.ID = 3
	other.Title = "History"

	loader := NewStaticQuizLoader(sampleQuiz(), inactive, other)

	page, err := loader.ListQuizzes(context.Background(), domain.QuizFilter{Title: "go basics"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Quizzes) != 2 || page.Quizzes[0].ID != 1 || page.Quizzes[1].ID != 2 {
		t.Fatalf("unexpected title filter page: %+v", page)
	}

	page, err = loader.ListQuizzes(context.Background(), domain.QuizFilter{IsActive: &active, Limit: 1, Page: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Quizzes) != 1 || page.Quizzes[0].ID != 3 {
		t.Fatalf("unexpected active page: %+v", page)
	}
	if page.Page != 2 || page.Limit != 1 {
		t.Fatalf("expected page echo, got page=%d limit=%d", page.Page, page.Limit)
	}

	page, _ = loader.ListQuizzes(context.Background(), domain.QuizFilter{Page: 9})
	if page.Total != 3 || len(page.Quizzes) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", page)
	}
}

type countingLoader struct {
	gateway.QuizLoader
	gate  chan struct{}
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:              1,
		Title:           "Go Basics",
		DurationMinutes: 5,
		PIN:             "1234",
		IsActive:        true,
		Questions: []domain.QuizQuestion{
			{
				Question: domain.Question{
					ID:      10,
					Text:    "What is 2 + 2?",
					OptionA: "3",
					OptionB: "4",
					OptionC: "5",
					OptionD: "22",
				},
				Correct: domain.OptionB,
			},
		},
	}
}
