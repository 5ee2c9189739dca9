package memory

import (
	"context"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizctl/internal/domain"
	"quizctl/internal/gateway"
)

// QuizRepository caches quizzes with TTL to avoid repeated loader hits.
// Directory listings always go to the loader.
type QuizRepository struct {
	loader gateway.QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[int64]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader gateway.QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[int64]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

func (r *QuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	return r.loader.ListQuizzes(ctx, filter)
}

// Invalidate drops a cached quiz so the next read reloads it.
func (r *QuizRepository) Invalidate(quizID int64) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(quizID int64) (domain.Quiz, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(now) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[int64]domain.Quiz
}

func NewStaticQuizLoader(quizzes ...domain.Quiz) *StaticQuizLoader {
	byID := make(map[int64]domain.Quiz, len(quizzes))
	for _, q := range quizzes {
		byID[q.ID] = q
	}
	return &StaticQuizLoader{quizzes: byID}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// ListQuizzes filters by case-insensitive title substring and active flag,
// ordered by id.
func (l *StaticQuizLoader) ListQuizzes(_ context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	page, limit := domain.NormalizePage(filter.Page, filter.Limit)
	title := strings.ToLower(strings.TrimSpace(filter.Title))

	matched := make([]domain.QuizSummary, 0, len(l.quizzes))
	for _, q := range l.quizzes {
		if title != "" && !strings.Contains(strings.ToLower(q.Title), title) {
			continue
		}
		if filter.IsActive != nil && q.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, q.Summary())
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return domain.QuizPage{
		Total:   len(matched),
		Page:    page,
		Limit:   limit,
		Quizzes: pageOf(matched, page, limit),
	}, nil
}

func pageOf[T any](items []T, page, limit int) []T {
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
