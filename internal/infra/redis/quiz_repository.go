package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"quizctl/internal/domain"
	"quizctl/internal/gateway"
)

// QuizRepository caches full quiz documents in Redis and falls back to a
// loader on cache miss. Documents are stored as JSON under quiz:{quizID}.
type QuizRepository struct {
	client *redis.Client
	loader gateway.QuizLoader
	ttl    time.Duration
	sf     singleflight.Group
	log    zerolog.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader gateway.QuizLoader, ttl time.Duration, log zerolog.Logger) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		log:    log.With().Str("component", "redis_quiz_cache").Logger(),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := r.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if quiz, ok := r.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		raw, err := json.Marshal(quiz)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("marshal quiz: %w", err)
		}
		if err := r.client.Set(ctx, quizKey(quizID), raw, r.ttlWithJitter()).Err(); err != nil {
			r.log.Warn().Err(err).Int64("quiz_id", quizID).Msg("cache quiz")
		}
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

// Invalidate removes the cached document for quizID.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID int64) error {
	return r.client.Del(ctx, quizKey(quizID)).Err()
}

func (r *QuizRepository) cached(ctx context.Context, quizID int64) (domain.Quiz, bool) {
	raw, err := r.client.Get(ctx, quizKey(quizID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Int64("quiz_id", quizID).Msg("read cached quiz")
		}
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		r.log.Warn().Err(err).Int64("quiz_id", quizID).Msg("decode cached quiz")
		return domain.Quiz{}, false
	}
	return quiz, true
}

func quizKey(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10)
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
