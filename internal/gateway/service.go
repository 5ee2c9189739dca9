package gateway

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"quizctl/internal/domain"
)

// QuizLoader fetches quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error)
}

// QuizRepository serves quizzes, usually through a cache in front of a QuizLoader.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error)
}

// ResultStore records graded attempts.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.Result) (domain.Result, error)
	ListResults(ctx context.Context, userID *int64, page, limit int) (domain.ResultPage, error)
	GetResult(ctx context.Context, id int64) (domain.Result, error)
}

// Limiter throttles attempt starts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Service implements the attempt gateway: PIN-gated starts and grading.
type Service struct {
	quizzes QuizRepository
	results ResultStore
	limiter Limiter
	now     func() time.Time
	log     zerolog.Logger
}

// NewService wires the gateway. A nil limiter disables throttling.
func NewService(quizzes QuizRepository, results ResultStore, limiter Limiter, log zerolog.Logger) *Service {
	return &Service{
		quizzes: quizzes,
		results: results,
		limiter: limiter,
		now:     time.Now,
		log:     log.With().Str("component", "gateway").Logger(),
	}
}

// StartQuiz checks the PIN and returns the served questions without their
// correct options. clientKey identifies the caller for throttling.
func (s *Service) StartQuiz(ctx context.Context, req domain.StartRequest, clientKey string) (domain.AttemptPayload, error) {
	if err := domain.Validate(req); err != nil {
		return domain.AttemptPayload{}, err
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, clientKey+":"+strconv.FormatInt(req.QuizID, 10))
		if err != nil {
			return domain.AttemptPayload{}, fmt.Errorf("check attempt limit: %w", err)
		}
		if !allowed {
			s.log.Warn().Str("client", clientKey).Int64("quiz_id", req.QuizID).Msg("attempt start throttled")
			return domain.AttemptPayload{}, domain.ErrRateLimited
		}
	}

	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.AttemptPayload{}, err
	}
	if !quiz.IsActive {
		return domain.AttemptPayload{}, domain.ErrQuizNotFound
	}
	if subtle.ConstantTimeCompare([]byte(quiz.PIN), []byte(req.PIN)) != 1 {
		return domain.AttemptPayload{}, domain.ErrInvalidCredentials
	}

	served := quiz.Served()
	questions := make([]domain.Question, 0, len(served))
	for _, q := range served {
		questions = append(questions, q.Question)
	}
	s.log.Info().Int64("quiz_id", quiz.ID).Int("questions", len(questions)).Msg("attempt started")
	return domain.AttemptPayload{
		QuizID:          quiz.ID,
		Title:           quiz.Title,
		DurationMinutes: quiz.DurationMinutes,
		Questions:       questions,
	}, nil
}

// EndQuiz grades the submitted answers and records the result for known users.
func (s *Service) EndQuiz(ctx context.Context, req domain.EndRequest) (domain.GradeResult, error) {
	if err := domain.Validate(req); err != nil {
		return domain.GradeResult{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		return domain.GradeResult{}, err
	}

	result := Grade(quiz, req.Answers)
	if req.UserID != nil {
		_, err := s.results.SaveResult(ctx, domain.Result{
			QuizID:         quiz.ID,
			UserID:         *req.UserID,
			Grade:          result.Grade,
			CorrectAnswers: result.CorrectAnswers,
			WrongAnswers:   result.WrongAnswers,
			CreatedAt:      s.now().UTC(),
		})
		if err != nil {
			return domain.GradeResult{}, fmt.Errorf("save result: %w", err)
		}
	}

	logEvent := s.log.Info().Int64("quiz_id", quiz.ID).Float64("grade", result.Grade)
	if req.UserID != nil {
		logEvent = logEvent.Int64("user_id", *req.UserID)
	}
	logEvent.Msg("attempt graded")
	return result, nil
}

// ListQuizzes returns one page of the quiz directory.
func (s *Service) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	filter.Page, filter.Limit = domain.NormalizePage(filter.Page, filter.Limit)
	return s.quizzes.ListQuizzes(ctx, filter)
}

// GetQuiz returns a directory row for one quiz.
func (s *Service) GetQuiz(ctx context.Context, quizID int64) (domain.QuizSummary, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return quiz.Summary(), nil
}

// ListResults pages recorded results, optionally for one user.
func (s *Service) ListResults(ctx context.Context, userID *int64, page, limit int) (domain.ResultPage, error) {
	page, limit = domain.NormalizePage(page, limit)
	return s.results.ListResults(ctx, userID, page, limit)
}

// GetResult returns one recorded result.
func (s *Service) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	return s.results.GetResult(ctx, id)
}
