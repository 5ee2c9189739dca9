package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizctl/internal/domain"
)

// QuizLoader loads quiz JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz, err := decodeQuiz(quizID, raw)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

const quizFilterClause = `
WHERE ($1::text = '' OR data->>'title' ILIKE '%' || $1::text || '%')
  AND ($2::boolean IS NULL OR COALESCE((data->>'is_active')::boolean, false) = $2::boolean)`

func (l *QuizLoader) ListQuizzes(ctx context.Context, filter domain.QuizFilter) (domain.QuizPage, error) {
	page, limit := domain.NormalizePage(filter.Page, filter.Limit)
	out := domain.QuizPage{Page: page, Limit: limit, Quizzes: []domain.QuizSummary{}}

	if err := l.pool.QueryRow(ctx, `SELECT count(*) FROM quizzes`+quizFilterClause,
		filter.Title, filter.IsActive).Scan(&out.Total); err != nil {
		return domain.QuizPage{}, fmt.Errorf("count quizzes: %w", err)
	}

	rows, err := l.pool.Query(ctx, `SELECT id, data FROM quizzes`+quizFilterClause+` ORDER BY id LIMIT $3 OFFSET $4`,
		filter.Title, filter.IsActive, limit, (page-1)*limit)
	if err != nil {
		return domain.QuizPage{}, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return domain.QuizPage{}, fmt.Errorf("scan quiz: %w", err)
		}
		quiz, err := decodeQuiz(id, raw)
		if err != nil {
			return domain.QuizPage{}, err
		}
		out.Quizzes = append(out.Quizzes, quiz.Summary())
	}
	if err := rows.Err(); err != nil {
		return domain.QuizPage{}, fmt.Errorf("list quizzes: %w", err)
	}
	return out, nil
}

// SaveQuiz upserts a quiz document.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2::jsonb) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, string(data))
	if err != nil {
		return fmt.Errorf("save quiz %d: %w", quiz.ID, err)
	}
	return nil
}

// decodeQuiz trusts the row id over the id stored in the document.
func decodeQuiz(id int64, raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz %d: %w", id, err)
	}
	quiz.ID = id
	return quiz, nil
}
