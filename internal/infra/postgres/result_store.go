package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizctl/internal/domain"
)

// ResultStore persists graded attempts in the results table.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	err := s.pool.QueryRow(ctx, `
INSERT INTO results (quiz_id, user_id, grade, correct_answers, wrong_answers, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		result.QuizID, result.UserID, result.Grade, result.CorrectAnswers, result.WrongAnswers, result.CreatedAt,
	).Scan(&result.ID)
	if err != nil {
		return domain.Result{}, fmt.Errorf("insert result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) GetResult(ctx context.Context, id int64) (domain.Result, error) {
	var r domain.Result
	err := s.pool.QueryRow(ctx, `
SELECT id, quiz_id, user_id, grade, correct_answers, wrong_answers, created_at
FROM results WHERE id = $1`, id).
		Scan(&r.ID, &r.QuizID, &r.UserID, &r.Grade, &r.CorrectAnswers, &r.WrongAnswers, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, domain.ErrResultNotFound
		}
		return domain.Result{}, fmt.Errorf("get result %d: %w", id, err)
	}
	return r, nil
}

func (s *ResultStore) ListResults(ctx context.Context, userID *int64, page, limit int) (domain.ResultPage, error) {
	page, limit = domain.NormalizePage(page, limit)
	out := domain.ResultPage{Page: page, Limit: limit, Results: []domain.Result{}}

	if err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM results WHERE ($1::bigint IS NULL OR user_id = $1::bigint)`, userID,
	).Scan(&out.Total); err != nil {
		return domain.ResultPage{}, fmt.Errorf("count results: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT id, quiz_id, user_id, grade, correct_answers, wrong_answers, created_at
FROM results
WHERE ($1::bigint IS NULL OR user_id = $1::bigint)
ORDER BY id DESC
LIMIT $2 OFFSET $3`, userID, limit, (page-1)*limit)
	if err != nil {
		return domain.ResultPage{}, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.Result
		if err := rows.Scan(&r.ID, &r.QuizID, &r.UserID, &r.Grade, &r.CorrectAnswers, &r.WrongAnswers, &r.CreatedAt); err != nil {
			return domain.ResultPage{}, fmt.Errorf("scan result: %w", err)
		}
		out.Results = append(out.Results, r)
	}
	if err := rows.Err(); err != nil {
		return domain.ResultPage{}, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}
