package domain

import (
	"math"
	"strings"
	"time"
)

// OptionKey identifies one of the four options of a question.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys lists the option keys in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// ParseOptionKey accepts "a".."d" in any case.
func ParseOptionKey(raw string) (OptionKey, bool) {
	key := OptionKey(strings.ToUpper(strings.TrimSpace(raw)))
	for _, k := range OptionKeys {
		if k == key {
			return k, true
		}
	}
	return "", false
}

// QuizSummary is a row of the quiz directory.
type QuizSummary struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	QuestionNumber  int    `json:"question_number"`
	DurationMinutes int    `json:"duration"`
	IsActive        bool   `json:"is_active"`
}

// QuizFilter narrows a directory listing. Zero values mean "no filter".
type QuizFilter struct {
	Page     int
	Limit    int
	Title    string
	IsActive *bool
}

// QuizPage is one page of the quiz directory.
type QuizPage struct {
	Total   int           `json:"total"`
	Page    int           `json:"page"`
	Limit   int           `json:"limit"`
	Quizzes []QuizSummary `json:"quizzes"`
}

// Question is a multiple choice question as served to an attempt. It never
// carries the correct answer.
type Question struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
}

// Option pairs an option key with its text.
type Option struct {
	Key  OptionKey `json:"key"`
	Text string    `json:"text"`
}

// Options returns the four options in display order.
func (q Question) Options() []Option {
	return []Option{
		{Key: OptionA, Text: q.OptionA},
		{Key: OptionB, Text: q.OptionB},
		{Key: OptionC, Text: q.OptionC},
		{Key: OptionD, Text: q.OptionD},
	}
}

// OptionText returns the text behind key, or "" for an unknown key.
func (q Question) OptionText(key OptionKey) string {
	switch key {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// AttemptPayload is returned by a successful start call and fixes the
// ordered question set of the attempt.
type AttemptPayload struct {
	QuizID          int64      `json:"quiz_id"`
	Title           string     `json:"title"`
	DurationMinutes int        `json:"duration"`
	Questions       []Question `json:"questions"`
}

// AnswerMap maps a question id to the selected option.
type AnswerMap map[int64]OptionKey

// StartRequest is the body of POST /quiz_process/start_quiz.
type StartRequest struct {
	QuizID int64  `json:"quiz_id" validate:"required,gt=0"`
	PIN    string `json:"pin" validate:"required"`
}

// Answer is one entry of an end-quiz request. An empty Answer means the
// question was left unanswered.
type Answer struct {
	QuestionID int64  `json:"question_id"`
	Answer     string `json:"answer"`
}

// EndRequest is the body of POST /quiz_process/end_quiz.
type EndRequest struct {
	QuizID  int64    `json:"quiz_id" validate:"required,gt=0"`
	UserID  *int64   `json:"user_id"`
	Answers []Answer `json:"answers" validate:"dive"`
}

// GradeResult is the server's verdict for a finished attempt.
type GradeResult struct {
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	WrongAnswers   int     `json:"wrong_answers"`
	Grade          float64 `json:"grade"`
}

// Accuracy is the rounded share of correct answers in percent.
func (g GradeResult) Accuracy() int {
	if g.TotalQuestions <= 0 {
		return 0
	}
	return int(math.Round(float64(g.CorrectAnswers) / float64(g.TotalQuestions) * 100))
}

// Role is a named permission group of a user.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User is the signed-in identity as returned by GET /user/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Roles    []Role `json:"roles,omitempty"`
}

// Result is a recorded attempt outcome.
type Result struct {
	ID             int64     `json:"id"`
	QuizID         int64     `json:"quiz_id"`
	UserID         int64     `json:"user_id"`
	Grade          float64   `json:"grade"`
	CorrectAnswers int       `json:"correct_answers"`
	WrongAnswers   int       `json:"wrong_answers"`
	CreatedAt      time.Time `json:"created_at"`
}

// ResultPage is one page of recorded results.
type ResultPage struct {
	Total   int      `json:"total"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
	Results []Result `json:"results"`
}

// QuizQuestion is a question together with its correct option.
type QuizQuestion struct {
	Question
	Correct OptionKey `json:"correct"`
}

// Quiz is the full, server-side quiz definition.
type Quiz struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	QuestionNumber  int            `json:"question_number"` // 0 serves every question
	DurationMinutes int            `json:"duration"`
	PIN             string         `json:"pin"`
	IsActive        bool           `json:"is_active"`
	Questions       []QuizQuestion `json:"questions"`
}

// Summary strips the quiz down to its directory row.
func (q Quiz) Summary() QuizSummary {
	number := q.QuestionNumber
	if number <= 0 || number > len(q.Questions) {
		number = len(q.Questions)
	}
	return QuizSummary{
		ID:              q.ID,
		Title:           q.Title,
		QuestionNumber:  number,
		DurationMinutes: q.DurationMinutes,
		IsActive:        q.IsActive,
	}
}

// Served returns the questions an attempt receives, in order.
func (q Quiz) Served() []QuizQuestion {
	if q.QuestionNumber > 0 && q.QuestionNumber < len(q.Questions) {
		return q.Questions[:q.QuestionNumber]
	}
	return q.Questions
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NormalizePage applies the directory defaults: page 1, limit 10, limit at most 100.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
