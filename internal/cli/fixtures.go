package cli

import "quizctl/internal/domain"

// sampleQuizzes seeds the reference gateway when no database is configured,
// or when --seed is passed.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:              1,
			Title:           "Go Fundamentals",
			DurationMinutes: 5,
			PIN:             "1234",
			IsActive:        true,
			Questions: []domain.QuizQuestion{
				{
					Question: domain.Question{
						ID:      101,
						Text:    "<p>Which keyword starts a new <b>goroutine</b>?</p>",
						OptionA: "go",
						OptionB: "async",
						OptionC: "spawn",
						OptionD: "thread",
					},
					Correct: domain.OptionA,
				},
				{
					Question: domain.Question{
						ID:      102,
						Text:    "What is the zero value of a <code>map</code> variable?",
						OptionA: "An empty map",
						OptionB: "nil",
						OptionC: "0",
						OptionD: "It does not compile",
					},
					Correct: domain.OptionB,
				},
				{
					Question: domain.Question{
						ID:      103,
						Text:    "Which statement runs a call when the surrounding function returns?",
						OptionA: "finally",
						OptionB: "ensure",
						OptionC: "defer",
						OptionD: "after",
					},
					Correct: domain.OptionC,
				},
				{
					Question: domain.Question{
						ID:      104,
						Text:    "Sending on a closed channel...",
						OptionA: "blocks forever",
						OptionB: "is ignored",
						OptionC: "returns an error",
						OptionD: "panics",
					},
					Correct: domain.OptionD,
				},
			},
		},
		{
			ID:              2,
			Title:           "HTTP Basics",
			DurationMinutes: 2,
			PIN:             "0000",
			IsActive:        true,
			QuestionNumber:  2,
			Questions: []domain.QuizQuestion{
				{
					Question: domain.Question{
						ID:      201,
						Text:    "Which status code means <i>Too Many Requests</i>?",
						OptionA: "403",
						OptionB: "404",
						OptionC: "429",
						OptionD: "503",
					},
					Correct: domain.OptionC,
				},
				{
					Question: domain.Question{
						ID:      202,
						Text:    "Which method is idempotent?",
						OptionA: "PUT",
						OptionB: "POST",
						OptionC: "PATCH",
						OptionD: "CONNECT",
					},
					Correct: domain.OptionA,
				},
				{
					Question: domain.Question{
						ID:      203,
						Text:    "Which header carries a bearer token?",
						OptionA: "Cookie",
						OptionB: "Authorization",
						OptionC: "X-Token",
						OptionD: "Accept",
					},
					Correct: domain.OptionB,
				},
			},
		},
		{
			ID:              3,
			Title:           "Retired Quiz",
			DurationMinutes: 10,
			PIN:             "9999",
			IsActive:        false,
			Questions: []domain.QuizQuestion{
				{
					Question: domain.Question{
						ID:      301,
						Text:    "This quiz is no longer served.",
						OptionA: "ok",
						OptionB: "ok",
						OptionC: "ok",
						OptionD: "ok",
					},
					Correct: domain.OptionA,
				},
			},
		},
	}
}
