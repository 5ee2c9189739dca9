package gateway

import (
	"math"
	"strings"

	"quizctl/internal/domain"
)

// Grade scores answers against the questions the quiz serves. Every served
// question counts; missing, empty or unknown answers are wrong. Entries for
// questions outside the served set are ignored.
func Grade(quiz domain.Quiz, answers []domain.Answer) domain.GradeResult {
	submitted := make(map[int64]string, len(answers))
	for _, a := range answers {
		submitted[a.QuestionID] = a.Answer
	}

	served := quiz.Served()
	correct := 0
	for _, q := range served {
		if isCorrect(q, submitted[q.ID]) {
			correct++
		}
	}

	total := len(served)
	grade := 0.0
	if total > 0 {
		grade = math.Round(float64(correct)/float64(total)*10000) / 100
	}
	return domain.GradeResult{
		TotalQuestions: total,
		CorrectAnswers: correct,
		WrongAnswers:   total - correct,
		Grade:          grade,
	}
}

// isCorrect accepts either the option letter or the option's text.
func isCorrect(q domain.QuizQuestion, answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	if key, ok := domain.ParseOptionKey(answer); ok && key == q.Correct {
		return true
	}
	want := strings.TrimSpace(q.OptionText(q.Correct))
	return want != "" && answer == want
}
