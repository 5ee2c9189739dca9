package app

import (
	"fmt"
	"strings"

	"quizctl/internal/domain"
)

// AnswerEncoding selects what the answer field of an end-quiz request carries.
type AnswerEncoding string

const (
	// EncodeKey sends the option letter ("A".."D").
	EncodeKey AnswerEncoding = "key"
	// EncodeText sends the literal text of the selected option.
	EncodeText AnswerEncoding = "text"
)

// ParseAnswerEncoding accepts "key" or "text"; empty means EncodeKey.
func ParseAnswerEncoding(raw string) (AnswerEncoding, error) {
	switch AnswerEncoding(strings.ToLower(strings.TrimSpace(raw))) {
	case "", EncodeKey:
		return EncodeKey, nil
	case EncodeText:
		return EncodeText, nil
	}
	return "", fmt.Errorf("unknown answer encoding %q", raw)
}

// BuildAnswers returns one entry per question in payload order. Unanswered
// questions carry an empty answer so the grader scores them as wrong.
func BuildAnswers(payload domain.AttemptPayload, answers domain.AnswerMap, enc AnswerEncoding) []domain.Answer {
	list := make([]domain.Answer, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		value := ""
		if key, ok := answers[q.ID]; ok {
			if enc == EncodeText {
				value = q.OptionText(key)
			} else {
				value = string(key)
			}
		}
		list = append(list, domain.Answer{QuestionID: q.ID, Answer: value})
	}
	return list
}
