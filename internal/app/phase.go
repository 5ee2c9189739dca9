package app

import (
	"github.com/google/uuid"

	"quizctl/internal/domain"
)

// PhaseName is the wire name of a controller phase.
type PhaseName string

const (
	PhaseStart   PhaseName = "start"
	PhaseQuiz    PhaseName = "quiz"
	PhaseResults PhaseName = "results"
)

// Phase is the controller's current state. The concrete types are
// StartPhase, QuizPhase and ResultsPhase; no other type implements it.
type Phase interface {
	Name() PhaseName
	sealed()
}

// StartPhase means no attempt is active.
type StartPhase struct {
	Starting bool   // a start call is in flight
	Message  string // user-facing reason the last start failed
}

// QuizPhase holds a copy of the active attempt session.
type QuizPhase struct {
	AttemptID        uuid.UUID
	Payload          domain.AttemptPayload
	Answers          domain.AnswerMap
	CurrentIndex     int
	RemainingSeconds int
	Expired          bool
	Submitting       bool
	SubmitError      string
}

// ResultsPhase holds the grade of a finished attempt.
type ResultsPhase struct {
	AttemptID uuid.UUID
	QuizID    int64
	Title     string
	Result    domain.GradeResult
}

func (StartPhase) Name() PhaseName   { return PhaseStart }
func (QuizPhase) Name() PhaseName    { return PhaseQuiz }
func (ResultsPhase) Name() PhaseName { return PhaseResults }

func (StartPhase) sealed()   {}
func (QuizPhase) sealed()    {}
func (ResultsPhase) sealed() {}

// Current returns the question at CurrentIndex.
func (p QuizPhase) Current() (domain.Question, bool) {
	if p.CurrentIndex < 0 || p.CurrentIndex >= len(p.Payload.Questions) {
		return domain.Question{}, false
	}
	return p.Payload.Questions[p.CurrentIndex], true
}

// Bucket labels the grade for display.
func (p ResultsPhase) Bucket() domain.GradeBucket {
	return domain.BucketFor(p.Result.Grade)
}

// State is a flat, serializable view of a Phase for renderers and the
// websocket transport.
type State struct {
	Phase            PhaseName                  `json:"phase"`
	Starting         bool                       `json:"starting,omitempty"`
	StartError       string                     `json:"start_error,omitempty"`
	AttemptID        string                     `json:"attempt_id,omitempty"`
	QuizID           int64                      `json:"quiz_id,omitempty"`
	Title            string                     `json:"title,omitempty"`
	Questions        []domain.Question          `json:"questions,omitempty"`
	Answers          map[int64]domain.OptionKey `json:"answers,omitempty"`
	CurrentIndex     int                        `json:"current_index"`
	RemainingSeconds int                        `json:"remaining_seconds"`
	AnsweredCount    int                        `json:"answered_count"`
	Submitting       bool                       `json:"submitting,omitempty"`
	SubmitError      string                     `json:"submit_error,omitempty"`
	Result           *domain.GradeResult        `json:"result,omitempty"`
	Bucket           domain.GradeBucket         `json:"bucket,omitempty"`
}

// StateOf flattens a phase.
func StateOf(p Phase) State {
	switch p := p.(type) {
	case StartPhase:
		return State{Phase: PhaseStart, Starting: p.Starting, StartError: p.Message}
	case QuizPhase:
		return State{
			Phase:            PhaseQuiz,
			AttemptID:        p.AttemptID.String(),
			QuizID:           p.Payload.QuizID,
			Title:            p.Payload.Title,
			Questions:        p.Payload.Questions,
			Answers:          p.Answers,
			CurrentIndex:     p.CurrentIndex,
			RemainingSeconds: p.RemainingSeconds,
			AnsweredCount:    len(p.Answers),
			Submitting:       p.Submitting,
			SubmitError:      p.SubmitError,
		}
	case ResultsPhase:
		result := p.Result
		return State{
			Phase:     PhaseResults,
			AttemptID: p.AttemptID.String(),
			QuizID:    p.QuizID,
			Title:     p.Title,
			Result:    &result,
			Bucket:    p.Bucket(),
		}
	}
	return State{Phase: PhaseStart}
}
