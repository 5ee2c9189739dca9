package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestBucketForBoundaries(t *testing.T) {
	cases := []struct {
		grade float64
		want  GradeBucket
	}{
		{100, BucketGood},
		{80, BucketGood},
		{79.99, BucketMedium},
		{60, BucketMedium},
		{59.9, BucketPoor},
		{0, BucketPoor},
	}
	for _, tc := range cases {
		if got := BucketFor(tc.grade); got != tc.want {
			t.Fatalf("BucketFor(%v) = %s, want %s", tc.grade, got, tc.want)
		}
	}
}

func TestAccuracy(t *testing.T) {
	g := GradeResult{TotalQuestions: 3, CorrectAnswers: 2, WrongAnswers: 1, Grade: 66.67}
	if g.Accuracy() != 67 {
		t.Fatalf("accuracy = %d, want 67", g.Accuracy())
	}
	if (GradeResult{}).Accuracy() != 0 {
		t.Fatalf("expected zero accuracy for empty result")
	}
}

func TestParseOptionKey(t *testing.T) {
	if k, ok := ParseOptionKey(" b "); !ok || k != OptionB {
		t.Fatalf("expected B, got %q ok=%v", k, ok)
	}
	if _, ok := ParseOptionKey("e"); ok {
		t.Fatalf("expected e to be rejected")
	}
}

func TestQuizServedHonoursQuestionNumber(t *testing.T) {
	quiz := Quiz{
		QuestionNumber: 2,
		Questions: []QuizQuestion{
			{Question: Question{ID: 1}}, {Question: Question{ID: 2}}, {Question: Question{ID: 3}},
		},
	}
	served := quiz.Served()
	if len(served) != 2 || served[1].ID != 2 {
		t.Fatalf("unexpected served questions: %+v", served)
	}
	if quiz.Summary().QuestionNumber != 2 {
		t.Fatalf("summary question number = %d", quiz.Summary().QuestionNumber)
	}

	quiz.QuestionNumber = 0
	if len(quiz.Served()) != 3 {
		t.Fatalf("expected all questions when question_number is 0")
	}
}

func TestValidateStartRequest(t *testing.T) {
	err := Validate(StartRequest{QuizID: 0, PIN: ""})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if _, ok := ve.Fields["pin"]; !ok {
		t.Fatalf("expected pin field error, got %+v", ve.Fields)
	}
	if _, ok := ve.Fields["quiz_id"]; !ok {
		t.Fatalf("expected quiz_id field error, got %+v", ve.Fields)
	}
	if !strings.HasPrefix(err.Error(), "validation failed: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	if err := Validate(StartRequest{QuizID: 5, PIN: "1234"}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}
