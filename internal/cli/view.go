package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"quizctl/internal/app"
	"quizctl/internal/domain"
)

// formatClock renders seconds as mm:ss.
func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// htmlToText flattens question markup into plain text. Block elements and
// <br> become line breaks; runs of spaces collapse.
func htmlToText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.TrimSpace(raw)
	}
	nodes, err := html.ParseFragment(strings.NewReader(raw), nil)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "br":
				b.WriteString("\n")
				return
			case "li":
				b.WriteString("\n- ")
			case "p", "div", "ul", "ol", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "ul", "ol", "pre", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// renderQuestion prints the current question of a quiz-phase state.
func renderQuestion(w io.Writer, s app.State) {
	total := len(s.Questions)
	if total == 0 {
		fmt.Fprintln(w, "This quiz has no questions. Type r to restart or q to quit.")
		return
	}
	idx := s.CurrentIndex
	if idx < 0 || idx >= total {
		idx = 0
	}
	q := s.Questions[idx]

	clock := "no limit"
	if s.RemainingSeconds > 0 || s.Submitting {
		clock = formatClock(s.RemainingSeconds)
	}
	fmt.Fprintf(w, "\n[%s] Question %d of %d   answered %d/%d   time %s\n",
		s.Title, idx+1, total, s.AnsweredCount, total, clock)
	fmt.Fprintln(w, htmlToText(q.Text))

	selected := s.Answers[q.ID]
	for _, opt := range q.Options() {
		marker := " "
		if opt.Key == selected {
			marker = "*"
		}
		fmt.Fprintf(w, " %s %s) %s\n", marker, opt.Key, htmlToText(opt.Text))
	}
	if s.SubmitError != "" {
		fmt.Fprintf(w, "! %s\n", s.SubmitError)
	}
}

// renderResults prints a results-phase state.
func renderResults(w io.Writer, s app.State) {
	if s.Result == nil {
		return
	}
	r := *s.Result
	fmt.Fprintf(w, "\nQuiz finished: %s\n", s.Title)
	fmt.Fprintf(w, "  Grade     %.1f%% (%s)\n", r.Grade, s.Bucket)
	fmt.Fprintf(w, "  Correct   %d of %d\n", r.CorrectAnswers, r.TotalQuestions)
	fmt.Fprintf(w, "  Wrong     %d\n", r.WrongAnswers)
	fmt.Fprintf(w, "  Accuracy  %d%%\n", r.Accuracy())
}

func printQuizHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  a|b|c|d   select an option")
	fmt.Fprintln(w, "  n / p     next / previous question")
	fmt.Fprintln(w, "  g <k>     go to question k")
	fmt.Fprintln(w, "  s         submit")
	fmt.Fprintln(w, "  r         abandon and restart")
	fmt.Fprintln(w, "  q         quit")
}

func describeCommandError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrNothingAnswered):
		return "Answer at least one question before submitting."
	case errors.Is(err, domain.ErrIndexOutOfRange):
		return "No such question."
	case errors.Is(err, domain.ErrWrongPhase):
		return "That command is not available right now."
	}
	return err.Error()
}
