package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"quizctl/internal/app"
	"quizctl/internal/domain"
)

const lowTimeWarning = 60

const resultsHint = "Type r to take another quiz or q to quit."

var errQuit = errors.New("quit")

// terminal drives a Controller from line-oriented input. A watcher goroutine
// reports timer events and auto-submit outcomes while the prompt waits.
type terminal struct {
	ctrl      *app.Controller
	out       io.Writer
	serverURL string
	lines     <-chan string
	readErr   <-chan error

	outMu      sync.Mutex
	shown      map[string]bool // attempt ids whose results were printed
	timed      map[string]bool
	warned     map[string]bool
	expired    map[string]bool
	lastSubmit string

	manualSubmit atomic.Bool
	// preset start credentials, used once
	quizID int64
	pin    string
}

func newTerminal(ctrl *app.Controller, in io.Reader, out io.Writer, serverURL string) *terminal {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" || err == nil {
				lines <- strings.TrimSpace(line)
			}
			if err != nil {
				readErr <- err
				close(lines)
				return
			}
		}
	}()

	return &terminal{
		ctrl:      ctrl,
		out:       out,
		serverURL: serverURL,
		lines:     lines,
		readErr:   readErr,
		shown:     make(map[string]bool),
		timed:     make(map[string]bool),
		warned:    make(map[string]bool),
		expired:   make(map[string]bool),
	}
}

// run loops until quit, EOF or ctx is done.
func (t *terminal) run(ctx context.Context) error {
	updates, cancel := t.ctrl.Subscribe()
	defer cancel()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		for state := range updates {
			t.observe(state)
		}
	}()
	defer func() {
		cancel()
		<-watchDone
	}()

	t.printf("quizctl  server=%s\n", t.serverURL)
	for {
		var err error
		switch state := t.ctrl.Snapshot(); state.Phase {
		case app.PhaseStart:
			err = t.startScreen(ctx)
		case app.PhaseQuiz:
			err = t.quizScreen(ctx, state)
		case app.PhaseResults:
			err = t.resultsScreen(ctx, state)
		}
		switch {
		case errors.Is(err, errQuit), errors.Is(err, io.EOF):
			t.printf("\n")
			return nil
		case err != nil:
			return err
		}
	}
}

func (t *terminal) startScreen(ctx context.Context) error {
	quizID, pin := t.quizID, t.pin
	t.quizID, t.pin = 0, ""

	if quizID == 0 {
		raw, err := t.prompt(ctx, "\nQuiz ID (q to quit): ")
		if err != nil {
			return err
		}
		if raw == "q" {
			return errQuit
		}
		id, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr != nil || id <= 0 {
			t.printf("Quiz ID must be a positive number.\n")
			return nil
		}
		quizID = id
	}
	if pin == "" {
		raw, err := t.prompt(ctx, "PIN: ")
		if err != nil {
			return err
		}
		pin = raw
	}

	t.printf("Starting quiz %d...\n", quizID)
	if err := t.ctrl.Start(ctx, quizID, pin); err != nil {
		if msg := t.ctrl.Snapshot().StartError; msg != "" {
			t.printf("%s\n", msg)
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		t.printf("%s\n", describeClientError(err, t.serverURL))
	}
	return nil
}

func (t *terminal) quizScreen(ctx context.Context, state app.State) error {
	t.render(func(w io.Writer) { renderQuestion(w, state) })
	line, err := t.prompt(ctx, "> ")
	if err != nil {
		return err
	}

	// the attempt may have ended while we waited for input
	current := t.ctrl.Snapshot()
	if current.Phase != app.PhaseQuiz {
		return nil
	}

	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}

	var cmdErr error
	switch fields[0] {
	case "a", "b", "c", "d":
		if current.CurrentIndex < 0 || current.CurrentIndex >= len(current.Questions) {
			cmdErr = domain.ErrQuestionNotFound
			break
		}
		key, _ := domain.ParseOptionKey(fields[0])
		cmdErr = t.ctrl.SelectAnswer(current.Questions[current.CurrentIndex].ID, key)
	case "n", "next":
		cmdErr = t.ctrl.Next()
	case "p", "prev":
		cmdErr = t.ctrl.Prev()
	case "g", "go":
		if len(fields) != 2 {
			t.printf("usage: g <question number>\n")
			return nil
		}
		k, convErr := strconv.Atoi(fields[1])
		if convErr != nil {
			t.printf("usage: g <question number>\n")
			return nil
		}
		cmdErr = t.ctrl.Navigate(k - 1)
	case "s", "submit":
		return t.submit(ctx)
	case "r", "restart":
		ok, err := t.confirm(ctx, "Abandon this attempt? (yes/no): ")
		if err != nil || !ok {
			return err
		}
		cmdErr = t.ctrl.Restart()
	case "q", "quit":
		return errQuit
	case "h", "help", "?":
		t.render(printQuizHelp)
	default:
		t.printf("unknown command. type 'h' for help.\n")
	}
	if cmdErr != nil {
		t.printf("%s\n", describeCommandError(cmdErr))
	}
	return nil
}

func (t *terminal) submit(ctx context.Context) error {
	t.manualSubmit.Store(true)
	err := t.ctrl.Submit(ctx)
	t.manualSubmit.Store(false)

	switch {
	case err == nil:
		t.printResultsOnce(t.ctrl.Snapshot())
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, domain.ErrNothingAnswered), errors.Is(err, domain.ErrSubmitPending),
		errors.Is(err, domain.ErrWrongPhase), errors.Is(err, domain.ErrDiscarded):
		t.printf("%s\n", describeCommandError(err))
	default:
		// shown with the question on the next render
	}
	return nil
}

func (t *terminal) resultsScreen(ctx context.Context, state app.State) error {
	t.printResultsOnce(state)
	line, err := t.prompt(ctx, "> ")
	if err != nil {
		return err
	}
	switch strings.ToLower(line) {
	case "r", "restart":
		if t.ctrl.Snapshot().Phase == app.PhaseResults {
			if err := t.ctrl.Restart(); err != nil {
				t.printf("%s\n", describeCommandError(err))
			}
		}
	case "q", "quit":
		return errQuit
	case "":
	default:
		t.printf("%s\n", resultsHint)
	}
	return nil
}

// observe reacts to pushed state. It runs on the watcher goroutine.
func (t *terminal) observe(state app.State) {
	switch state.Phase {
	case app.PhaseResults:
		t.printResultsOnce(state)
	case app.PhaseQuiz:
		t.outMu.Lock()
		defer t.outMu.Unlock()

		id := state.AttemptID
		if state.RemainingSeconds > 0 {
			t.timed[id] = true
		}
		if !t.timed[id] {
			return
		}
		if state.RemainingSeconds > 0 && state.RemainingSeconds <= lowTimeWarning && !t.warned[id] {
			t.warned[id] = true
			fmt.Fprintf(t.out, "\n%s left.\n", formatClock(state.RemainingSeconds))
		}
		if state.RemainingSeconds == 0 && !t.expired[id] {
			t.expired[id] = true
			fmt.Fprintln(t.out, "\nTime is up. Submitting your answers...")
		}
		if state.SubmitError != "" && state.SubmitError != t.lastSubmit && !t.manualSubmit.Load() {
			fmt.Fprintf(t.out, "\n%s Type s to retry.\n", state.SubmitError)
		}
		t.lastSubmit = state.SubmitError
	}
}

// printResultsOnce prints each attempt's results a single time, whichever of
// the manual submit or the watcher sees them first.
func (t *terminal) printResultsOnce(state app.State) {
	if state.Phase != app.PhaseResults || state.Result == nil {
		return
	}
	t.outMu.Lock()
	defer t.outMu.Unlock()
	if t.shown[state.AttemptID] {
		return
	}
	t.shown[state.AttemptID] = true
	renderResults(t.out, state)
	fmt.Fprintln(t.out, resultsHint)
}

func (t *terminal) prompt(ctx context.Context, label string) (string, error) {
	t.printf("%s", label)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			return "", <-t.readErr
		}
		return line, nil
	}
}

func (t *terminal) confirm(ctx context.Context, label string) (bool, error) {
	for {
		line, err := t.prompt(ctx, label)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no", "":
			return false, nil
		default:
			t.printf("Please answer yes or no.\n")
		}
	}
}

func (t *terminal) printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) render(fn func(io.Writer)) {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	fn(t.out)
}

func describeClientError(err error, serverURL string) string {
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return fmt.Sprintf("quiz service unavailable at %s", serverURL)
	}
	return err.Error()
}
