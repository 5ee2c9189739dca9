package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizctl/internal/app"
	"quizctl/internal/domain"
)

func TestStartInitializesSession(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))

	phase, ok := c.Phase().(app.QuizPhase)
	require.True(t, ok, "expected quiz phase, got %T", c.Phase())
	assert.Equal(t, 60, phase.RemainingSeconds)
	assert.Equal(t, 0, phase.CurrentIndex)
	assert.Empty(t, phase.Answers)
	assert.Equal(t, domain.StartRequest{QuizID: 5, PIN: "1234"}, gw.lastStart())
}

func TestStartValidationSkipsGateway(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	err := c.Start(context.Background(), 5, "")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	err = c.Start(context.Background(), 0, "1234")
	require.ErrorAs(t, err, &ve)

	phase, ok := c.Phase().(app.StartPhase)
	require.True(t, ok)
	assert.Equal(t, "Please enter both Quiz ID and PIN.", phase.Message)
	assert.Equal(t, 0, gw.startCount())
}

func TestStartFailuresStayInStartPhase(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{"invalid pin", domain.ErrInvalidCredentials, "Invalid Quiz ID or PIN."},
		{"not found", domain.ErrQuizNotFound, "Quiz not found or not active."},
		{"rate limited", domain.ErrRateLimited, "Too many attempts. Please wait and try again."},
		{"unavailable", domain.ErrServiceUnavailable, "Quiz service is unavailable. Please try again."},
		{"other", errors.New("boom"), "Failed to start quiz. Check your Quiz ID and PIN."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway(samplePayload())
			gw.startErr = tc.err
			c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
			defer c.Close()

			err := c.Start(context.Background(), 5, "1234")
			require.ErrorIs(t, err, tc.err)

			phase, ok := c.Phase().(app.StartPhase)
			require.True(t, ok, "expected start phase, got %T", c.Phase())
			assert.Equal(t, tc.msg, phase.Message)
			assert.False(t, phase.Starting)
		})
	}
}

func TestStartRejectedOutsideStartPhase(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.ErrorIs(t, c.Start(context.Background(), 5, "1234"), domain.ErrWrongPhase)
	assert.Equal(t, 1, gw.startCount())
}

func TestTimerExpiryAutoSubmitsOnce(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.result = domain.GradeResult{TotalQuestions: 2, CorrectAnswers: 1, WrongAnswers: 1, Grade: 50}
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.NoError(t, c.SelectAnswer(10, domain.OptionB))

	ticker := clock.last()
	countDown(t, c, ticker, 60)

	require.Eventually(t, func() bool {
		_, ok := c.Phase().(app.ResultsPhase)
		return ok
	}, time.Second, time.Millisecond)

	ends := gw.endRequests()
	require.Len(t, ends, 1)
	assert.Equal(t, []domain.Answer{
		{QuestionID: 10, Answer: "B"},
		{QuestionID: 11, Answer: ""},
	}, ends[0].Answers)
	assert.Nil(t, ends[0].UserID)

	results := c.Phase().(app.ResultsPhase)
	assert.Equal(t, 50.0, results.Result.Grade)
	assert.Equal(t, domain.BucketPoor, results.Bucket(), "50 is below the medium threshold")

	assert.False(t, ticker.tick(), "ticker must stop after expiry")
	assert.Len(t, gw.endRequests(), 1)
}

func TestTimerAutoSubmitsWithZeroAnswers(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	countDown(t, c, clock.last(), 60)

	require.Eventually(t, func() bool { return len(gw.endRequests()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []domain.Answer{
		{QuestionID: 10, Answer: ""},
		{QuestionID: 11, Answer: ""},
	}, gw.endRequests()[0].Answers)
}

func TestConcurrentSubmitTriggersCallGatewayOnce(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.endGate = make(chan struct{})
	gw.endEntered = make(chan struct{}, 4)
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.NoError(t, c.SelectAnswer(11, domain.OptionA))

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Submit(context.Background()) }()
	<-gw.endEntered

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, c.Submit(context.Background()), domain.ErrSubmitPending)
	}
	// Expiry while the manual submit is pending must not issue a second call.
	countDown(t, c, clock.last(), 60)

	close(gw.endGate)
	require.NoError(t, <-firstDone)
	_, ok := c.Phase().(app.ResultsPhase)
	require.True(t, ok)
	assert.Len(t, gw.endRequests(), 1)
}

func TestManualSubmitRequiresAnAnswer(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.ErrorIs(t, c.Submit(context.Background()), domain.ErrNothingAnswered)
	assert.Empty(t, gw.endRequests())
}

func TestSubmitSendsEveryQuestionInOrder(t *testing.T) {
	payload := domain.AttemptPayload{
		QuizID:          9,
		Title:           "Three",
		DurationMinutes: 5,
		Questions: []domain.Question{
			{ID: 1, Text: "one", OptionA: "a1", OptionB: "b1", OptionC: "c1", OptionD: "d1"},
			{ID: 2, Text: "two", OptionA: "a2", OptionB: "b2", OptionC: "c2", OptionD: "d2"},
			{ID: 3, Text: "three", OptionA: "a3", OptionB: "b3", OptionC: "c3", OptionD: "d3"},
		},
	}

	for _, tc := range []struct {
		enc  app.AnswerEncoding
		want []domain.Answer
	}{
		{app.EncodeKey, []domain.Answer{
			{QuestionID: 1, Answer: "C"}, {QuestionID: 2, Answer: ""}, {QuestionID: 3, Answer: "A"},
		}},
		{app.EncodeText, []domain.Answer{
			{QuestionID: 1, Answer: "c1"}, {QuestionID: 2, Answer: ""}, {QuestionID: 3, Answer: "a3"},
		}},
	} {
		t.Run(string(tc.enc), func(t *testing.T) {
			gw := newFakeGateway(payload)
			c := app.NewController(gw, nil, app.WithClock(&manualClock{}), app.WithAnswerEncoding(tc.enc))
			defer c.Close()

			require.NoError(t, c.Start(context.Background(), 9, "pin"))
			require.NoError(t, c.SelectAnswer(3, domain.OptionA))
			require.NoError(t, c.SelectAnswer(1, domain.OptionD))
			require.NoError(t, c.SelectAnswer(1, domain.OptionC)) // overwrite
			require.NoError(t, c.Submit(context.Background()))

			ends := gw.endRequests()
			require.Len(t, ends, 1)
			assert.Equal(t, int64(9), ends[0].QuizID)
			assert.Equal(t, tc.want, ends[0].Answers)
		})
	}
}

func TestSubmitFailureKeepsAttemptAndAllowsRetry(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.setEndErr(domain.ErrServiceUnavailable)
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.NoError(t, c.SelectAnswer(10, domain.OptionA))

	require.ErrorIs(t, c.Submit(context.Background()), domain.ErrServiceUnavailable)
	phase, ok := c.Phase().(app.QuizPhase)
	require.True(t, ok)
	assert.False(t, phase.Submitting)
	assert.NotEmpty(t, phase.SubmitError)
	assert.Equal(t, domain.OptionA, phase.Answers[10])

	gw.setEndErr(nil)
	require.NoError(t, c.Submit(context.Background()))
	_, ok = c.Phase().(app.ResultsPhase)
	assert.True(t, ok)
	assert.Len(t, gw.endRequests(), 2)
}

func TestFailedAutoSubmitCanBeRetriedWithoutAnswers(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.setEndErr(errors.New("gateway down"))
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	countDown(t, c, clock.last(), 60)

	require.Eventually(t, func() bool {
		phase, ok := c.Phase().(app.QuizPhase)
		return ok && phase.Expired && phase.SubmitError != "" && !phase.Submitting
	}, time.Second, time.Millisecond)

	gw.setEndErr(nil)
	require.NoError(t, c.Submit(context.Background()))
	_, ok := c.Phase().(app.ResultsPhase)
	assert.True(t, ok)
}

func TestRestartClearsAttemptState(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	ticker := clock.last()
	require.NoError(t, c.SelectAnswer(10, domain.OptionB))
	require.NoError(t, c.Navigate(1))
	require.NoError(t, c.Submit(context.Background()))
	require.Eventually(t, ticker.isStopped, time.Second, time.Millisecond)
	assert.False(t, ticker.tick(), "ticker must stop after a manual submit")
	require.NoError(t, c.Restart())

	_, ok := c.Phase().(app.StartPhase)
	require.True(t, ok)

	next := samplePayload()
	next.DurationMinutes = 2
	gw.setPayload(next)
	require.NoError(t, c.Start(context.Background(), 5, "1234"))

	phase := c.Phase().(app.QuizPhase)
	assert.Equal(t, 0, phase.CurrentIndex)
	assert.Empty(t, phase.Answers)
	assert.Equal(t, 120, phase.RemainingSeconds)
}

func TestRestartDuringQuizStopsTimer(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	ticker := clock.last()
	require.NoError(t, c.Restart())

	require.Eventually(t, ticker.isStopped, time.Second, time.Millisecond)
	assert.Empty(t, gw.endRequests())
}

func TestNavigateBounds(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	require.ErrorIs(t, c.Navigate(0), domain.ErrWrongPhase)
	require.NoError(t, c.Start(context.Background(), 5, "1234"))

	require.NoError(t, c.Prev())
	assert.Equal(t, 0, c.Snapshot().CurrentIndex)
	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	assert.Equal(t, 1, c.Snapshot().CurrentIndex)
	require.ErrorIs(t, c.Navigate(2), domain.ErrIndexOutOfRange)
	require.ErrorIs(t, c.Navigate(-1), domain.ErrIndexOutOfRange)
	require.NoError(t, c.Navigate(0))
	assert.Equal(t, 0, c.Snapshot().CurrentIndex)

	require.ErrorIs(t, c.SelectAnswer(999, domain.OptionA), domain.ErrQuestionNotFound)
}

func TestStaleStartIsDroppedAfterRestart(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.startGate = make(chan struct{})
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Start(context.Background(), 5, "1234") }()
	require.Eventually(t, func() bool { return c.Snapshot().Starting }, time.Second, time.Millisecond)
	require.ErrorIs(t, c.Start(context.Background(), 5, "1234"), domain.ErrStartPending)

	require.NoError(t, c.Restart())
	close(gw.startGate)
	require.ErrorIs(t, <-done, domain.ErrDiscarded)

	_, ok := c.Phase().(app.StartPhase)
	assert.True(t, ok)
}

func TestCloseDropsInFlightSubmit(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	gw.endGate = make(chan struct{})
	gw.endEntered = make(chan struct{}, 1)
	clock := &manualClock{}
	c := app.NewController(gw, nil, app.WithClock(clock))

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.NoError(t, c.SelectAnswer(10, domain.OptionC))
	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-gw.endEntered

	c.Close()
	close(gw.endGate)
	require.ErrorIs(t, <-done, domain.ErrDiscarded)
	require.Eventually(t, clock.last().isStopped, time.Second, time.Millisecond)
	require.ErrorIs(t, c.Restart(), domain.ErrClosed)
}

func TestSubmitAttachesCurrentUser(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	identity := staticIdentity{user: &domain.User{ID: 7, Username: "alice"}}
	c := app.NewController(gw, identity, app.WithClock(&manualClock{}))
	defer c.Close()

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.NoError(t, c.SelectAnswer(10, domain.OptionA))
	require.NoError(t, c.Submit(context.Background()))

	ends := gw.endRequests()
	require.Len(t, ends, 1)
	require.NotNil(t, ends[0].UserID)
	assert.Equal(t, int64(7), *ends[0].UserID)
}

func TestSubscribeStreamsPhaseChanges(t *testing.T) {
	gw := newFakeGateway(samplePayload())
	c := app.NewController(gw, nil, app.WithClock(&manualClock{}))

	updates, cancel := c.Subscribe()
	defer cancel()

	initial := <-updates
	assert.Equal(t, app.PhaseStart, initial.Phase)

	require.NoError(t, c.Start(context.Background(), 5, "1234"))
	require.Eventually(t, func() bool {
		for {
			select {
			case st := <-updates:
				if st.Phase == app.PhaseQuiz {
					return st.RemainingSeconds == 60 && len(st.Questions) == 2
				}
			default:
				return false
			}
		}
	}, time.Second, time.Millisecond)

	c.Close()
	for range updates {
	}
}

func countDown(t *testing.T, c *app.Controller, ticker *manualTicker, from int) {
	t.Helper()
	for want := from - 1; want > 0; want-- {
		require.True(t, ticker.tick(), "tick towards %d not delivered", want)
		require.Eventually(t, func() bool { return remaining(c) == want }, time.Second, time.Millisecond)
	}
	require.True(t, ticker.tick(), "final tick not delivered")
}

func remaining(c *app.Controller) int {
	if phase, ok := c.Phase().(app.QuizPhase); ok {
		return phase.RemainingSeconds
	}
	return -1
}

func samplePayload() domain.AttemptPayload {
	return domain.AttemptPayload{
		QuizID:          5,
		Title:           "Sample",
		DurationMinutes: 1,
		Questions: []domain.Question{
			{ID: 10, Text: "2 + 2?", OptionA: "3", OptionB: "4", OptionC: "5", OptionD: "6"},
			{ID: 11, Text: "Capital of France?", OptionA: "Paris", OptionB: "Rome", OptionC: "Oslo", OptionD: "Bern"},
		},
	}
}

type fakeGateway struct {
	mu         sync.Mutex
	payload    domain.AttemptPayload
	startErr   error
	result     domain.GradeResult
	endErr     error
	starts     []domain.StartRequest
	ends       []domain.EndRequest
	startGate  chan struct{}
	endGate    chan struct{}
	endEntered chan struct{}
}

func newFakeGateway(payload domain.AttemptPayload) *fakeGateway {
	return &fakeGateway{payload: payload}
}

func (g *fakeGateway) StartAttempt(_ context.Context, req domain.StartRequest) (domain.AttemptPayload, error) {
	g.mu.Lock()
	g.starts = append(g.starts, req)
	gate := g.startGate
	payload, err := g.payload, g.startErr
	g.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.AttemptPayload{}, err
	}
	return payload, nil
}

func (g *fakeGateway) EndAttempt(_ context.Context, req domain.EndRequest) (domain.GradeResult, error) {
	g.mu.Lock()
	g.ends = append(g.ends, req)
	gate, entered := g.endGate, g.endEntered
	result, err := g.result, g.endErr
	g.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.GradeResult{}, err
	}
	return result, nil
}

func (g *fakeGateway) setEndErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.endErr = err
}

func (g *fakeGateway) setPayload(p domain.AttemptPayload) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payload = p
}

func (g *fakeGateway) startCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.starts)
}

func (g *fakeGateway) lastStart() domain.StartRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.starts) == 0 {
		return domain.StartRequest{}
	}
	return g.starts[len(g.starts)-1]
}

func (g *fakeGateway) endRequests() []domain.EndRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.EndRequest(nil), g.ends...)
}

type staticIdentity struct {
	user *domain.User
}

func (s staticIdentity) CurrentUser(context.Context) (*domain.User, error) {
	return s.user, nil
}

// manualClock hands out tickers that only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (m *manualClock) NewTicker(time.Duration) app.Ticker {
	t := &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

func (m *manualClock) last() *manualTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tickers) == 0 {
		return nil
	}
	return m.tickers[len(m.tickers)-1]
}

type manualTicker struct {
	ch      chan time.Time
	once    sync.Once
	stopped chan struct{}
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() { t.once.Do(func() { close(t.stopped) }) }

func (t *manualTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}

// tick reports whether the timer goroutine received the tick.
func (t *manualTicker) tick() bool {
	select {
	case t.ch <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-time.After(200 * time.Millisecond):
		return false
	}
}
