package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quizctl/internal/domain"
)

// Gateway starts and grades attempts.
type Gateway interface {
	StartAttempt(ctx context.Context, req domain.StartRequest) (domain.AttemptPayload, error)
	EndAttempt(ctx context.Context, req domain.EndRequest) (domain.GradeResult, error)
}

// IdentityStore resolves the signed-in user. A nil user means anonymous.
type IdentityStore interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// Controller owns the timed attempt lifecycle: start -> quiz -> results,
// with restart back to start. All methods are safe for concurrent use; the
// countdown runs in its own goroutine and competes with manual submits
// through a single in-flight guard.
type Controller struct {
	gateway  Gateway
	identity IdentityStore
	clock    Clock
	encoding AnswerEncoding
	log      zerolog.Logger

	mu          sync.Mutex
	closed      bool
	epoch       uint64 // bumped whenever pending starts must be dropped
	starting    bool
	startMsg    string
	session     *attemptSession
	results     *ResultsPhase
	subscribers map[chan State]struct{}
}

type attemptSession struct {
	id         uuid.UUID
	payload    domain.AttemptPayload
	answers    domain.AnswerMap
	index      int
	remaining  int
	expired    bool
	submitting bool
	submitErr  string
	stop       chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the system clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithAnswerEncoding selects how answers are sent to the gateway.
func WithAnswerEncoding(enc AnswerEncoding) Option {
	return func(c *Controller) { c.encoding = enc }
}

// WithLogger sets the controller logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) { c.log = log.With().Str("component", "attempt_controller").Logger() }
}

func NewController(gateway Gateway, identity IdentityStore, opts ...Option) *Controller {
	c := &Controller{
		gateway:     gateway,
		identity:    identity,
		clock:       SystemClock{},
		encoding:    EncodeKey,
		log:         zerolog.Nop(),
		subscribers: make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start requests the question set for quizID and, on success, begins the
// countdown. Failures leave the controller in the start phase.
func (c *Controller) Start(ctx context.Context, quizID int64, pin string) error {
	req := domain.StartRequest{QuizID: quizID, PIN: pin}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	if c.session != nil || c.results != nil {
		c.mu.Unlock()
		return domain.ErrWrongPhase
	}
	if c.starting {
		c.mu.Unlock()
		return domain.ErrStartPending
	}
	if err := domain.Validate(req); err != nil {
		c.startMsg = describeStartError(err)
		c.broadcastLocked()
		c.mu.Unlock()
		return err
	}
	c.starting = true
	c.startMsg = ""
	epoch := c.epoch
	c.broadcastLocked()
	c.mu.Unlock()

	payload, err := c.gateway.StartAttempt(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.epoch != epoch {
		c.log.Debug().Int64("quiz_id", quizID).Msg("dropping stale start response")
		return domain.ErrDiscarded
	}
	c.starting = false
	if err != nil {
		c.startMsg = describeStartError(err)
		c.log.Warn().Err(err).Int64("quiz_id", quizID).Msg("start quiz failed")
		c.broadcastLocked()
		return fmt.Errorf("start quiz: %w", err)
	}

	s := &attemptSession{
		id:        uuid.New(),
		payload:   payload,
		answers:   make(domain.AnswerMap),
		remaining: payload.DurationMinutes * 60,
		stop:      make(chan struct{}),
	}
	c.session = s
	if s.remaining > 0 {
		go c.runTimer(s.id, s.stop, c.clock.NewTicker(time.Second))
	}
	c.log.Info().
		Str("attempt_id", s.id.String()).
		Int64("quiz_id", payload.QuizID).
		Int("questions", len(payload.Questions)).
		Int("remaining_seconds", s.remaining).
		Msg("attempt started")
	c.broadcastLocked()
	return nil
}

// SelectAnswer records or overwrites the answer for a question.
func (c *Controller) SelectAnswer(questionID int64, key domain.OptionKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked()
	if err != nil {
		return err
	}
	if !s.hasQuestion(questionID) {
		return domain.ErrQuestionNotFound
	}
	s.answers[questionID] = key
	c.broadcastLocked()
	return nil
}

// Navigate jumps to the question at index.
func (c *Controller) Navigate(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(s.payload.Questions) {
		return domain.ErrIndexOutOfRange
	}
	s.index = index
	c.broadcastLocked()
	return nil
}

// Next moves one question forward, stopping at the last one.
func (c *Controller) Next() error { return c.step(1) }

// Prev moves one question back, stopping at the first one.
func (c *Controller) Prev() error { return c.step(-1) }

func (c *Controller) step(delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, err := c.activeLocked()
	if err != nil {
		return err
	}
	next := s.index + delta
	if next < 0 || next >= len(s.payload.Questions) {
		return nil
	}
	s.index = next
	c.broadcastLocked()
	return nil
}

// Submit sends the answers for grading. It refuses to run while another
// submission is in flight and, until time has run out, when nothing has
// been answered.
func (c *Controller) Submit(ctx context.Context) error {
	return c.submit(ctx, uuid.Nil, false)
}

func (c *Controller) submit(ctx context.Context, attemptID uuid.UUID, auto bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrClosed
	}
	s := c.session
	if s == nil {
		c.mu.Unlock()
		return domain.ErrWrongPhase
	}
	if auto && s.id != attemptID {
		c.mu.Unlock()
		return domain.ErrDiscarded
	}
	if s.submitting {
		c.mu.Unlock()
		return domain.ErrSubmitPending
	}
	if !auto && !s.expired && len(s.answers) == 0 {
		c.mu.Unlock()
		return domain.ErrNothingAnswered
	}
	s.submitting = true
	s.submitErr = ""
	attemptID = s.id
	req := domain.EndRequest{
		QuizID:  s.payload.QuizID,
		Answers: BuildAnswers(s.payload, s.answers, c.encoding),
	}
	title := s.payload.Title
	c.broadcastLocked()
	c.mu.Unlock()

	req.UserID = c.currentUserID(ctx)
	result, err := c.gateway.EndAttempt(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.id != attemptID {
		c.log.Debug().Str("attempt_id", attemptID.String()).Msg("dropping stale submit response")
		return domain.ErrDiscarded
	}
	s.submitting = false
	if err != nil {
		s.submitErr = describeSubmitError(err)
		c.log.Error().Err(err).
			Str("attempt_id", attemptID.String()).
			Bool("automatic", auto).
			Msg("submit quiz failed")
		c.broadcastLocked()
		return fmt.Errorf("submit quiz: %w", err)
	}

	close(s.stop)
	c.session = nil
	c.results = &ResultsPhase{
		AttemptID: attemptID,
		QuizID:    req.QuizID,
		Title:     title,
		Result:    result,
	}
	c.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("grade", result.Grade).
		Int("correct", result.CorrectAnswers).
		Int("total", result.TotalQuestions).
		Bool("automatic", auto).
		Msg("attempt graded")
	c.broadcastLocked()
	return nil
}

func (c *Controller) currentUserID(ctx context.Context) *int64 {
	if c.identity == nil {
		return nil
	}
	user, err := c.identity.CurrentUser(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("resolve current user failed; submitting anonymously")
		return nil
	}
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// Restart discards any attempt or result and returns to the start phase.
// A start call still in flight is dropped when it returns.
func (c *Controller) Restart() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrClosed
	}
	c.resetLocked()
	c.broadcastLocked()
	return nil
}

// Close stops the countdown, drops pending network results and closes all
// subscriptions. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.resetLocked()
	c.closed = true
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
}

func (c *Controller) resetLocked() {
	c.epoch++
	if c.session != nil {
		close(c.session.stop)
		c.session = nil
	}
	c.results = nil
	c.starting = false
	c.startMsg = ""
}

// Phase returns a copy of the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

// Snapshot returns the current phase flattened into a State.
func (c *Controller) Snapshot() State {
	return StateOf(c.Phase())
}

// Subscribe returns a channel of state updates, starting with the current
// state. Slow readers only see the latest update. The caller must invoke
// the returned cancel function.
func (c *Controller) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	c.mu.Lock()
	ch <- StateOf(c.phaseLocked())
	if c.closed {
		close(ch)
		c.mu.Unlock()
		return ch, func() {}
	}
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) phaseLocked() Phase {
	switch {
	case c.results != nil:
		return *c.results
	case c.session != nil:
		s := c.session
		answers := make(domain.AnswerMap, len(s.answers))
		for id, key := range s.answers {
			answers[id] = key
		}
		return QuizPhase{
			AttemptID:        s.id,
			Payload:          s.payload,
			Answers:          answers,
			CurrentIndex:     s.index,
			RemainingSeconds: s.remaining,
			Expired:          s.expired,
			Submitting:       s.submitting,
			SubmitError:      s.submitErr,
		}
	default:
		return StartPhase{Starting: c.starting, Message: c.startMsg}
	}
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	state := StateOf(c.phaseLocked())
	for ch := range c.subscribers {
		select {
		case ch <- state:
		default:
			// Drop the oldest pending update so the latest always lands.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}

func (c *Controller) activeLocked() (*attemptSession, error) {
	if c.closed {
		return nil, domain.ErrClosed
	}
	if c.session == nil {
		return nil, domain.ErrWrongPhase
	}
	return c.session, nil
}

func (s *attemptSession) hasQuestion(id int64) bool {
	for _, q := range s.payload.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// runTimer counts the attempt down once per tick and fires the automatic
// submit when it reaches zero. It exits when stop is closed.
func (c *Controller) runTimer(attemptID uuid.UUID, stop <-chan struct{}, ticker Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			expired, alive := c.tick(attemptID)
			if !alive {
				return
			}
			if expired {
				if err := c.submit(context.Background(), attemptID, true); err != nil &&
					!errors.Is(err, domain.ErrSubmitPending) && !errors.Is(err, domain.ErrDiscarded) {
					c.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("automatic submit did not complete")
				}
				return
			}
		}
	}
}

func (c *Controller) tick(attemptID uuid.UUID) (expired, alive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	if c.closed || s == nil || s.id != attemptID {
		return false, false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.expired = true
	}
	c.broadcastLocked()
	return s.expired, true
}
