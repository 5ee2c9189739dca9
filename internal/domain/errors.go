package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz does not exist or is not active.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound indicates no result with the requested id was recorded.
	ErrResultNotFound = errors.New("result not found")
	// ErrInvalidCredentials is returned when the quiz PIN does not match.
	ErrInvalidCredentials = errors.New("invalid quiz id or pin")
	// ErrRateLimited is returned when too many attempts were started.
	ErrRateLimited = errors.New("too many attempts")
	// ErrServiceUnavailable wraps transport failures talking to the gateway.
	ErrServiceUnavailable = errors.New("quiz service unavailable")
	// ErrUnauthorized indicates a missing or invalid bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired indicates the stored token is past its expiry.
	ErrSessionExpired = errors.New("session expired")

	// ErrWrongPhase is returned when an operation is not valid in the current phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")
	// ErrStartPending is returned while a start call is in flight.
	ErrStartPending = errors.New("quiz start already in progress")
	// ErrSubmitPending is returned while an end-quiz call is in flight.
	ErrSubmitPending = errors.New("submission already in progress")
	// ErrNothingAnswered blocks a manual submit with zero answers.
	ErrNothingAnswered = errors.New("no questions answered")
	// ErrQuestionNotFound indicates a question id outside the attempt.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrIndexOutOfRange indicates a navigation target outside the attempt.
	ErrIndexOutOfRange = errors.New("question index out of range")
	// ErrDiscarded is returned when a network result arrives after its attempt ended.
	ErrDiscarded = errors.New("attempt discarded")
	// ErrClosed is returned by a controller after Close.
	ErrClosed = errors.New("controller closed")
)
