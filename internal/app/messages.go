package app

import (
	"errors"

	"quizctl/internal/domain"
)

const (
	msgMissingStartInput = "Please enter both Quiz ID and PIN."
	msgInvalidPIN        = "Invalid Quiz ID or PIN."
	msgQuizNotFound      = "Quiz not found or not active."
	msgRateLimited       = "Too many attempts. Please wait and try again."
	msgUnavailable       = "Quiz service is unavailable. Please try again."
	msgStartFailed       = "Failed to start quiz. Check your Quiz ID and PIN."
	msgSubmitFailed      = "Failed to submit quiz. Please try again."
)

// describeStartError maps a start failure to the message shown on the start screen.
func describeStartError(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return msgMissingStartInput
	case errors.Is(err, domain.ErrInvalidCredentials):
		return msgInvalidPIN
	case errors.Is(err, domain.ErrQuizNotFound):
		return msgQuizNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return msgRateLimited
	case errors.Is(err, domain.ErrServiceUnavailable):
		return msgUnavailable
	default:
		return msgStartFailed
	}
}

func describeSubmitError(err error) string {
	if errors.Is(err, domain.ErrServiceUnavailable) {
		return msgUnavailable
	}
	return msgSubmitFailed
}
