package gateway

import (
	"context"

	"quizctl/internal/domain"
)

// Local adapts a Service to the attempt controller's gateway interface for
// in-process use, such as the gateway's own websocket endpoint.
type Local struct {
	svc       *Service
	clientKey string
}

func NewLocal(svc *Service, clientKey string) *Local {
	return &Local{svc: svc, clientKey: clientKey}
}

func (l *Local) StartAttempt(ctx context.Context, req domain.StartRequest) (domain.AttemptPayload, error) {
	return l.svc.StartQuiz(ctx, req, l.clientKey)
}

func (l *Local) EndAttempt(ctx context.Context, req domain.EndRequest) (domain.GradeResult, error) {
	return l.svc.EndQuiz(ctx, req)
}
