package auth

import (
	"errors"
	"testing"
	"time"

	"quizctl/internal/domain"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	user := domain.User{ID: 7, Username: "alice", Roles: []domain.Role{{ID: 1, Name: "student"}}}

	token, err := issuer.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	got, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.ID != 7 || got.Username != "alice" || len(got.Roles) != 1 || got.Roles[0].Name != "student" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := NewIssuer("one", time.Hour).Issue(domain.User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewIssuer("two", time.Hour).Parse(token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestExpiredTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return issued }
	token, err := issuer.Issue(domain.User{ID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Parse(token); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired from Parse, got %v", err)
	}
	if err := CheckExpiry(token, time.Now()); !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired from CheckExpiry, got %v", err)
	}
	if err := CheckExpiry(token, issued); err != nil {
		t.Fatalf("token should be live at issue time: %v", err)
	}
}

func TestCheckExpiryIgnoresOpaqueTokens(t *testing.T) {
	if err := CheckExpiry("not-a-jwt", time.Now()); err != nil {
		t.Fatalf("opaque token should pass: %v", err)
	}
}
