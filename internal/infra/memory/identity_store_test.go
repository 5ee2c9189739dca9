package memory

import (
	"context"
	"testing"

	"quizctl/internal/domain"
)

func TestIdentityStoreLifecycle(t *testing.T) {
	store := NewIdentityStore(nil)

	user, err := store.CurrentUser(context.Background())
	if err != nil || user != nil {
		t.Fatalf("expected anonymous, got %+v err=%v", user, err)
	}

	store.SetUser(&domain.User{ID: 3, Username: "bob"})
	user, _ = store.CurrentUser(context.Background())
	if user == nil || user.ID != 3 {
		t.Fatalf("expected bob, got %+v", user)
	}

	user.ID = 99
	again, _ := store.CurrentUser(context.Background())
	if again.ID != 3 {
		t.Fatalf("callers must not mutate the stored user")
	}

	store.SetUser(nil)
	if user, _ := store.CurrentUser(context.Background()); user != nil {
		t.Fatalf("expected signed out, got %+v", user)
	}
}
