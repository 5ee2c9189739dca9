package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quizctl/internal/auth"
	"quizctl/internal/domain"
)

// UserResolver looks up the user behind the configured token, usually via GET /user/me.
type UserResolver interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
}

// IdentityStore caches the resolved user under quiz:identity:{sha256(token)}.
// Without a token every caller is anonymous.
type IdentityStore struct {
	client   *redis.Client
	resolver UserResolver
	token    string
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewIdentityStore(client *redis.Client, resolver UserResolver, token string, ttl time.Duration, log zerolog.Logger) *IdentityStore {
	return &IdentityStore{
		client:   client,
		resolver: resolver,
		token:    token,
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("component", "identity_cache").Logger(),
	}
}

func (s *IdentityStore) CurrentUser(ctx context.Context) (*domain.User, error) {
	if s.token == "" {
		return nil, nil
	}
	if err := auth.CheckExpiry(s.token, s.now()); err != nil {
		if ferr := s.Forget(ctx); ferr != nil {
			s.log.Warn().Err(ferr).Msg("drop expired identity")
		}
		return nil, err
	}

	raw, err := s.client.Get(ctx, s.key()).Bytes()
	switch {
	case err == nil:
		var user domain.User
		if err := json.Unmarshal(raw, &user); err == nil {
			return &user, nil
		}
	case !errors.Is(err, redis.Nil):
		s.log.Warn().Err(err).Msg("read cached identity")
	}

	user, err := s.resolver.CurrentUser(ctx)
	if err != nil || user == nil {
		return user, err
	}
	if raw, err := json.Marshal(user); err == nil {
		if err := s.client.Set(ctx, s.key(), raw, s.ttl).Err(); err != nil {
			s.log.Warn().Err(err).Msg("cache identity")
		}
	}
	return user, nil
}

// Forget drops the cached identity for the token.
func (s *IdentityStore) Forget(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	return s.client.Del(ctx, s.key()).Err()
}

func (s *IdentityStore) key() string {
	sum := sha256.Sum256([]byte(s.token))
	return "quiz:identity:" + hex.EncodeToString(sum[:])
}
