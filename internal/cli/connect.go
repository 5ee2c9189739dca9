package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quizctl/internal/config"
	transport "quizctl/internal/transport/http"
)

// newRedisClient connects to cfg.Redis.Addr, which may be host:port or a
// redis:// URL. It returns nil when Redis is not configured.
func newRedisClient(ctx context.Context, cfg config.Config, log zerolog.Logger) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.Redis.Addr)
	if addr == "" {
		return nil, nil
	}

	opt := &redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis URL: %w", err)
		}
		opt = parsed
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("redis connected")
	return client, nil
}

// newGatewayClient builds the HTTP client for the configured gateway.
func newGatewayClient(cfg config.Config) *transport.Client {
	timeout := config.TTLDuration(cfg.Gateway.Timeout, 10*time.Second)
	return transport.NewClient(cfg.Gateway.URL, cfg.Auth.Token, &http.Client{Timeout: timeout})
}
