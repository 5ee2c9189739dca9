package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Gateway struct {
		URL          string `yaml:"url"`
		Timeout      string `yaml:"timeout"`
		AnswerFormat string `yaml:"answer_format"`
	} `yaml:"gateway"`
	Auth struct {
		Token    string `yaml:"token"`
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Limits struct {
		StartAttempts int    `yaml:"start_attempts"`
		Window        string `yaml:"window"`
	} `yaml:"limits"`
}

// Default returns the settings used when neither file nor environment say otherwise.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Gateway.URL = "http://localhost:8080"
	cfg.Gateway.Timeout = "10s"
	cfg.Gateway.AnswerFormat = "key"
	cfg.Auth.TokenTTL = "24h"
	cfg.Redis.TTL = "10m"
	cfg.Quiz.TTL = "10m"
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Limits.StartAttempts = 10
	cfg.Limits.Window = "1m"
	return cfg
}

// Load reads YAML config from path on top of Default, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	LoadDotEnv()
	applyEnv(&cfg)
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory if present. Variables
// already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	if origins := parseOrigins(os.Getenv("ALLOWED_ORIGINS")); origins != nil {
		cfg.Server.AllowedOrigins = origins
	}
	cfg.Gateway.URL = getEnv("QUIZ_GATEWAY_URL", cfg.Gateway.URL)
	cfg.Gateway.AnswerFormat = getEnv("QUIZ_ANSWER_FORMAT", cfg.Gateway.AnswerFormat)
	cfg.Auth.Token = getEnv("QUIZ_TOKEN", cfg.Auth.Token)
	cfg.Auth.Secret = getEnv("AUTH_SECRET", cfg.Auth.Secret)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Postgres.URL = getEnv("POSTGRES_URL", cfg.Postgres.URL)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Limits.StartAttempts = getEnvInt("START_ATTEMPTS_PER_WINDOW", cfg.Limits.StartAttempts)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
