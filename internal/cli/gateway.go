package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizctl/internal/app"
	"quizctl/internal/auth"
	"quizctl/internal/config"
	"quizctl/internal/domain"
	"quizctl/internal/gateway"
	"quizctl/internal/infra/memory"
	pgstore "quizctl/internal/infra/postgres"
	redisstore "quizctl/internal/infra/redis"
	transport "quizctl/internal/transport/http"
)

const devSecret = "quizctl-dev-secret"

type gatewayOptions struct {
	port string
	seed bool
}

// newGatewayCmd runs the reference attempt gateway.
func newGatewayCmd(root *rootOptions) *cobra.Command {
	opts := &gatewayOptions{}
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Run the reference attempt gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			if opts.port != "" {
				cfg.Server.Port = opts.port
			}
			return runGateway(cmd.Context(), cfg, opts.seed, log)
		},
	}
	cmd.Flags().StringVar(&opts.port, "port", "", "port to listen on (overrides config)")
	cmd.Flags().BoolVar(&opts.seed, "seed", false, "upsert the sample quizzes into postgres on startup")
	return cmd
}

func runGateway(ctx context.Context, cfg config.Config, seed bool, log zerolog.Logger) error {
	redisClient, err := newRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		loader  gateway.QuizLoader
		results gateway.ResultStore
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg.Postgres.URL, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgLoader := pgstore.NewQuizLoader(pool)
		if seed {
			for _, quiz := range sampleQuizzes() {
				if err := pgLoader.SaveQuiz(ctx, quiz); err != nil {
					return err
				}
			}
			log.Info().Int("quizzes", len(sampleQuizzes())).Msg("sample quizzes seeded")
		}
		loader = pgLoader
		results = pgstore.NewResultStore(pool)
	} else {
		log.Warn().Msg("postgres not configured; serving sample quizzes from memory")
		loader = memory.NewStaticQuizLoader(sampleQuizzes()...)
		results = memory.NewResultStore()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	window := config.TTLDuration(cfg.Limits.Window, time.Minute)
	var (
		quizzes gateway.QuizRepository
		limiter gateway.Limiter
	)
	if redisClient != nil {
		quizzes = redisstore.NewQuizRepository(redisClient, loader, quizTTL, log)
		limiter = redisstore.NewLimiter(redisClient, cfg.Limits.StartAttempts, window)
	} else {
		quizzes = memory.NewQuizRepository(loader, quizTTL)
		limiter = memory.NewLimiter(cfg.Limits.StartAttempts, window)
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		log.Warn().Msg("AUTH_SECRET not set; using the development signing secret")
		secret = devSecret
	}
	issuer := auth.NewIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	svc := gateway.NewService(quizzes, results, limiter, log)
	encoding, err := app.ParseAnswerEncoding(cfg.Gateway.AnswerFormat)
	if err != nil {
		return err
	}
	ws := transport.NewWSHandler(wsControllerFactory(svc, issuer, encoding, log), log)

	handler := transport.NewRouter(svc, transport.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Issuer:         issuer,
		WS:             ws,
		Logger:         log,
	})

	return serve(ctx, ":"+cfg.Server.Port, handler, log)
}

// wsControllerFactory gives every /ws connection an in-process controller.
// Starts are throttled per remote address, and a bearer token (header or
// ?token= for browsers) signs the attempt in; without one it is anonymous.
func wsControllerFactory(svc *gateway.Service, issuer *auth.Issuer, encoding app.AnswerEncoding, log zerolog.Logger) transport.ControllerFactory {
	return func(r *http.Request) (*app.Controller, error) {
		var user *domain.User
		token := transport.BearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != "" {
			u, err := issuer.Parse(token)
			if err != nil {
				return nil, err
			}
			user = &u
		}
		return app.NewController(gateway.NewLocal(svc, "ws:"+transport.ClientKey(r)), memory.NewIdentityStore(user),
			app.WithAnswerEncoding(encoding),
			app.WithLogger(log)), nil
	}
}

// serve runs handler until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, log zerolog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
