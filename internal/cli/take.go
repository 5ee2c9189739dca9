package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quizctl/internal/app"
	"quizctl/internal/config"
	"quizctl/internal/domain"
	redisstore "quizctl/internal/infra/redis"
	transport "quizctl/internal/transport/http"
)

type takeOptions struct {
	quizID  int64
	pin     string
	answers string
	listen  string
}

// newTakeCmd takes a quiz against the configured gateway, either in the
// terminal or by serving the attempt controller over a websocket.
func newTakeCmd(root *rootOptions) *cobra.Command {
	opts := &takeOptions{}
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a timed quiz",
		Long: `Take a timed quiz against the configured attempt gateway.

Without flags the quiz ID and PIN are prompted for. With --answers the
attempt runs unattended: answers are a comma separated list of option keys
in question order, "-" skips a question.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.load()
			if err != nil {
				return err
			}
			return runTake(cmd.Context(), cfg, *opts, cmd.InOrStdin(), cmd.OutOrStdout(), log)
		},
	}
	cmd.Flags().Int64Var(&opts.quizID, "quiz", 0, "quiz ID to start")
	cmd.Flags().StringVar(&opts.pin, "pin", "", "quiz PIN")
	cmd.Flags().StringVar(&opts.answers, "answers", "", "answer keys in question order, e.g. A,C,-,B")
	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve the attempt over a websocket at this address instead of the terminal")
	return cmd
}

func runTake(ctx context.Context, cfg config.Config, opts takeOptions, in io.Reader, out io.Writer, log zerolog.Logger) error {
	encoding, err := app.ParseAnswerEncoding(cfg.Gateway.AnswerFormat)
	if err != nil {
		return err
	}

	client := newGatewayClient(cfg)
	var identity app.IdentityStore = client
	redisClient, err := newRedisClient(ctx, cfg, log)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		identity = redisstore.NewIdentityStore(redisClient, client, cfg.Auth.Token,
			config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), log)
	}

	newController := func() *app.Controller {
		return app.NewController(client, identity,
			app.WithAnswerEncoding(encoding),
			app.WithLogger(log))
	}

	if opts.listen != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
		mux.Handle("/ws", transport.NewWSHandler(func(*http.Request) (*app.Controller, error) {
			return newController(), nil
		}, log))
		return serve(ctx, opts.listen, mux, log)
	}

	ctrl := newController()
	defer ctrl.Close()

	if opts.answers != "" {
		return runUnattended(ctx, ctrl, opts, out)
	}

	term := newTerminal(ctrl, in, out, cfg.Gateway.URL)
	term.quizID, term.pin = opts.quizID, opts.pin
	return term.run(ctx)
}

// runUnattended starts the quiz, selects the given keys in question order
// and submits.
func runUnattended(ctx context.Context, ctrl *app.Controller, opts takeOptions, out io.Writer) error {
	if opts.quizID <= 0 || opts.pin == "" {
		return errors.New("--answers needs --quiz and --pin")
	}
	keys, err := parseAnswerList(opts.answers)
	if err != nil {
		return err
	}

	if err := ctrl.Start(ctx, opts.quizID, opts.pin); err != nil {
		if msg := ctrl.Snapshot().StartError; msg != "" {
			return errors.New(msg)
		}
		return err
	}

	state := ctrl.Snapshot()
	for i, q := range state.Questions {
		if i >= len(keys) {
			break
		}
		if keys[i] == "" {
			continue
		}
		if err := ctrl.SelectAnswer(q.ID, keys[i]); err != nil {
			return fmt.Errorf("answer question %d: %w", i+1, err)
		}
	}

	if err := ctrl.Submit(ctx); err != nil {
		if msg := ctrl.Snapshot().SubmitError; msg != "" {
			return errors.New(msg)
		}
		return err
	}
	renderResults(out, ctrl.Snapshot())
	return nil
}

// parseAnswerList reads "A,c,-,D". A "-" or empty entry leaves that
// question unanswered.
func parseAnswerList(raw string) ([]domain.OptionKey, error) {
	parts := strings.Split(raw, ",")
	keys := make([]domain.OptionKey, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		key, ok := domain.ParseOptionKey(part)
		if !ok {
			return nil, fmt.Errorf("answer %d: %q is not one of A, B, C, D", i+1, part)
		}
		keys[i] = key
	}
	return keys, nil
}
