package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quizctl/internal/auth"
	"quizctl/internal/config"
	"quizctl/internal/domain"
)

type tokenOptions struct {
	userID   int64
	username string
	roles    []string
	ttl      time.Duration
}

// newTokenCmd mints a bearer token the reference gateway accepts.
func newTokenCmd(root *rootOptions) *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with AUTH_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return errors.New("auth secret not configured; set AUTH_SECRET or auth.secret")
			}
			if opts.userID <= 0 || strings.TrimSpace(opts.username) == "" {
				return errors.New("--user-id and --username are required")
			}

			ttl := opts.ttl
			if !cmd.Flags().Changed("ttl") {
				ttl = config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
			}
			user := domain.User{ID: opts.userID, Username: strings.TrimSpace(opts.username)}
			for i, name := range opts.roles {
				user.Roles = append(user.Roles, domain.Role{ID: int64(i + 1), Name: name})
			}

			token, err := auth.NewIssuer(cfg.Auth.Secret, ttl).Issue(user)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.userID, "user-id", 0, "user id")
	cmd.Flags().StringVar(&opts.username, "username", "", "username")
	cmd.Flags().StringSliceVar(&opts.roles, "role", nil, "role names")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	return cmd
}
