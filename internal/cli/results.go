package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"quizctl/internal/domain"
)

type resultsOptions struct {
	page   int
	limit  int
	userID int64
	mine   bool
	id     int64
}

// newResultsCmd lists recorded attempt results.
func newResultsCmd(root *rootOptions) *cobra.Command {
	opts := &resultsOptions{}
	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recorded quiz results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			client := newGatewayClient(cfg)
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if opts.id > 0 {
				result, err := client.GetResult(ctx, opts.id)
				if err != nil {
					return errors.New(describeClientError(err, cfg.Gateway.URL))
				}
				printResults(out, []domain.Result{result})
				return nil
			}

			var userID *int64
			switch {
			case opts.mine:
				user, err := client.CurrentUser(ctx)
				if err != nil {
					return errors.New(describeClientError(err, cfg.Gateway.URL))
				}
				if user == nil {
					return errors.New("--mine needs a token")
				}
				userID = &user.ID
			case cmd.Flags().Changed("user"):
				userID = &opts.userID
			}

			page, err := client.ListResults(ctx, userID, opts.page, opts.limit)
			if err != nil {
				return errors.New(describeClientError(err, cfg.Gateway.URL))
			}
			if len(page.Results) == 0 {
				fmt.Fprintln(out, "No results recorded.")
				return nil
			}
			printResults(out, page.Results)
			fmt.Fprintf(out, "page %d, %d of %d results\n", page.Page, len(page.Results), page.Total)
			return nil
		},
	}
	cmd.Flags().Int64Var(&opts.id, "id", 0, "show a single result")
	cmd.Flags().Int64Var(&opts.userID, "user", 0, "only results of this user id")
	cmd.Flags().BoolVar(&opts.mine, "mine", false, "only results of the signed-in user")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.limit, "limit", domain.DefaultPageLimit, "page size")
	return cmd
}

func printResults(out io.Writer, results []domain.Result) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUIZ\tUSER\tGRADE\tBUCKET\tCORRECT\tWRONG\tRECORDED")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.1f\t%s\t%d\t%d\t%s\n",
			r.ID, r.QuizID, r.UserID, r.Grade, domain.BucketFor(r.Grade),
			r.CorrectAnswers, r.WrongAnswers, r.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}
