package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizctl/internal/domain"
)

type quizzesOptions struct {
	page       int
	limit      int
	title      string
	activeOnly bool
}

// newQuizzesCmd lists the quiz directory, or shows one quiz with --id.
func newQuizzesCmd(root *rootOptions) *cobra.Command {
	opts := &quizzesOptions{}
	var quizID int64
	cmd := &cobra.Command{
		Use:   "quizzes",
		Short: "List quizzes published by the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := root.load()
			if err != nil {
				return err
			}
			client := newGatewayClient(cfg)
			out := cmd.OutOrStdout()

			if quizID > 0 {
				quiz, err := client.GetQuiz(cmd.Context(), quizID)
				if err != nil {
					return errors.New(describeClientError(err, cfg.Gateway.URL))
				}
				printQuizzes(out, []domain.QuizSummary{quiz})
				return nil
			}

			filter := domain.QuizFilter{Page: opts.page, Limit: opts.limit, Title: opts.title}
			if opts.activeOnly {
				active := true
				filter.IsActive = &active
			}
			page, err := client.ListQuizzes(cmd.Context(), filter)
			if err != nil {
				return errors.New(describeClientError(err, cfg.Gateway.URL))
			}
			if len(page.Quizzes) == 0 {
				fmt.Fprintln(out, "No quizzes found.")
				return nil
			}
			printQuizzes(out, page.Quizzes)
			fmt.Fprintf(out, "page %d, %d of %d quizzes\n", page.Page, len(page.Quizzes), page.Total)
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "id", 0, "show a single quiz")
	cmd.Flags().IntVar(&opts.page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.limit, "limit", domain.DefaultPageLimit, "page size")
	cmd.Flags().StringVar(&opts.title, "title", "", "filter by title")
	cmd.Flags().BoolVar(&opts.activeOnly, "active", false, "only active quizzes")
	return cmd
}

func printQuizzes(out io.Writer, quizzes []domain.QuizSummary) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tDURATION\tACTIVE")
	for _, q := range quizzes {
		duration := "none"
		if q.DurationMinutes > 0 {
			duration = strconv.Itoa(q.DurationMinutes) + "m"
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%t\n", q.ID, q.Title, q.QuestionNumber, duration, q.IsActive)
	}
	_ = tw.Flush()
}
