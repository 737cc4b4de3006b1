package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/memora-dev/memora/internal/server"
)

// RunReviewSession fetches the due queue and rates each item interactively.
// The session ends when the queue is exhausted, the user types q, or an
// interrupt arrives.
func (cli *CLI) RunReviewSession(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	due, err := cli.api.Due(ctx, 0)
	if err != nil {
		return fmt.Errorf("api.Due() > %w", err)
	}
	if len(due) == 0 {
		fmt.Fprintln(cli.stdoutWriter, "Nothing due. Come back later!")
		return nil
	}

	fmt.Fprintf(cli.stdoutWriter, "%d items due. Rate each with 1=forgot 2=hard 3=good 4=easy, q to quit.\n\n", len(due))

	for i, item := range due {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cli.stdoutWriter, "Received interrupt signal, exiting...")
			return nil
		default:
		}

		if err := cli.reviewOne(ctx, i+1, len(due), item); err != nil {
			if errors.Is(err, errEnd) {
				fmt.Fprintln(cli.stdoutWriter, "Session ended.")
				return nil
			}
			return err
		}
	}

	fmt.Fprintln(cli.stdoutWriter, "All done!")
	return nil
}

func (cli *CLI) reviewOne(ctx context.Context, position, total int, item server.DueItem) error {
	fmt.Fprintf(cli.stdoutWriter, "[%d/%d] %s (%s, interval %dd)\n",
		position, total, cli.bold.Sprint(item.ItemID), item.Status, item.IntervalDays)

	rating, err := cli.promptRating()
	if err != nil {
		return err
	}

	outcome, err := cli.api.SubmitReview(ctx, server.SubmitReviewRequest{
		ItemID:          item.ItemID,
		Rating:          rating,
		SubmissionToken: cli.newToken(),
	})
	if err != nil {
		return fmt.Errorf("api.SubmitReview() > %w", err)
	}

	if rating >= 3 {
		fmt.Fprint(cli.stdoutWriter, "✅ ")
		fmt.Fprintln(cli.stdoutWriter, color.GreenString("Next review in %d days (%s)",
			outcome.IntervalDays, outcome.NextReviewAt.Format("2006-01-02")))
	} else {
		fmt.Fprint(cli.stdoutWriter, "❌ ")
		fmt.Fprintln(cli.stdoutWriter, color.RedString("Back again in %d days (%s)",
			outcome.IntervalDays, outcome.NextReviewAt.Format("2006-01-02")))
	}
	fmt.Fprintln(cli.stdoutWriter)
	return nil
}

func (cli *CLI) promptRating() (int, error) {
	for {
		fmt.Fprint(cli.stdoutWriter, "Rating: ")
		line, err := cli.stdinReader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("error reading input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "q" || input == "quit" {
			return 0, errEnd
		}
		rating, err := strconv.Atoi(input)
		if err == nil && rating >= 1 && rating <= 4 {
			return rating, nil
		}
		fmt.Fprintln(cli.stdoutWriter, "Enter 1, 2, 3, 4 or q.")
	}
}
