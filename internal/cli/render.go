package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fatih/color"
)

// PrintDue lists the current review queue without starting a session.
func (cli *CLI) PrintDue(ctx context.Context, limit int) error {
	due, err := cli.api.Due(ctx, limit)
	if err != nil {
		return fmt.Errorf("api.Due() > %w", err)
	}
	if len(due) == 0 {
		fmt.Fprintln(cli.stdoutWriter, "Nothing due.")
		return nil
	}

	for _, item := range due {
		status := item.Status
		if item.Status == "new" {
			status = color.CyanString("new")
		}
		fmt.Fprintf(cli.stdoutWriter, "%s  %s  due %s\n",
			cli.bold.Sprint(item.ItemID), status, item.NextReviewAt.Format("2006-01-02"))
	}
	fmt.Fprintf(cli.stdoutWriter, "\n%d items due\n", len(due))
	return nil
}

// PrintForecast shows per-day projected review load.
func (cli *CLI) PrintForecast(ctx context.Context, days int) error {
	forecast, err := cli.api.Forecast(ctx, days)
	if err != nil {
		return fmt.Errorf("api.Forecast() > %w", err)
	}
	if len(forecast) == 0 {
		fmt.Fprintln(cli.stdoutWriter, "Nothing scheduled.")
		return nil
	}

	for _, day := range forecast {
		fmt.Fprintf(cli.stdoutWriter, "%s  %3d  %s\n",
			day.Date, day.DueCount, strings.Repeat("#", min(day.DueCount, 40)))
	}
	return nil
}

// PrintStats shows the dashboard summary and per-topic performance.
func (cli *CLI) PrintStats(ctx context.Context) error {
	summary, err := cli.api.Summary(ctx)
	if err != nil {
		return fmt.Errorf("api.Summary() > %w", err)
	}

	fmt.Fprintf(cli.stdoutWriter, "Due now:       %d (%d overdue)\n", summary.DueCount, summary.OverdueCount)
	fmt.Fprintf(cli.stdoutWriter, "Total items:   %d\n", summary.TotalItems)
	fmt.Fprintf(cli.stdoutWriter, "Reviews today: %d\n", summary.ReviewsToday)
	fmt.Fprintf(cli.stdoutWriter, "Streak:        %s\n", cli.bold.Sprintf("%d days", summary.Streak))
	fmt.Fprintf(cli.stdoutWriter, "Retention:     %.1f%%\n", summary.RetentionRate)

	topics, err := cli.api.Topics(ctx)
	if err != nil {
		return fmt.Errorf("api.Topics() > %w", err)
	}
	if len(topics) == 0 {
		return nil
	}

	fmt.Fprintln(cli.stdoutWriter, "\nTopics:")
	for _, topic := range topics {
		rate := color.GreenString("%.1f%%", topic.SuccessRate)
		if topic.SuccessRate < 60 {
			rate = color.RedString("%.1f%%", topic.SuccessRate)
		}
		fmt.Fprintf(cli.stdoutWriter, "  %-20s %4d reviews  %s\n", topic.Topic, topic.TotalReviews, rate)
	}
	return nil
}

// PrintHistory shows the most recent ledger entries, newest first unless
// ascending is set.
func (cli *CLI) PrintHistory(ctx context.Context, limit int, ascending bool) error {
	history, err := cli.api.History(ctx, limit)
	if err != nil {
		return fmt.Errorf("api.History() > %w", err)
	}
	if len(history) == 0 {
		fmt.Fprintln(cli.stdoutWriter, "No reviews yet.")
		return nil
	}
	if ascending {
		slices.Reverse(history)
	}

	for _, entry := range history {
		rating := ratingLabel(entry.Rating)
		fmt.Fprintf(cli.stdoutWriter, "%s  %s  %s  %dd → %dd\n",
			entry.ReviewedAt.Format("2006-01-02 15:04"),
			cli.bold.Sprint(entry.ItemID), rating,
			entry.IntervalBefore, entry.IntervalAfter)
	}
	return nil
}

func ratingLabel(rating int) string {
	switch rating {
	case 1:
		return color.RedString("forgot")
	case 2:
		return color.YellowString("hard  ")
	case 3:
		return color.GreenString("good  ")
	case 4:
		return color.GreenString("easy  ")
	default:
		return fmt.Sprintf("%d", rating)
	}
}
