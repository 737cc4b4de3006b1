package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/memora-dev/memora/internal/cli"
	"github.com/memora-dev/memora/internal/client"
)

type OrderFlag string

const (
	OrderDescending OrderFlag = "desc"
	OrderAscending  OrderFlag = "asc"
)

// Set implements pflag.Value.
func (o *OrderFlag) Set(v string) error {
	switch v {
	case string(OrderDescending):
		*o = OrderDescending
	case string(OrderAscending):
		*o = OrderAscending
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, OrderDescending, OrderAscending)
	}
	return nil
}

// String implements pflag.Value.
func (o *OrderFlag) String() string {
	if o == nil {
		return ""
	}
	return string(*o)
}

// Type implements pflag.Value.
func (o *OrderFlag) Type() string {
	return "OrderFlag"
}

var _ pflag.Value = (*OrderFlag)(nil)

// withClient builds the API client for one command invocation and closes it
// when the command finishes.
func withClient(run func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		apiClient := client.New(serverURL, userID)
		defer func() {
			_ = apiClient.Close()
		}()
		return run(cmd, args, cli.New(apiClient))
	}
}

func newDueCommand() *cobra.Command {
	var limit int
	command := &cobra.Command{
		Use:   "due",
		Short: "List items due for review",
		RunE: withClient(func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error {
			return reviewCLI.PrintDue(cmd.Context(), limit)
		}),
	}
	command.Flags().IntVar(&limit, "limit", 0, "maximum number of items (0 uses the server default)")
	return command
}

func newReviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Start an interactive review session",
		RunE: withClient(func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error {
			return reviewCLI.RunReviewSession(cmd.Context())
		}),
	}
}

func newForecastCommand() *cobra.Command {
	var days int
	command := &cobra.Command{
		Use:   "forecast",
		Short: "Show the projected review load per day",
		RunE: withClient(func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error {
			return reviewCLI.PrintForecast(cmd.Context(), days)
		}),
	}
	command.Flags().IntVar(&days, "days", 7, "forecast horizon in days")
	return command
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the dashboard summary and topic performance",
		RunE: withClient(func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error {
			return reviewCLI.PrintStats(cmd.Context())
		}),
	}
}

func newHistoryCommand() *cobra.Command {
	var limit int
	order := OrderDescending
	command := &cobra.Command{
		Use:   "history",
		Short: "Show recent reviews",
		RunE: withClient(func(cmd *cobra.Command, args []string, reviewCLI *cli.CLI) error {
			return reviewCLI.PrintHistory(cmd.Context(), limit, order == OrderAscending)
		}),
	}
	command.Flags().IntVar(&limit, "limit", 50, "maximum number of entries")
	command.Flags().Var(&order, "order", "display order, desc or asc")
	return command
}
