package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	userID    string
)

func main() {
	var debugMode bool
	rootCommand := cobra.Command{
		Use:           "memora",
		Short:         "Terminal client for spaced-repetition review sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogger(debugMode)
			if userID == "" {
				userID = os.Getenv("MEMORA_USER")
			}
			if userID == "" {
				return fmt.Errorf("user is required: pass --user or set MEMORA_USER")
			}
			return nil
		},
	}
	rootCommand.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "memora server base URL")
	rootCommand.PersistentFlags().StringVar(&userID, "user", "", "user id (defaults to MEMORA_USER)")
	rootCommand.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode")

	rootCommand.AddCommand(
		newDueCommand(),
		newReviewCommand(),
		newForecastCommand(),
		newStatsCommand(),
		newHistoryCommand(),
	)
	if err := rootCommand.Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %+v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
	os.Exit(0)
}

// setupLogger configures the default logger based on debug mode
func setupLogger(debugMode bool) {
	logLevel := slog.LevelInfo
	if debugMode {
		logLevel = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		})),
	)
}
