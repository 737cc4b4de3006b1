// Package cli contains the interactive terminal client for review sessions
// and the read-only report commands.
package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/memora-dev/memora/internal/queue"
	"github.com/memora-dev/memora/internal/server"
	"github.com/memora-dev/memora/internal/statistics"
)

// errEnd signals the end of an interactive session.
var errEnd = errors.New("session ended")

// APIClient is the subset of the HTTP client the CLI uses.
type APIClient interface {
	Due(ctx context.Context, limit int) ([]server.DueItem, error)
	SubmitReview(ctx context.Context, req server.SubmitReviewRequest) (server.SubmitReviewResponse, error)
	Forecast(ctx context.Context, days int) ([]queue.ForecastDay, error)
	History(ctx context.Context, limit int) ([]server.HistoryEntry, error)
	Summary(ctx context.Context) (statistics.Summary, error)
	Topics(ctx context.Context) ([]statistics.TopicPerformance, error)
}

// CLI drives terminal review sessions against the API.
type CLI struct {
	api          APIClient
	stdinReader  *bufio.Reader
	stdoutWriter io.Writer
	bold         *color.Color
	newToken     func() string
}

// New creates a CLI reading from stdin and writing to stdout.
func New(api APIClient) *CLI {
	return &CLI{
		api:          api,
		stdinReader:  bufio.NewReader(os.Stdin),
		stdoutWriter: os.Stdout,
		bold:         color.New(color.Bold),
		newToken:     uuid.NewString,
	}
}
