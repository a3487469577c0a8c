package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/ai-support-chat/domain/job"
)

// ErrMissingAPIKey is reported when no completion API key is configured.
var ErrMissingAPIKey = errors.New("completion API key is not configured")

// Worker turns one chat message into one completion call.
type Worker struct {
	config    *Config
	completer Completer
	logger    *slog.Logger
}

// NewWorker creates a worker. The config pointer is kept, not copied.
func NewWorker(config *Config, completer Completer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		config:    config,
		completer: completer,
		logger:    logger,
	}
}

// Generate calls the completion API once. It never returns an error: any
// upstream failure is folded into the result as "AI error: <cause>".
func (w *Worker) Generate(ctx context.Context, message string) job.Result {
	if !w.config.HasAPIKey() {
		return job.Failure(aiError(ErrMissingAPIKey))
	}

	if w.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.RequestTimeout)
		defer cancel()
	}

	text, err := w.completer.Complete(ctx, message)
	if err != nil {
		w.logger.Warn("Completion call failed", "error", err)
		return job.Failure(aiError(err))
	}
	return job.Success(text)
}

func aiError(err error) string {
	return fmt.Sprintf("AI error: %v", err)
}
