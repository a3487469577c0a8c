// Package chat relays websocket chat messages to the completion job runner.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/ai-support-chat/domain/job"
)

// DefaultWaitTimeout bounds how long one message waits for its reply.
const DefaultWaitTimeout = 60 * time.Second

// Conn is the part of a websocket connection the relay uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
}

// JobRunner runs one completion job and waits for its result.
type JobRunner interface {
	Run(ctx context.Context, message string) (job.Result, error)
}

// Relay serves open chat sessions.
type Relay struct {
	runner      JobRunner
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewRelay creates a relay. waitTimeout <= 0 selects DefaultWaitTimeout.
func NewRelay(runner JobRunner, waitTimeout time.Duration, logger *slog.Logger) *Relay {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		runner:      runner,
		waitTimeout: waitTimeout,
		logger:      logger,
	}
}

// Serve runs the message loop of an open session until the connection
// closes or ctx ends. Every inbound frame gets exactly one outbound frame;
// the next frame is read only after the reply has been written.
func (r *Relay) Serve(ctx context.Context, conn Conn, session *Session) error {
	if state := session.State(); state != StateOpen {
		return fmt.Errorf("%w: cannot serve a %s session", ErrInvalidTransition, state)
	}
	defer session.Close()

	logger := r.logger.With(
		"session_id", session.ID,
		"group", session.GroupName(),
		"user_id", session.Identity().UserID,
	)
	logger.Info("Chat session opened")

	for {
		if ctx.Err() != nil {
			logger.Info("Chat session closed", "reason", "shutdown")
			return nil
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("Chat session closed", "reason", err.Error())
			return nil
		}

		frame := r.reply(ctx, logger, data)
		if err := conn.WriteJSON(frame); err != nil {
			logger.Info("Chat session closed", "reason", err.Error())
			return nil
		}
	}
}

// reply produces the outbound frame for one inbound frame.
func (r *Relay) reply(ctx context.Context, logger *slog.Logger, data []byte) OutboundFrame {
	message, err := ParseInbound(data)
	if err != nil {
		logger.Debug("Malformed frame", "error", err)
		return ErrorFrame(aiError(err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, r.waitTimeout)
	defer cancel()

	result, err := r.runner.Run(waitCtx, message)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Reply timed out", "timeout", r.waitTimeout)
		return ErrorFrame(aiError(fmt.Errorf("%w: no reply within %s", ErrUpstream, r.waitTimeout)))
	case errors.Is(err, context.Canceled):
		logger.Info("Reply abandoned", "reason", "shutdown")
		return ErrorFrame(aiError(fmt.Errorf("%w: %v", ErrUpstream, err)))
	case err != nil:
		logger.Warn("Job submission failed", "error", err)
		return ErrorFrame(aiError(fmt.Errorf("%w: %v", ErrUpstream, err)))
	case result.Failed():
		return ErrorFrame(result.Error)
	default:
		return ReplyFrame(result.Text)
	}
}

func aiError(err error) string {
	return fmt.Sprintf("AI error: %v", err)
}
