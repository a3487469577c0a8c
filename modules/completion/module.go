package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CompletionModule exposes the completion worker as the generate-reply
// request-reply service.
type CompletionModule struct {
	config    *Config
	completer Completer
	worker    *Worker
	logger    *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*CompletionModule)(nil)
var _ mono.ServiceProviderModule = (*CompletionModule)(nil)
var _ mono.HealthCheckableModule = (*CompletionModule)(nil)

// NewModule creates a completion module using the OpenAI client.
func NewModule(config *Config) *CompletionModule {
	return NewModuleWithCompleter(config, NewOpenAICompleter(config))
}

// NewModuleWithCompleter creates a completion module with a custom backend.
func NewModuleWithCompleter(config *Config, completer Completer) *CompletionModule {
	logger := slog.Default().With("module", "completion")
	return &CompletionModule{
		config:    config,
		completer: completer,
		worker:    NewWorker(config, completer, logger),
		logger:    logger,
	}
}

// Name returns the module name.
func (m *CompletionModule) Name() string {
	return "completion"
}

// Start logs the effective configuration.
func (m *CompletionModule) Start(_ context.Context) error {
	if !m.config.HasAPIKey() {
		m.logger.Warn("No completion API key configured; every reply will be an error")
	}
	m.logger.Info("Module started", "config", m.config)
	return nil
}

// Stop stops the module.
func (m *CompletionModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *CompletionModule) Health(_ context.Context) mono.HealthStatus {
	message := "operational"
	if !m.config.HasAPIKey() {
		message = "api key not configured"
	}
	return mono.HealthStatus{
		Healthy: m.config.HasAPIKey(),
		Message: message,
		Details: map[string]any{
			"model":      m.config.Model,
			"max_tokens": m.config.MaxTokens,
		},
	}
}

// RegisterServices registers the generate-reply service.
func (m *CompletionModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"generate-reply",
		json.Unmarshal,
		json.Marshal,
		m.handleGenerateReply,
	); err != nil {
		return fmt.Errorf("failed to register generate-reply service: %w", err)
	}

	m.logger.Info("Registered services", "services", []string{"generate-reply"})
	return nil
}

func (m *CompletionModule) handleGenerateReply(ctx context.Context, req GenerateReplyRequest, _ *mono.Msg) (GenerateReplyResponse, error) {
	result := m.worker.Generate(ctx, req.Message)
	if result.Failed() {
		m.logger.Info("Job failed", "job_id", req.JobID, "error", result.Error)
	} else {
		m.logger.Debug("Job completed", "job_id", req.JobID, "chars", len(result.Text))
	}
	return GenerateReplyResponse{
		JobID: req.JobID,
		Text:  result.Text,
		Error: result.Error,
	}, nil
}
