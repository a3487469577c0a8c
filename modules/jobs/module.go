package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/ai-support-chat/domain/job"
	"github.com/example/ai-support-chat/modules/completion"
	"github.com/go-monolith/mono"
)

// ModuleConfig configures the jobs module.
type ModuleConfig struct {
	Pool   PoolConfig
	Retain int
}

// Module provides the job runner as a mono module.
type Module struct {
	config ModuleConfig
	runner *Runner
	logger *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the jobs module. The runner exists right away so it
// can be handed to other modules before the application starts.
func NewModule(config ModuleConfig) *Module {
	logger := slog.Default().With("module", "jobs")
	return &Module{
		config: config,
		runner: NewRunner(config.Pool, job.NewStore(config.Retain), logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "jobs"
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"completion"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "completion":
		m.runner.SetExecutor(completion.NewCompletionAdapter(container))
	}
}

// Start starts the worker pool.
func (m *Module) Start(ctx context.Context) error {
	if err := m.runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	m.logger.Info("Module started")
	return nil
}

// Stop stops the worker pool gracefully.
func (m *Module) Stop(ctx context.Context) error {
	if err := m.runner.Stop(ctx); err != nil {
		return err
	}
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	running := m.runner.IsRunning()
	message := "operational"
	if !running {
		message = "not running"
	}
	return mono.HealthStatus{
		Healthy: running,
		Message: message,
		Details: m.runner.Stats(),
	}
}

// Runner returns the job runner instance.
func (m *Module) Runner() *Runner {
	return m.runner
}
