// Package api serves the HTTP and websocket surface of the chat service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/ai-support-chat/modules/auth"
	"github.com/example/ai-support-chat/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// JobRunner is what the API needs from the job runner.
type JobRunner interface {
	chat.JobRunner
	JobLookup
}

// HealthChecker is a module whose health is reported on /health.
type HealthChecker interface {
	Name() string
	Health(ctx context.Context) mono.HealthStatus
}

// ModuleConfig configures the API module.
type ModuleConfig struct {
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	AuthRateLimit int           // credential requests per IP and minute, 0 disables
	WaitTimeout   time.Duration // bound on the wait for one chat reply
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	config      ModuleConfig
	app         *fiber.App
	authAdapter auth.AuthPort
	runner      JobRunner
	checks      []HealthChecker
	cancel      context.CancelFunc
	logger      *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config ModuleConfig) *APIModule {
	if config.Port == "" {
		config.Port = "3000"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 60 * time.Second
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = 120 * time.Second
	}
	return &APIModule{
		config: config,
		logger: slog.Default().With("module", "api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	}
}

// SetRunner sets the job runner (called from main.go).
func (m *APIModule) SetRunner(runner JobRunner) {
	m.runner = runner
}

// AddHealthChecks registers modules reported by /health (called from main.go).
func (m *APIModule) AddHealthChecks(checks ...HealthChecker) {
	m.checks = append(m.checks, checks...)
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authAdapter == nil {
		return fmt.Errorf("auth adapter dependency not set")
	}
	if m.runner == nil {
		return fmt.Errorf("job runner dependency not set")
	}

	// Chat sessions end when the module stops, not when a request ends.
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	m.app = m.newApp(ctx)

	go func() {
		if err := m.app.Listen(":" + m.config.Port); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "port", m.config.Port)
	return nil
}

// newApp builds the Fiber application with all routes.
func (m *APIModule) newApp(ctx context.Context) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           m.config.ReadTimeout,
		WriteTimeout:          m.config.WriteTimeout,
		IdleTimeout:           m.config.IdleTimeout,
	})

	app.Use(recover.New())
	app.Use(m.loggerMiddleware())
	app.Use(cors.New())

	m.setupRoutes(ctx, app)
	return app
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server...")
	m.cancel()
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.config.Port,
		},
	}
}

// setupRoutes configures all API routes.
func (m *APIModule) setupRoutes(ctx context.Context, app *fiber.App) {
	handlers := NewHandlers(m.authAdapter, m.runner, m.logger)
	relay := chat.NewRelay(m.runner, m.config.WaitTimeout, m.logger)

	app.Get("/health", m.healthHandler)

	// Public auth routes
	limitAuth := m.authRateLimiter()
	app.Post("/register", limitAuth, handlers.Register)
	app.Post("/login", limitAuth, handlers.Login)
	app.Post("/api/token", limitAuth, handlers.ObtainToken)
	app.Post("/api/token/refresh", limitAuth, handlers.RefreshToken)

	// Protected routes (require authentication)
	requireAuth := AuthMiddleware(m.authAdapter)
	app.Post("/logout", requireAuth, handlers.Logout)
	app.Get("/user/:id", requireAuth, handlers.GetUser)
	app.Patch("/user/:id", requireAuth, handlers.UpdateUser)
	app.Get("/jobs/:id", requireAuth, handlers.GetJob)

	// Websocket routes, all behind the connection gate
	ws := app.Group("/ws", ConnectionGate(m.authAdapter))
	ws.Get("/chat/:room?", joinRoom, websocket.New(chatHandler(ctx, relay, m.logger)))
}

// authRateLimiter limits credential endpoints per client IP.
func (m *APIModule) authRateLimiter() fiber.Handler {
	if m.config.AuthRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        m.config.AuthRateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{
				Error:   "too_many_requests",
				Message: "Too many authentication attempts, try again later",
			})
		},
	})
}

func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:  "healthy",
		Modules: make(map[string]ModuleHealth, len(m.checks)),
	}
	for _, check := range m.checks {
		status := check.Health(c.UserContext())
		if !status.Healthy {
			resp.Status = "degraded"
		}
		resp.Modules[check.Name()] = ModuleHealth{
			Healthy: status.Healthy,
			Message: status.Message,
			Details: status.Details,
		}
	}

	code := fiber.StatusOK
	if resp.Status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(resp)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func (m *APIModule) loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		m.logger.Info("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start),
		)
		return err
	}
}
