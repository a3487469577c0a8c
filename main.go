package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/example/ai-support-chat/config"
	"github.com/example/ai-support-chat/logging"
	"github.com/example/ai-support-chat/modules/api"
	"github.com/example/ai-support-chat/modules/auth"
	"github.com/example/ai-support-chat/modules/completion"
	"github.com/example/ai-support-chat/modules/jobs"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, syncLogger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	slog.SetDefault(logger)

	logger.Info("=== AI Support Chat - Fiber + WebSocket + Job Runner ===")

	// mono logs at info unless only errors are wanted
	monoLevel := mono.LogLevelInfo
	if cfg.Logging.Level == "error" {
		monoLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(monoLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	completionConfig := &completion.Config{
		APIKey:         cfg.Completion.APIKey,
		BaseURL:        cfg.Completion.BaseURL,
		Model:          cfg.Completion.Model,
		MaxTokens:      cfg.Completion.MaxTokens,
		Temperature:    cfg.Completion.Temperature,
		RequestTimeout: cfg.Completion.RequestTimeout,
	}

	// Create modules
	authModule := auth.NewModule(auth.ModuleConfig{
		DatabaseDriver: cfg.Database.Driver,
		DatabaseDSN:    cfg.Database.DSN,
		JWT: auth.JWTConfig{
			SecretKey:            cfg.JWT.SecretKey,
			Issuer:               cfg.JWT.Issuer,
			AccessTokenDuration:  cfg.JWT.AccessTokenDuration,
			RefreshTokenDuration: cfg.JWT.RefreshTokenDuration,
		},
		RevocationBackend: cfg.Revocation.Backend,
		RedisAddr:         cfg.Revocation.RedisAddr,
		RedisKeyPrefix:    cfg.Revocation.KeyPrefix,
	})
	completionModule := completion.NewModule(completionConfig)
	jobsModule := jobs.NewModule(jobs.ModuleConfig{
		Pool: jobs.PoolConfig{
			Workers:        cfg.Jobs.Workers,
			QueueSize:      cfg.Jobs.QueueSize,
			ProcessTimeout: cfg.Jobs.ProcessTimeout,
		},
		Retain: cfg.Jobs.Retain,
	})
	apiModule := api.NewModule(api.ModuleConfig{
		Port:          cfg.Server.Port,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		AuthRateLimit: cfg.Server.AuthRateLimit,
		WaitTimeout:   cfg.Jobs.WaitTimeout,
	})

	// The runner and module health are not exposed via ServiceContainer
	apiModule.SetRunner(jobsModule.Runner())
	apiModule.AddHealthChecks(authModule, completionModule, jobsModule, apiModule)

	// Register modules with the framework.
	// - auth: credential store + token services
	// - completion: generate-reply service
	// - jobs: worker pool, depends on completion
	// - api: HTTP + websocket, depends on auth
	for _, m := range []mono.Module{authModule, completionModule, jobsModule, apiModule} {
		if err := app.Register(m); err != nil {
			log.Fatalf("Failed to register module %s: %v", m.Name(), err)
		}
	}

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(logger, cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Application exited", "code", exitCode)
	_ = syncLogger()
	os.Exit(exitCode)
}

func printStartupInfo(logger *slog.Logger, cfg *config.Config) {
	port := cfg.Server.Port
	logger.Info("Application started successfully!",
		"port", port,
		"database", cfg.Database.Driver,
		"revocation", cfg.Revocation.Backend,
		"model", cfg.Completion.Model,
		"workers", cfg.Jobs.Workers,
	)
	logger.Info("REST API endpoints",
		"register", "POST /register",
		"login", "POST /login",
		"logout", "POST /logout",
		"user", "GET|PATCH /user/:id",
		"token", "POST /api/token",
		"token_refresh", "POST /api/token/refresh",
		"job", "GET /jobs/:id",
		"health", "GET /health",
	)
	logger.Info("WebSocket endpoint", "url", "ws://localhost:"+port+"/ws/chat/:room?token=<access>")
}
