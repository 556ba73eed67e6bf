package main

import (
	"collab-lab/domain"
	"collab-lab/internal"
	"collab-lab/moderation"
	"collab-lab/runtime"
	"collab-lab/runtime/workers"
	"collab-lab/sandbox"
	"collab-lab/ws"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 10 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a fatal server error.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is fine, the environment alone is enough
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Sandbox & Coordinator
	processes := make(chan domain.Process, config.MaxConcurrentExecutions*2)
	executor := sandbox.NewExecutor(logger, sandbox.Config{
		Timeout:          config.ExecutionTimeout,
		MaxOutputBytes:   config.MaxOutputBytes,
		MaxConcurrent:    config.MaxConcurrentExecutions,
		AdmissionTimeout: config.AdmissionTimeout,
		WorkDir:          config.SandboxWorkDir,
		NodeBin:          config.NodeBin,
		PythonBin:        config.PythonBin,
	}, processes)

	coordinator := runtime.NewCoordinator(logger, runtime.NewRegistry(), executor, config.CommandBufferSize)

	if config.CommentModeration {
		moderator, err := buildModerator(config, logger)
		if err != nil {
			return exitConfig, err
		}
		coordinator.WithCensor(moderator)
	}

	// 3. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(
		coordinator,
		workers.NewRoomJanitor(logger, coordinator, config.JanitorInterval, config.RoomIdleTTL),
		workers.NewSandboxMonitor(logger, processes, config.MetricInterval, 2*config.ExecutionTimeout+time.Second),
	)

	supervisorDone := make(chan struct{})
	go func() {
		logger.Info("Starting workers...")
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 4. HTTP & Websocket
	wsServer := ws.NewServer(ctx, logger, coordinator, ws.Config{
		AllowedOrigins:  config.Origins(),
		MaxMessageBytes: config.MaxMessageBytes,
		BufferSize:      config.ConnectionBufferSize,
		PingInterval:    config.PingInterval,
	})

	srv := &http.Server{
		Addr:              config.Address(),
		Handler:           internal.NewRouter(logger, config.Origins(), coordinator, wsServer.ServeWS),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	exitCode, exitErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		exitCode, exitErr = exitRuntime, err
		stop()
	}

	// 6. Graceful Shutdown
	// Websocket connections are bound to ctx and are already closing at this point
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server did not shut down cleanly", "error", err)
	}
	<-supervisorDone

	if exitErr != nil {
		return exitCode, exitErr
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildModerator(config internal.Config, logger *slog.Logger) (*moderation.Moderator, error) {
	censorChar, err := internal.CharacterRune(config.CensorCharacter)
	if err != nil {
		return nil, err
	}
	data, err := moderation.NewCensoredLoader(moderation.Dictionaries).LoadAll(moderation.DictionaryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load censored dictionaries: %w", err)
	}
	logger.Info("Comment moderation enabled", "languages", data.Languages, "words", len(data.Words))
	return moderation.NewModerator(data.Words, censorChar, logger)
}
