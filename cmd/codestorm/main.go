package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/codestorm-dev/codestorm/internal/config"
	"github.com/codestorm-dev/codestorm/internal/logger"
	"github.com/codestorm-dev/codestorm/internal/pidfile"
	"github.com/codestorm-dev/codestorm/internal/runner"
	"github.com/codestorm-dev/codestorm/internal/watcher"
	"github.com/codestorm-dev/codestorm/internal/web"
	"github.com/codestorm-dev/codestorm/internal/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() (err error) {
	configPath := flag.String("config", "", "path to config file (JSON)")
	host := flag.String("host", "", "listen host, overrides config")
	port := flag.Int("port", 0, "listen port, overrides config")
	workspaceRoot := flag.String("workspace-root", "", "workspace root directory, overrides config")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error, none")
	pidPath := flag.String("pidfile", "", "PID file path, defaults to <workspace-root>/.codestorm.pid")
	debug := flag.Bool("debug", false, "log every WebSocket message")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *workspaceRoot != "" {
		cfg.WorkspaceRoot = *workspaceRoot
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if initErr := logger.Init(logger.ParseLevel(cfg.LogLevel), cfg.LogPath); initErr != nil {
		return fmt.Errorf("failed to initialize logger: %w", initErr)
	}
	defer func() {
		if err != nil {
			logger.Error("Fatal error: %v", err)
		}
		if closeErr := logger.Global().Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close logger: %v\n", closeErr)
		}
	}()

	logger.Info("codestorm starting")
	logger.Debug("Configuration: workspace_root=%s addr=%s log_level=%s",
		cfg.WorkspaceRoot, cfg.Addr(), cfg.LogLevel)

	store, err := workspace.NewStore(cfg.WorkspaceRoot)
	if err != nil {
		return fmt.Errorf("failed to open workspace root: %w", err)
	}

	// One instance per workspace root, or watchers double every change event.
	if *pidPath == "" {
		*pidPath = filepath.Join(store.Root(), ".codestorm.pid")
	}
	pid := pidfile.New(*pidPath)
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer func() {
		if releaseErr := pid.Release(); releaseErr != nil {
			logger.Warn("Failed to remove pidfile: %v", releaseErr)
		}
	}()

	validator, err := runner.NewValidator(cfg.Commands.Allowlist)
	if err != nil {
		return fmt.Errorf("invalid command allowlist: %w", err)
	}

	commandRunner := runner.New(
		time.Duration(cfg.DefaultTimeout)*time.Second,
		time.Duration(cfg.MaxTimeout)*time.Second,
		cfg.MaxOutputBytes,
		validator,
	)

	hub := web.NewHub()
	files := workspace.NewFiles(store, hub, cfg.MaxFileSizeBytes)

	fsWatcher := watcher.New(store, hub, time.Duration(cfg.PollInterval)*time.Second)
	go fsWatcher.Run()
	defer fsWatcher.Stop()

	srv := web.NewServer(cfg, store, files, commandRunner, hub, *debug)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Received %s, shutting down", sig)

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	logger.Info("codestorm stopped")
	return nil
}
