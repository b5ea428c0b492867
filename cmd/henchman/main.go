// Command henchman runs the task-server: it loads a TOML config file, walks
// the configured task directory, and serves the resulting task table over
// HTTP behind Basic auth.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/headexplodes/henchman/internal/auth"
	"github.com/headexplodes/henchman/internal/config"
	"github.com/headexplodes/henchman/internal/logging"
	"github.com/headexplodes/henchman/internal/metrics"
	"github.com/headexplodes/henchman/internal/server"
	"github.com/headexplodes/henchman/internal/taskfile"
)

func main() {
	var (
		configPath = flag.String("c", "", "path to the server config TOML file (required)")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.StringVar(configPath, "config", "", "alias for -c")
	flag.Parse()

	logger := logging.New(*logLevel)
	slog.SetDefault(logger)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: henchman -c <config.toml>")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	tasks, err := taskfile.LoadDir(cfg.TasksDir)
	if err != nil {
		slog.Error("loading task files", "dir", cfg.TasksDir, "error", err)
		os.Exit(1)
	}
	slog.Info("loaded tasks", "count", len(tasks), "dir", cfg.TasksDir)

	authenticator := auth.New(cfg.Users)
	dispatcher := server.New(tasks, authenticator)

	mux := http.NewServeMux()
	mux.Handle("/", dispatcher)
	mux.Handle("/metrics", metrics.Handler())

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
		// No ReadTimeout/WriteTimeout: task-run responses stream for as
		// long as the child process runs, which is unbounded by design.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", cfg.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("exited")
}
