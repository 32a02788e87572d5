package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lcalzada-xor/vulnsync/internal/app"
	"github.com/lcalzada-xor/vulnsync/internal/config"
	"github.com/lcalzada-xor/vulnsync/internal/core/domain"
	"github.com/lcalzada-xor/vulnsync/internal/telemetry"
)

func main() {
	cfg := config.Load()

	// Setup Structured Logging
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize Tracing
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	// Root Context with cancellation on Interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, application, cfg); err != nil {
		slog.Error("Command failed", "error", err)
		cancel()
		application.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application, cfg *config.Config) error {
	filters := domain.FilterSet{}
	if len(cfg.Severities) > 0 {
		filters["severity"] = cfg.Severities
	}

	args := flag.Args()
	command := "sync"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "sync":
		return application.RunSync(ctx, filters, cfg.ForceRefresh)
	case "servers":
		return application.ShowServers(ctx, filters, cfg.ServerSort)
	case "tags":
		return application.ShowTags(ctx)
	case "cache-info":
		application.ShowCacheInfo(filters)
		return nil
	case "cache-clear":
		return application.ClearCache()
	case "classify":
		return runClassify(application, args[1:])
	default:
		return fmt.Errorf("unknown command %q (sync, servers, tags, cache-info, cache-clear, classify)", command)
	}
}

func runClassify(application *app.Application, args []string) error {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		return application.ListOverrides()
	case "add":
		if len(args) != 3 {
			return fmt.Errorf("usage: classify add <os-pattern> <device-type>")
		}
		return application.AddOverride(args[1], args[2])
	case "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: classify remove <os-pattern>")
		}
		return application.RemoveOverride(args[1])
	default:
		return fmt.Errorf("unknown classify subcommand %q (list, add, remove)", args[0])
	}
}
