package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/isolation/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "coordinator:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	flags := pflag.NewFlagSet("coordinator", pflag.ContinueOnError)
	flags.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "listen host")
	flags.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "listen port")
	flags.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level")
	flags.BoolVar(&cfg.Isolation.SitePerProcess, "site-per-process", cfg.Isolation.SitePerProcess, "give every site its own process")
	flags.StringSliceVar(&cfg.Isolation.IsolatedOrigins, "isolated-origin", cfg.Isolation.IsolatedOrigins, "origin that gets a dedicated process (repeatable)")
	flags.StringVar(&cfg.Isolation.PolicyFile, "policy", cfg.Isolation.PolicyFile, "navigation policy file (.yaml or .toml)")
	flags.StringVar(&cfg.Process.RendererMode, "renderer-mode", cfg.Process.RendererMode, "local or remote")
	flags.StringVar(&cfg.Process.RendererPath, "renderer-path", cfg.Process.RendererPath, "renderer binary for remote mode")
	flags.StringVar(&cfg.Process.CoordinatorURL, "coordinator-url", cfg.Process.CoordinatorURL, "attach URL handed to renderers")
	flags.IntVar(&cfg.Process.MaxProcesses, "max-processes", cfg.Process.MaxProcesses, "cap on live content processes")
	flags.DurationVar(&cfg.Process.UnloadTimeout, "unload-timeout", cfg.Process.UnloadTimeout, "wait for swap-out acks before deleting hosts")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if cfg.Logging.Development && !flags.Changed("log-level") {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return err
	}

	srv, err := server.NewServer(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
		return err
	}
	logger.Info("Shut down gracefully")
	return nil
}
