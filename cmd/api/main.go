// Package main provides the entry point for the meal plan shopping list API server
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alchemorsel/mealplan/internal/infrastructure/config"
	"github.com/alchemorsel/mealplan/internal/infrastructure/container"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Serve the shopping list API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the configuration file")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	var cfg *config.Config
	app := fx.New(
		container.Module,
		fx.Supply(container.ConfigPath(configPath)),
		fx.Populate(&cfg),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	startCtx, startCancel := context.WithTimeout(ctx, app.StartTimeout())
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Either a signal or a server failure reported through fx.Shutdowner
	var exitErr error
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		if sig.ExitCode != 0 {
			exitErr = fmt.Errorf("application exited with code %d", sig.ExitCode)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("failed to stop application gracefully: %w", err)
	}
	return exitErr
}

func shutdownTimeout(cfg *config.Config) time.Duration {
	if cfg == nil || cfg.Server.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return cfg.Server.ShutdownTimeout
}
