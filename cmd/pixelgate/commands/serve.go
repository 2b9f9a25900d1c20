package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/engine"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

func newServeCommand() *cobra.Command {
	var (
		noWatch       bool
		forceShutdown bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the delivery node",
		Long: `Start the pixelgate delivery node.

This command:
  - Loads and validates configuration
  - Builds the component dependency graph
  - Initializes components in dependency order
  - Serves health, statistics and metrics on the diagnostic listener
  - Watches the config file and re-applies source eligibility on change
  - Shuts components down in reverse order on SIGINT/SIGTERM`,
		Example: `  # Run with the default configuration
  pixelgate serve

  # Run with an explicit config file
  pixelgate serve --config /etc/pixelgate/config.yaml

  # Continue shutdown past failing components
  pixelgate serve --force-shutdown`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), noWatch, forceShutdown)
		},
	}

	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Disable config file watching")
	cmd.Flags().BoolVar(&forceShutdown, "force-shutdown", false, "Continue shutdown past failing components")

	return cmd
}

func runServe(ctx context.Context, noWatch, forceShutdown bool) error {
	n, err := buildNode(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.tel.Shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	initCtx, span := n.tel.Tracer.StartLifecycleSpan(ctx, n.orch.Statistics().RunID, engine.PhaseInit)
	stats, err := n.orch.Initialize(initCtx, n.initOptions())
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		n.persistRun(context.Background())
		reportInitFailures(stats)
		return fmt.Errorf("initialization failed: %w", err)
	}
	telemetry.RecordSuccess(span)
	span.End()
	n.persistRun(ctx)

	n.tel.Logger.WithRunID(stats.RunID).Infof("Node up: %d/%d components initialized",
		stats.Summary.Initialized, stats.Summary.Total)

	if !noWatch && configPath != "" {
		watcher := config.NewWatcher(configPath, n.cfg, n.tel.Logger, func(next *config.Config) {
			n.applySourceEligibility(next)
		})
		if err := watcher.Watch(ctx); err != nil {
			n.tel.Logger.WithError(err).Warn("Config watching disabled")
		}
	}

	<-ctx.Done()
	n.tel.Logger.Info("Shutdown signal received")

	// The serve context is already canceled; shutdown gets its own.
	shutdownCtx, span := n.tel.Tracer.StartLifecycleSpan(context.Background(), stats.RunID, engine.PhaseShutdown)
	force := forceShutdown || n.cfg.Lifecycle.ForceShutdown
	stats, err = n.orch.Shutdown(shutdownCtx, n.shutdownOptions(force))
	n.persistRun(shutdownCtx)
	if err != nil {
		telemetry.RecordError(span, err)
		span.End()
		return fmt.Errorf("shutdown failed: %w", err)
	}
	telemetry.RecordSuccess(span)
	span.End()

	n.tel.Logger.WithRunID(stats.RunID).Infof("Node stopped: %d components shut down", stats.Summary.Shutdown)
	return nil
}

func reportInitFailures(stats *engine.LifecycleStatistics) {
	if stats == nil {
		return
	}
	for name, health := range stats.Components {
		if health.Status == engine.StatusFailed {
			fmt.Fprintf(os.Stderr, "component %s failed: %s\n", name, health.Error)
		}
	}
}
