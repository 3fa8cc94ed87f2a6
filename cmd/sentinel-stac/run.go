package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/checkpoint"
	"github.com/eo-cat/sentinel-stac/internal/config"
	"github.com/eo-cat/sentinel-stac/internal/lister"
	"github.com/eo-cat/sentinel-stac/internal/odata"
	"github.com/eo-cat/sentinel-stac/internal/pipeline"
	"github.com/eo-cat/sentinel-stac/internal/register"
	"github.com/eo-cat/sentinel-stac/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	var (
		concurrency int
		save        bool
		overwrite   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "List new products and register them in one pass",
		Long: `Run combines the listing and registration stages: it lists products
modified since the checkpoint, then registers each one in the STAC
catalogue. A lock file prevents overlapping cron invocations. A
product that fails to register does not stop the rest; the run exits
non-zero when any product failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateRegister(true, save); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := newLogger()
			p, err := buildPipeline(ctx, cfg, concurrency, save, overwrite, logger, nil)
			if err != nil {
				return err
			}

			summary, err := p.Run(ctx)
			logger.Info("run finished",
				"run_id", summary.RunID,
				"listed", summary.Listed,
				"succeeded", summary.Succeeded,
				"failed", summary.Failed,
			)
			return err
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "Number of products registered in parallel")
	cmd.Flags().BoolVarP(&save, "save", "s", false, "Also save generated items to the item store")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing catalogue entries instead of skipping")

	return cmd
}

// buildPipeline wires the listing and registration stages together.
func buildPipeline(ctx context.Context, cfg config.Config, concurrency int, save, overwrite bool, logger *slog.Logger, metrics *telemetry.Metrics) (*pipeline.Pipeline, error) {
	opts := register.Options{Push: true, Save: save, Overwrite: overwrite}
	reg, err := buildRegistrar(ctx, cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	creds, err := loadCredentials(cfg.SentinelHost)
	if err != nil {
		return nil, err
	}
	catalogue := odata.NewClient(cfg.SentinelHost, creds, logger)
	store := &checkpoint.FileStore{Path: cfg.CheckpointPath()}
	l := lister.New(catalogue, store, cfg.ListPath(), logger, lister.Options{
		PageSize: cfg.PageSize,
		Lookback: cfg.Lookback(),
	})

	publish := func(ctx context.Context, productID string) error {
		return reg.Register(ctx, productID, opts)
	}
	return pipeline.New(l, publish, cfg.LockPath(), concurrency, logger, metrics), nil
}
