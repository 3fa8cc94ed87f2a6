package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/checkpoint"
	"github.com/eo-cat/sentinel-stac/internal/lister"
	"github.com/eo-cat/sentinel-stac/internal/odata"
)

func newListCmd() *cobra.Command {
	var (
		fromStr      string
		output       string
		lookbackDays int
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products modified since the last run",
		Long: `List queries the catalogue for products whose modification date is
later than the stored checkpoint and writes their ids to the output
file, one per line. The checkpoint advances to the latest modification
date seen, so successive runs pick up where the previous one stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if lookbackDays > 0 {
				cfg.LookbackDays = lookbackDays
			}
			if err := cfg.ValidateLister(); err != nil {
				return err
			}

			var from time.Time
			if fromStr != "" {
				from, err = time.Parse("2006-01-02", fromStr)
				if err != nil {
					return fmt.Errorf("parse --from: %w", err)
				}
			}
			if output == "" {
				output = cfg.ListPath()
			}

			logger := newLogger()
			creds, err := loadCredentials(cfg.SentinelHost)
			if err != nil {
				return err
			}

			catalogue := odata.NewClient(cfg.SentinelHost, creds, logger)
			store := &checkpoint.FileStore{Path: cfg.CheckpointPath()}
			l := lister.New(catalogue, store, output, logger, lister.Options{
				PageSize: cfg.PageSize,
				Lookback: cfg.Lookback(),
				From:     from,
				DryRun:   dryRun,
			})

			res, err := l.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("listing complete",
				"products", len(res.IDs),
				"since", res.Since.Format(time.RFC3339),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "Override the checkpoint with a start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&lookbackDays, "lookback", 0, "Days to look back when no checkpoint exists (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file for product ids (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Query only, do not write the list or the checkpoint")

	return cmd
}
