package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/collection"
	"github.com/eo-cat/sentinel-stac/internal/report"
	"github.com/eo-cat/sentinel-stac/internal/stac"
)

func newRemoveCmd() *cobra.Command {
	var productID string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a product's entry from the STAC catalogue",
		Long: `Remove deletes the catalogue entry registered for a product title.
The feature id is derived from the title the same way register derives
it, so only the title is needed. When a site salt is configured the
title is expected to carry it as a prefix.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// The collection is mapped from the bare title, the
			// feature id from the salted one.
			title := strings.TrimPrefix(productID, cfg.Salt)
			coll, err := collection.ForTitle(title)
			if err != nil {
				return err
			}
			featureID := stac.FeatureID(productID)

			logger := newLogger()
			creds, err := loadCredentials(cfg.StacHost)
			if err != nil {
				return err
			}
			client := stac.NewClient(cfg.StacHost, creds, logger)
			reports := report.New(cfg.SuccPrefixRemoval, cfg.ErrPrefixRemoval)

			if err := client.Remove(cmd.Context(), coll, featureID); err != nil {
				if rerr := reports.Failure(coll, productID, -1, err.Error()); rerr != nil {
					logger.Error("writing removal report", "error", rerr)
				}
				return err
			}
			logger.Info("catalogue entry removed",
				"collection", coll,
				"feature_id", featureID,
			)
			return reports.Success(coll, productID)
		},
	}

	cmd.Flags().StringVarP(&productID, "product-id", "i", "", "Product title whose entry should be removed")
	_ = cmd.MarkFlagRequired("product-id")

	return cmd
}
