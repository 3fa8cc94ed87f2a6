package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/config"
	"github.com/eo-cat/sentinel-stac/internal/odata"
	"github.com/eo-cat/sentinel-stac/internal/register"
	"github.com/eo-cat/sentinel-stac/internal/report"
	"github.com/eo-cat/sentinel-stac/internal/stac"
	"github.com/eo-cat/sentinel-stac/internal/storage"
	"github.com/eo-cat/sentinel-stac/internal/transform"
)

func newRegisterCmd() *cobra.Command {
	var (
		productID string
		opts      register.Options
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register one product in the STAC catalogue",
		Long: `Register fetches the metadata of a single product, runs the item
generator over it and pushes the resulting STAC item to the catalogue,
saves it to the item store, or both. The outcome is appended to the
dated success or error report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Push && !opts.Save {
				return fmt.Errorf("nothing to do: pass --push, --save or both")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateRegister(opts.Push, opts.Save); err != nil {
				return err
			}

			logger := newLogger()
			reg, err := buildRegistrar(cmd.Context(), cfg, opts, logger)
			if err != nil {
				return err
			}
			return reg.Register(cmd.Context(), productID, opts)
		},
	}

	cmd.Flags().StringVarP(&productID, "product-id", "i", "", "Product id to register")
	cmd.Flags().BoolVarP(&opts.Push, "push", "p", false, "Push the item to the STAC catalogue")
	cmd.Flags().BoolVarP(&opts.Save, "save", "s", false, "Save the item document to the item store")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing catalogue entry instead of skipping")
	_ = cmd.MarkFlagRequired("product-id")

	return cmd
}

// buildRegistrar wires a registrar from the configuration. The STAC
// client and the item store are only constructed when the selected
// options need them.
func buildRegistrar(ctx context.Context, cfg config.Config, opts register.Options, logger *slog.Logger) (*register.Registrar, error) {
	hosts := []string{cfg.SentinelHost}
	if opts.Push {
		hosts = append(hosts, cfg.StacHost)
	}
	creds, err := loadCredentials(hosts...)
	if err != nil {
		return nil, err
	}

	catalogue := odata.NewClient(cfg.SentinelHost, creds, logger)

	var pusher register.Pusher
	if opts.Push {
		pusher = stac.NewClient(cfg.StacHost, creds, logger)
	}

	var store storage.Store
	if opts.Save {
		if cfg.S3.Bucket != "" {
			store, err = storage.NewS3Store(ctx, cfg.S3.Bucket, cfg.S3.Prefix, cfg.S3.Region)
			if err != nil {
				return nil, fmt.Errorf("connecting to s3: %w", err)
			}
		} else {
			store = &storage.LocalStore{Dir: cfg.LocalDir}
		}
	}

	builder, err := itemBuilder(cfg)
	if err != nil {
		return nil, err
	}

	reports := report.New(cfg.SuccPrefix, cfg.ErrPrefix)
	return register.New(catalogue, pusher, builder, store, reports, logger), nil
}

// itemBuilder splits the configured generator command line into the
// executable and its leading arguments.
func itemBuilder(cfg config.Config) (transform.Builder, error) {
	fields := strings.Fields(cfg.GeneratorCommand)
	if len(fields) == 0 {
		return nil, fmt.Errorf("generator_command is not configured")
	}
	return &transform.CommandBuilder{Command: fields[0], Args: fields[1:]}, nil
}
