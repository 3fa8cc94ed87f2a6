// Package main is the entry point for the sentinel-stac CLI tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/config"
	"github.com/eo-cat/sentinel-stac/internal/netrc"
	"github.com/eo-cat/sentinel-stac/internal/telemetry"
)

// Version information set at build time.
var version = "0.2.0"

// Global flags.
var (
	cfgFile      string
	hostFlag     string
	stacHostFlag string
	verbose      bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel-stac",
		Short: "Sentinel product listing and STAC catalogue registration",
		Long: `sentinel-stac lists Sentinel products recently published at a DHuS
OData endpoint and registers their metadata as STAC items in a
downstream catalogue. It is meant to run from cron: list emits new
product ids, register publishes one product, run drives the whole
pipeline under a lock file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "Path to configuration file")
	root.PersistentFlags().StringVar(&hostFlag, "sentinel-host", "", "Catalogue base URL, overrides sentinel_host")
	root.PersistentFlags().StringVar(&stacHostFlag, "stac-host", "", "STAC catalogue base URL, overrides stac_host")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newWatchCmd())

	return root
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if hostFlag != "" {
		cfg.SentinelHost = hostFlag
	}
	if stacHostFlag != "" {
		cfg.StacHost = stacHostFlag
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return telemetry.NewLogger(os.Stderr, level)
}

// loadCredentials opens the credential file and verifies an entry
// exists for every host the command will talk to.
func loadCredentials(hosts ...string) (netrc.Provider, error) {
	creds, err := netrc.Load()
	if err != nil {
		return nil, err
	}
	if err := netrc.Require(creds, hosts...); err != nil {
		return nil, err
	}
	return creds, nil
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
