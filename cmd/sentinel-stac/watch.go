package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/eo-cat/sentinel-stac/internal/config"
	"github.com/eo-cat/sentinel-stac/internal/telemetry"
)

func newWatchCmd() *cobra.Command {
	var (
		concurrency int
		save        bool
		overwrite   bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the pipeline on a schedule",
		Long: `Watch keeps the process alive and executes the pipeline on the cron
schedule from the configuration. Metrics are exposed over HTTP while
the daemon runs. Edits to the configuration file are picked up before
the next scheduled run, including a changed schedule; only the
metrics listen address stays fixed until restart.`,
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
			w := &watcher{
				cfg:         cfg,
				cfgPath:     cfgFile,
				concurrency: concurrency,
				save:        save,
				overwrite:   overwrite,
				logger:      logger,
				metrics:     telemetry.NewMetrics(),
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "Number of products registered in parallel")
	cmd.Flags().BoolVarP(&save, "save", "s", false, "Also save generated items to the item store")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing catalogue entries instead of skipping")

	return cmd
}

// watcher holds the daemon state. The configuration is replaced
// in place when the file changes, so each scheduled run sees the
// latest settings; a changed schedule swaps the cron entry.
type watcher struct {
	mu          sync.Mutex
	cfg         config.Config
	cfgPath     string
	concurrency int
	save        bool
	overwrite   bool
	logger      *slog.Logger
	metrics     *telemetry.Metrics

	ctx   context.Context
	sched *cron.Cron
	entry cron.EntryID
}

func (w *watcher) run(ctx context.Context) error {
	srv := &http.Server{Addr: w.cfg.MetricsAddr, Handler: w.metricsMux()}
	go func() {
		w.logger.Info("serving metrics", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("metrics server failed", "error", err)
		}
	}()

	w.ctx = ctx
	w.sched = cron.New()
	entry, err := w.sched.AddFunc(w.cfg.Schedule, func() { w.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", w.cfg.Schedule, err)
	}
	w.entry = entry

	if err := w.watchConfig(ctx); err != nil {
		w.logger.Warn("configuration reload disabled", "error", err)
	}

	w.logger.Info("watch started", "schedule", w.cfg.Schedule)
	w.sched.Start()

	<-ctx.Done()
	w.logger.Info("shutting down")
	stopCtx := w.sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Let an in-flight run finish before returning.
	<-stopCtx.Done()
	return nil
}

func (w *watcher) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", w.metrics.Handler())
	return mux
}

// runOnce executes a single pipeline run with the current
// configuration. Failures are logged, never fatal to the daemon.
func (w *watcher) runOnce(ctx context.Context) {
	w.mu.Lock()
	cfg := w.cfg
	w.mu.Unlock()

	p, err := buildPipeline(ctx, cfg, w.concurrency, w.save, w.overwrite, w.logger, w.metrics)
	if err != nil {
		w.logger.Error("assembling pipeline", "error", err)
		return
	}
	summary, err := p.Run(ctx)
	if err != nil {
		w.logger.Error("scheduled run failed",
			"run_id", summary.RunID,
			"failed", summary.Failed,
			"error", err,
		)
		return
	}
	w.logger.Info("scheduled run finished",
		"run_id", summary.RunID,
		"listed", summary.Listed,
		"succeeded", summary.Succeeded,
	)
}

// watchConfig reloads the configuration file when it changes on
// disk. The parent directory is watched because editors typically
// replace the file instead of writing it in place.
func (w *watcher) watchConfig(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.cfgPath)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return err
	}

	go func() {
		defer fw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.cfgPath) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				w.reload()
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("configuration watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (w *watcher) reload() {
	cfg, err := config.Load(w.cfgPath)
	if err != nil {
		w.logger.Error("reloading configuration", "error", err)
		return
	}
	if hostFlag != "" {
		cfg.SentinelHost = hostFlag
	}
	if stacHostFlag != "" {
		cfg.StacHost = stacHostFlag
	}

	w.mu.Lock()
	prevSchedule := w.cfg.Schedule
	w.cfg = cfg
	w.mu.Unlock()

	if cfg.Schedule != prevSchedule {
		if err := w.reschedule(cfg.Schedule); err != nil {
			w.logger.Error("keeping previous schedule", "error", err)
			w.mu.Lock()
			w.cfg.Schedule = prevSchedule
			w.mu.Unlock()
		}
	}
	w.logger.Info("configuration reloaded", "path", w.cfgPath, "schedule", w.schedule())
}

// reschedule swaps the cron entry for a new schedule expression. The
// old entry stays in place when the new expression does not parse.
func (w *watcher) reschedule(spec string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	entry, err := w.sched.AddFunc(spec, func() { w.runOnce(w.ctx) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	w.sched.Remove(w.entry)
	w.entry = entry
	return nil
}

func (w *watcher) schedule() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Schedule
}
