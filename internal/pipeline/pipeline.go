// Package pipeline drives a full run: lock, list, then publish every
// listed product.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/eo-cat/sentinel-stac/internal/lister"
	"github.com/eo-cat/sentinel-stac/internal/lock"
	"github.com/eo-cat/sentinel-stac/internal/telemetry"
)

// Lister is the listing stage.
type Lister interface {
	Run(ctx context.Context) (lister.Result, error)
}

// PublishFunc publishes one product id.
type PublishFunc func(ctx context.Context, productID string) error

// ErrPartialFailure marks a run where some products failed to
// publish but the run itself completed.
var ErrPartialFailure = errors.New("some products failed to publish")

// Pipeline runs the two stages under the lock file.
type Pipeline struct {
	lister      Lister
	publish     PublishFunc
	lockPath    string
	lockStale   time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *telemetry.Metrics
}

// New assembles a pipeline. concurrency <= 1 publishes strictly
// sequentially. metrics may be nil.
func New(l Lister, publish PublishFunc, lockPath string, concurrency int, logger *slog.Logger, metrics *telemetry.Metrics) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		lister:      l,
		publish:     publish,
		lockPath:    lockPath,
		lockStale:   24 * time.Hour,
		concurrency: concurrency,
		logger:      logger,
		metrics:     metrics,
	}
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Listed    int
	Succeeded int
	Failed    int
	FailedIDs []string
}

// Run executes one pipeline run. A product that fails to publish
// does not stop the remaining products; the summary carries the
// failures and the returned error is ErrPartialFailure when any
// occurred.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	runID := ulid.Make().String()
	ctx = telemetry.WithRunID(ctx, runID)
	logger := telemetry.RunLogger(p.logger, ctx)
	start := time.Now()

	guard, err := lock.Acquire(p.lockPath, p.lockStale)
	if err != nil {
		return Summary{RunID: runID}, fmt.Errorf("acquiring pipeline lock: %w", err)
	}
	defer func() {
		if err := guard.Release(); err != nil {
			logger.Warn("releasing pipeline lock failed", "error", err)
		}
	}()

	res, err := p.lister.Run(ctx)
	if err != nil {
		p.observe("error", start, 0)
		return Summary{RunID: runID}, fmt.Errorf("listing products: %w", err)
	}

	summary := Summary{RunID: runID, Listed: len(res.IDs)}
	logger.Info("pipeline listed products", "count", summary.Listed)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for _, id := range res.IDs {
		id := id
		g.Go(func() error {
			// Publish failures are collected, not propagated, so the
			// remaining products still get their attempt.
			if err := p.publish(gctx, id); err != nil {
				logger.Error("publishing product failed", "product_id", id, "error", err)
				if p.metrics != nil {
					p.metrics.RegistrationsTotal.WithLabelValues("error").Inc()
				}
				mu.Lock()
				summary.Failed++
				summary.FailedIDs = append(summary.FailedIDs, id)
				mu.Unlock()
				return nil
			}
			if p.metrics != nil {
				p.metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
			}
			mu.Lock()
			summary.Succeeded++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	var runErr error
	if summary.Failed > 0 {
		status = "partial"
		runErr = fmt.Errorf("%w: %d of %d", ErrPartialFailure, summary.Failed, summary.Listed)
	}
	p.observe(status, start, summary.Listed)
	logger.Info("pipeline finished",
		"listed", summary.Listed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration", time.Since(start))
	return summary, runErr
}

func (p *Pipeline) observe(status string, start time.Time, listed int) {
	if p.metrics == nil {
		return
	}
	p.metrics.RunsTotal.WithLabelValues(status).Inc()
	p.metrics.ProductsListed.Add(float64(listed))
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
}
