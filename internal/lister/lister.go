// Package lister produces the list of product ids modified since the
// last checkpoint and advances the checkpoint.
package lister

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eo-cat/sentinel-stac/internal/checkpoint"
	"github.com/eo-cat/sentinel-stac/internal/odata"
)

// Catalogue is the search surface the lister needs from the OData
// client.
type Catalogue interface {
	SearchPage(ctx context.Context, since time.Time, skip, top int) ([]odata.Product, error)
}

// Options tune a single lister run.
type Options struct {
	// PageSize is the number of products per search request.
	PageSize int
	// Lookback bounds the first query when no checkpoint exists.
	Lookback time.Duration
	// From overrides the stored checkpoint when non-zero.
	From time.Time
	// DryRun computes the result without touching the output file or
	// the checkpoint.
	DryRun bool
	// Now is the clock, replaceable in tests.
	Now func() time.Time
}

// Lister runs incremental product listing against one catalogue.
type Lister struct {
	catalogue Catalogue
	store     checkpoint.Store
	output    string
	logger    *slog.Logger
	opts      Options
}

// New creates a Lister writing ids to outputPath.
func New(catalogue Catalogue, store checkpoint.Store, outputPath string, logger *slog.Logger, opts Options) *Lister {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 30 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{
		catalogue: catalogue,
		store:     store,
		output:    outputPath,
		logger:    logger,
		opts:      opts,
	}
}

// Result summarizes a successful run.
type Result struct {
	// IDs are the deduplicated product ids in catalogue order.
	IDs []string
	// Since is the effective start of the queried window.
	Since time.Time
	// Checkpoint is the watermark after the run. Equal to the
	// previous one when the run returned no products.
	Checkpoint time.Time
}

// Run performs one full listing: read checkpoint, page through the
// catalogue, write the output list, persist the new checkpoint.
// Any failure aborts with both files untouched.
func (l *Lister) Run(ctx context.Context) (Result, error) {
	stored, err := l.store.Load()
	if err != nil {
		return Result{}, fmt.Errorf("loading checkpoint: %w", err)
	}

	since := l.opts.From
	if since.IsZero() {
		since = stored
	}
	if since.IsZero() {
		since = l.opts.Now().Add(-l.opts.Lookback)
		l.logger.Debug("no checkpoint, using lookback window", "since", since)
	}

	var all []odata.Product
	for {
		page, err := l.catalogue.SearchPage(ctx, since, len(all), l.opts.PageSize)
		if err != nil {
			return Result{}, fmt.Errorf("fetching search page at offset %d: %w", len(all), err)
		}
		all = append(all, page...)
		if len(page) < l.opts.PageSize {
			break
		}
	}

	ids, maxModified := dedupe(all)
	l.logger.Info("listed products", "total", len(all), "unique", len(ids), "since", since)

	// The checkpoint never moves backwards: re-listing an old window
	// through From must not make later runs repeat everything between
	// that window and the stored watermark.
	next := stored
	if maxModified.After(stored) {
		next = maxModified
	}

	if l.opts.DryRun {
		return Result{IDs: ids, Since: since, Checkpoint: next}, nil
	}

	if err := writeList(l.output, ids); err != nil {
		return Result{}, fmt.Errorf("writing product list: %w", err)
	}
	// Persisted only after the output list is in place so a failed
	// run re-lists an overlapping window instead of skipping products.
	if next.After(stored) {
		if err := l.store.Save(next); err != nil {
			return Result{}, fmt.Errorf("saving checkpoint: %w", err)
		}
	}
	return Result{IDs: ids, Since: since, Checkpoint: next}, nil
}

// dedupe keeps the first occurrence of every id, preserving catalogue
// order, and reports the maximum modification timestamp seen.
func dedupe(products []odata.Product) ([]string, time.Time) {
	seen := make(map[string]struct{}, len(products))
	ids := make([]string, 0, len(products))
	var max time.Time
	for _, p := range products {
		if p.ModifiedAt.After(max) {
			max = p.ModifiedAt
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	return ids, max
}
