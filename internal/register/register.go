// Package register publishes one product's metadata to the STAC
// catalogue: fetch, delegate item generation, fix hrefs, store, push.
package register

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eo-cat/sentinel-stac/internal/collection"
	"github.com/eo-cat/sentinel-stac/internal/odata"
	"github.com/eo-cat/sentinel-stac/internal/report"
	"github.com/eo-cat/sentinel-stac/internal/stac"
	"github.com/eo-cat/sentinel-stac/internal/storage"
	"github.com/eo-cat/sentinel-stac/internal/transform"
)

// Catalogue is what the registrar needs from the OData client.
type Catalogue interface {
	ProductNode(ctx context.Context, productID string) (odata.NodeDoc, error)
	Download(ctx context.Context, url string, w io.Writer) error
}

// Pusher is what the registrar needs from the STAC client.
type Pusher interface {
	Push(ctx context.Context, collection string, item []byte, overwrite bool) error
}

// Options select which side effects a registration performs.
type Options struct {
	// Push uploads the item to the STAC catalogue.
	Push bool
	// Save stores the item document in the configured item store.
	Save bool
	// Overwrite replaces an existing catalogue entry instead of
	// skipping the product.
	Overwrite bool
}

// Registrar registers single products.
type Registrar struct {
	catalogue Catalogue
	pusher    Pusher
	builder   transform.Builder
	store     storage.Store
	reports   *report.Writer
	logger    *slog.Logger
}

// New assembles a registrar. store may be nil when saving is never
// requested; pusher may be nil when pushing is never requested.
func New(catalogue Catalogue, pusher Pusher, builder transform.Builder, store storage.Store, reports *report.Writer, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	if reports == nil {
		reports = report.New("", "")
	}
	return &Registrar{
		catalogue: catalogue,
		pusher:    pusher,
		builder:   builder,
		store:     store,
		reports:   reports,
		logger:    logger,
	}
}

// Register processes one product id end to end. Failures are
// recorded in the error report before being returned.
func (r *Registrar) Register(ctx context.Context, productID string, opts Options) error {
	doc, err := r.catalogue.ProductNode(ctx, productID)
	if err != nil {
		r.fail("", productID, err)
		return err
	}

	coll, err := collection.ForTitle(doc.Title)
	if err != nil {
		r.fail("", productID, err)
		return err
	}
	logger := r.logger.With("product_id", productID, "title", doc.Title, "collection", coll)
	logger.Info("registering product")

	workDir, err := r.fetchMetadata(ctx, doc)
	if err != nil {
		r.fail(coll, productID, err)
		return err
	}
	defer os.RemoveAll(filepath.Dir(workDir))

	item, err := r.builder.BuildItem(ctx, workDir)
	if err != nil {
		err = fmt.Errorf("generating item for %s: %w", doc.Title, err)
		r.fail(coll, productID, err)
		return err
	}
	item, err = transform.RewriteHrefs(item, workDir, doc.ProductURL)
	if err != nil {
		r.fail(coll, productID, err)
		return err
	}
	itemID, err := transform.ItemID(item)
	if err != nil {
		r.fail(coll, productID, err)
		return err
	}

	if opts.Save && r.store != nil {
		loc, err := r.store.SaveItem(ctx, itemID+".json", item)
		if err != nil {
			r.fail(coll, productID, err)
			return err
		}
		logger.Info("item stored", "location", loc)
	}

	if opts.Push {
		err := r.pusher.Push(ctx, coll, item, opts.Overwrite)
		switch {
		case errors.Is(err, stac.ErrConflict):
			logger.Info("product already registered, skipping")
			return r.reports.Skipped(coll, productID)
		case err != nil:
			r.fail(coll, productID, err)
			return err
		}
	}

	return r.reports.Success(coll, productID)
}

func (r *Registrar) fail(coll, productID string, err error) {
	if repErr := r.reports.Failure(coll, productID, -1, err.Error()); repErr != nil {
		r.logger.Warn("writing error report failed", "error", repErr)
	}
}

// fetchMetadata downloads the platform's manifest files into a fresh
// work directory named after the product title, mirroring the layout
// item generators expect.
func (r *Registrar) fetchMetadata(ctx context.Context, doc odata.NodeDoc) (string, error) {
	platform := collection.Platform(doc.Title)
	files, err := collection.ManifestFiles(platform)
	if err != nil {
		return "", err
	}

	tmp, err := os.MkdirTemp("", "sentinel-stac-*")
	if err != nil {
		return "", fmt.Errorf("creating work directory: %w", err)
	}
	workDir := filepath.Join(tmp, doc.Title)
	if err := os.Mkdir(workDir, 0o755); err != nil {
		os.RemoveAll(tmp)
		return "", fmt.Errorf("creating work directory: %w", err)
	}

	for _, file := range files {
		if err := r.downloadNodeFile(ctx, doc.ProductURL, workDir, file); err != nil {
			os.RemoveAll(tmp)
			return "", err
		}
	}
	// S5P products carry their metadata on the node itself.
	if platform == "s5" {
		if err := r.downloadTo(ctx, doc.ProductURL+"/$value", filepath.Join(workDir, doc.Title)); err != nil {
			os.RemoveAll(tmp)
			return "", err
		}
	}
	return workDir, nil
}

func (r *Registrar) downloadNodeFile(ctx context.Context, productURL, workDir, name string) error {
	return r.downloadTo(ctx, odata.NodeFileURL(productURL, name), filepath.Join(workDir, name))
}

func (r *Registrar) downloadTo(ctx context.Context, url, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer f.Close()
	if err := r.catalogue.Download(ctx, url, f); err != nil {
		return err
	}
	return f.Close()
}
