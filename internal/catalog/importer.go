package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Upserter stores imported products.
type Upserter interface {
	Upsert(ctx context.Context, product *model.Product) error
}

// ImporterConfig holds configuration for the catalogue importer.
type ImporterConfig struct {
	// FilePaths is the list of catalogue files to import.
	FilePaths []string

	// Concurrency caps the number of files processed at once.
	// Default: 4
	Concurrency int
}

// Summary reports what an import did.
type Summary struct {
	Files    int
	Imported int
	Skipped  int
}

// Importer loads catalogue files concurrently and upserts every product.
type Importer struct {
	loader   Loader
	products Upserter
	cfg      ImporterConfig
	now      func() time.Time
	logger   zerolog.Logger
}

// NewImporter creates a new catalogue importer.
func NewImporter(cfg ImporterConfig, loader Loader, products Upserter, logger zerolog.Logger) *Importer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Importer{
		loader:   loader,
		products: products,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With().Str("component", "catalog-importer").Logger(),
	}
}

// Run imports every configured file. The first failure cancels the files
// still in flight; products already upserted stay in place.
func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	i.logger.Info().
		Int("file_count", len(i.cfg.FilePaths)).
		Int("concurrency", i.cfg.Concurrency).
		Msg("starting catalogue import")

	var (
		mu      sync.Mutex
		summary = &Summary{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Concurrency)

	for _, path := range i.cfg.FilePaths {
		g.Go(func() error {
			imported, skipped, err := i.importFile(gctx, path)
			if err != nil {
				return err
			}

			mu.Lock()
			summary.Files++
			summary.Imported += imported
			summary.Skipped += skipped
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		i.logger.Error().Err(err).Msg("catalogue import failed")
		return summary, err
	}

	i.logger.Info().
		Int("files", summary.Files).
		Int("imported", summary.Imported).
		Int("skipped", summary.Skipped).
		Msg("catalogue import completed")

	return summary, nil
}

func (i *Importer) importFile(ctx context.Context, path string) (int, int, error) {
	batch, err := i.loader.Load(ctx, path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load catalogue file %s: %w", path, err)
	}

	now := i.now()
	for _, rec := range batch.Records {
		product := rec.Product()
		product.CreatedAt, product.UpdatedAt = now, now

		if err := i.products.Upsert(ctx, product); err != nil {
			return 0, 0, fmt.Errorf("failed to import product %s from %s: %w", product.ID, path, err)
		}
	}

	i.logger.Info().
		Str("file", path).
		Int("imported", len(batch.Records)).
		Msg("catalogue file imported")

	return len(batch.Records), batch.Skipped, nil
}
