// Package catalog imports products from gzipped JSON-lines files.
package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"storefront/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Record is one line of a catalogue file.
type Record struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CategoryID  *int64          `json:"categoryId"`
	Images      []string        `json:"images"`
	Featured    bool            `json:"featured"`
	Active      *bool           `json:"active"`
}

// Validate checks the fields a product row cannot do without.
func (r *Record) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return fmt.Errorf("id is required")
	case strings.TrimSpace(r.Name) == "":
		return fmt.Errorf("name is required")
	case !r.Price.IsPositive():
		return fmt.Errorf("price must be greater than 0")
	case r.Stock < 0:
		return fmt.Errorf("stock cannot be negative")
	}
	return nil
}

// Product converts the record to a catalogue product. Records are active
// unless they say otherwise.
func (r *Record) Product() *model.Product {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &model.Product{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		Price:       r.Price.Round(2),
		Stock:       r.Stock,
		CategoryID:  r.CategoryID,
		Images:      r.Images,
		Featured:    r.Featured,
		Active:      active,
	}
}

// Batch is the decoded content of one catalogue file.
type Batch struct {
	Source  string
	Records []Record
	// Skipped counts lines that decoded but failed validation.
	Skipped int
}

// Loader reads one catalogue file.
type Loader interface {
	// Load reads a gzipped JSON-lines file and returns its valid records.
	Load(ctx context.Context, path string) (*Batch, error)
}

// decode reads gzipped JSON lines from r. A line that is not valid JSON
// fails the whole file; a line that fails validation is skipped.
func decode(ctx context.Context, r io.Reader, source string, logger zerolog.Logger) (*Batch, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for %s: %w", source, err)
	}
	defer gzipReader.Close()

	batch := &Batch{Source: source}

	scanner := bufio.NewScanner(gzipReader)
	// Product lines with long descriptions exceed the default token size
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%10_000 == 0 {
			if err := ctx.Err(); err != nil {
				logger.Warn().Str("source", source).Msg("catalogue loading cancelled")
				return nil, err
			}
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s line %d: %w", source, lineNo, err)
		}
		if err := rec.Validate(); err != nil {
			logger.Warn().Err(err).Str("source", source).Int("line", lineNo).Msg("skipping catalogue record")
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading catalogue file %s: %w", source, err)
	}

	return batch, nil
}
