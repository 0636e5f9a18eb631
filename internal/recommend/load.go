package recommend

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/similar/internal/catalog"
	"github.com/hyperjump/similar/internal/embedding"
	"github.com/hyperjump/similar/internal/models"
)

// Source names the files a session is built from.
type Source struct {
	// MetadataPath is the item metadata TSV. Ignored when Items is set.
	MetadataPath string
	// Items, when non-nil, is used instead of reading MetadataPath.
	Items []models.Item
	// Vectors maps each variant to its embedding TSV. Empty paths are skipped.
	Vectors map[models.Variant]string
}

// Paths returns every file the source reads, for the watcher.
func (src Source) Paths() []string {
	var paths []string
	if src.Items == nil && src.MetadataPath != "" {
		paths = append(paths, src.MetadataPath)
	}
	for _, v := range models.Variants {
		if p := src.Vectors[v]; p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Load reads the catalog and every variant's matrix, then builds a session.
func Load(ctx context.Context, src Source, opts Options) (*Session, error) {
	items := src.Items
	if items == nil {
		var err error
		items, err = embedding.LoadMetadataTSV(src.MetadataPath)
		if err != nil {
			return nil, err
		}
	}
	cat, err := catalog.New(items)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	var variants []models.Variant
	for _, v := range models.Variants {
		if src.Vectors[v] != "" {
			variants = append(variants, v)
		}
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("no embedding files configured")
	}

	matrices := make([]*embedding.Matrix, len(variants))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, v := range variants {
		i, v := i, v
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			m, err := embedding.LoadVectorsTSV(src.Vectors[v], v)
			if err != nil {
				return err
			}
			matrices[i] = m
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return NewSession(ctx, cat, matrices, opts)
}
