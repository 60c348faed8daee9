// Package listing reads vehicle listings from the FT vector index.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PonchoGAD/auto-search-mvp/internal/db"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/listing"
	"github.com/PonchoGAD/auto-search-mvp/internal/domain/search/filter"
)

// Hash field names written by ingestion and read back by retrieval.
const (
	FieldBrand          = "brand"
	FieldModel          = "model"
	FieldYear           = "year"
	FieldMileage        = "mileage"
	FieldPrice          = "price"
	FieldCurrency       = "currency"
	FieldFuel           = "fuel"
	FieldColor          = "color"
	FieldRegion         = "region"
	FieldCondition      = "condition"
	FieldPaintCondition = "paint_condition"
	FieldSourceName     = "source_name"
	FieldSourceURL      = "source_url"
	FieldRawText        = "raw_text"
	FieldVector         = "vector"
)

var returnFields = []string{
	FieldBrand, FieldModel, FieldYear, FieldMileage, FieldPrice, FieldCurrency,
	FieldFuel, FieldColor, FieldRegion, FieldCondition, FieldPaintCondition,
	FieldSourceName, FieldSourceURL, FieldRawText,
}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo implements usecase/retrieve.Index.
type Repo struct {
	store store
	index string
}

// New creates a listing repository over the named FT index.
func New(s store, index string) *Repo {
	return &Repo{store: s, index: index}
}

// Nearest returns up to k listings closest to vector that satisfy filters.
func (r *Repo) Nearest(
	ctx context.Context, vector []float32, filters filter.Expression, k int,
) ([]listing.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.index,
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.index, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]listing.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, listing.Candidate{
			Document:   parseDocument(e.Fields),
			Similarity: e.Score,
		})
	}
	return out, nil
}

// parseDocument maps flat hash fields onto a Document. Unparsable numbers are treated as absent.
func parseDocument(f map[string]string) listing.Document {
	return listing.Document{
		Brand:          f[FieldBrand],
		Model:          f[FieldModel],
		Year:           parseInt(f[FieldYear]),
		Mileage:        parseInt(f[FieldMileage]),
		Price:          parseInt(f[FieldPrice]),
		Currency:       f[FieldCurrency],
		Fuel:           f[FieldFuel],
		Color:          f[FieldColor],
		Region:         f[FieldRegion],
		Condition:      f[FieldCondition],
		PaintCondition: f[FieldPaintCondition],
		SourceName:     f[FieldSourceName],
		SourceURL:      f[FieldSourceURL],
		RawText:        f[FieldRawText],
	}
}

func parseInt(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	// numeric hash fields may come back as "1500000.0"
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil
	}
	n := int64(f)
	return &n
}

// IndexConfig describes the listing FT index.
type IndexConfig struct {
	Name           string
	Prefix         string
	Dimensions     int
	Algorithm      db.VectorAlgorithm
	M              int
	EFConstruction int
}

// IndexDefinition builds the FT schema for listings.
func IndexDefinition(cfg IndexConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(cfg.Name).
		Prefix(cfg.Prefix).
		Tag(FieldBrand, FieldModel, FieldCurrency, FieldFuel, FieldColor, FieldRegion,
			FieldCondition, FieldPaintCondition, FieldSourceName, FieldSourceURL).
		Numeric(FieldYear, FieldMileage, FieldPrice).
		Text(FieldRawText).
		Vector(FieldVector, cfg.Dimensions, cfg.Algorithm, cfg.M, cfg.EFConstruction).
		Build()
}

type indexManager interface {
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// EnsureIndex creates the listing index unless it already exists. Reports whether it was created.
func EnsureIndex(ctx context.Context, m indexManager, def *db.IndexDefinition) (bool, error) {
	exists, err := m.IndexExists(ctx, def.Name)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return false, nil
	}
	if err := m.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}
