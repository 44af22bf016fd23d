// Package index keeps a full-text index over the products seen in past
// search results, so earlier matches can be found again by name.
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/pders01/vsearch/internal/api"
	"github.com/pders01/vsearch/internal/debuglog"
	"github.com/pders01/vsearch/internal/storage"
)

// Result is one product matched by a text query.
type Result struct {
	Product        api.Product
	BestSimilarity float64
	SeenCount      int
	Score          float64
}

type Index struct {
	store *storage.Store
	idx   bleve.Index
}

// Open opens or creates the index at path and indexes everything already
// in the store. An empty path keeps the index in memory.
func Open(store *storage.Store, path string) (*Index, error) {
	var (
		idx bleve.Index
		err error
	)

	if path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("creating index directory: %w", mkErr)
		}
		idx, err = bleve.Open(path)
		if err != nil {
			idx, err = bleve.New(path, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("opening product index: %w", err)
	}

	ix := &Index{store: store, idx: idx}
	if err := ix.Reindex(); err != nil {
		idx.Close()
		return nil, err
	}
	return ix, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	name := bleve.NewTextFieldMapping()
	name.Analyzer = standard.Name
	name.Store = true
	name.IncludeTermVectors = true

	category := bleve.NewTextFieldMapping()
	category.Analyzer = standard.Name
	category.Store = true

	imagePath := bleve.NewTextFieldMapping()
	imagePath.Analyzer = standard.Name
	imagePath.Store = true

	best := bleve.NewNumericFieldMapping()
	best.Store = true

	seen := bleve.NewNumericFieldMapping()
	seen.Store = true

	dm.AddFieldMappingsAt("name", name)
	dm.AddFieldMappingsAt("category", category)
	dm.AddFieldMappingsAt("image_path", imagePath)
	dm.AddFieldMappingsAt("best_similarity", best)
	dm.AddFieldMappingsAt("seen_count", seen)

	im.DefaultMapping = dm
	return im
}

func document(p *storage.SeenProduct) map[string]any {
	return map[string]any{
		"name":            p.Name,
		"category":        p.Category,
		"image_path":      p.ImagePath,
		"best_similarity": p.BestSimilarity,
		"seen_count":      float64(p.SeenCount),
	}
}

// Reindex rebuilds the index from the store's seen products.
func (ix *Index) Reindex() error {
	products, err := ix.store.AllProducts()
	if err != nil {
		return fmt.Errorf("loading products: %w", err)
	}
	batch := ix.idx.NewBatch()
	for _, p := range products {
		if err := batch.Index(string(p.ID), document(p)); err != nil {
			return err
		}
	}
	return ix.idx.Batch(batch)
}

// OnSearchSaved indexes the products of a freshly stored search. Counts
// come from the store so repeated sightings accumulate.
func (ix *Index) OnSearchSaved(rec *storage.SearchRecord) {
	if rec == nil || len(rec.Products) == 0 {
		return
	}
	batch := ix.idx.NewBatch()
	for _, p := range rec.Products {
		seen, err := ix.store.GetProduct(p.ID)
		if err != nil {
			seen = &storage.SeenProduct{Product: p, SeenCount: 1, BestSimilarity: p.Similarity}
		}
		_ = batch.Index(string(p.ID), document(seen))
	}
	if err := ix.idx.Batch(batch); err != nil {
		debuglog.Warnf("indexing %d products failed: %v", len(rec.Products), err)
	}
}

// OnHistoryCleared empties the index.
func (ix *Index) OnHistoryCleared() error {
	for {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 1000, 0, false)
		res, err := ix.idx.Search(req)
		if err != nil {
			return err
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := ix.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := ix.idx.Batch(batch); err != nil {
			return err
		}
	}
}

// Search matches query against product names, categories and image paths.
// Queries shorter than two characters return nothing.
func (ix *Index) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		qs = append(qs, fieldQueries(tok, "name", 4.0)...)
		qs = append(qs, fieldQueries(tok, "category", 2.0)...)
		qs = append(qs, fieldQueries(tok, "image_path", 0.5)...)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"name", "category", "image_path", "best_similarity", "seen_count"}
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{Product: api.Product{ID: api.ProductID(h.ID)}, Score: h.Score}
		if v, ok := h.Fields["name"].(string); ok {
			r.Product.Name = v
		}
		if v, ok := h.Fields["category"].(string); ok {
			r.Product.Category = v
		}
		if v, ok := h.Fields["image_path"].(string); ok {
			r.Product.ImagePath = v
		}
		if v, ok := h.Fields["best_similarity"].(float64); ok {
			r.BestSimilarity = v
			r.Product.Similarity = v
		}
		if v, ok := h.Fields["seen_count"].(float64); ok {
			r.SeenCount = int(v)
		}
		out = append(out, r)
	}
	return out, nil
}

// fieldQueries returns a match and a slightly weaker prefix query for tok.
func fieldQueries(tok, field string, boost float64) []bleveQuery.Query {
	m := bleve.NewMatchQuery(tok)
	m.SetField(field)
	m.SetBoost(boost)

	p := bleve.NewPrefixQuery(strings.ToLower(tok))
	p.SetField(field)
	p.SetBoost(boost * 0.85)

	return []bleveQuery.Query{m, p}
}

// DocCount reports total documents in the index.
func (ix *Index) DocCount() (int, error) {
	n, err := ix.idx.DocCount()
	return int(n), err
}

func (ix *Index) Close() error {
	return ix.idx.Close()
}

// tokenize splits text into lower-case terms of two or more characters.
func tokenize(text string) []string {
	var terms []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 1 {
			terms = append(terms, current.String())
		}
		current.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return terms
}
