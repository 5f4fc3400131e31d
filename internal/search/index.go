// Package search keeps an in-memory full-text index over the catalog.
package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/biblionet/biblionet-backend/pkg/textnorm"
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const batchSize = 500

// Index wraps a memory-only bleve index. All methods are safe for
// concurrent use.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
}

// Result is one page of matching book IDs in relevance order.
type Result struct {
	Total uint64
	IDs   []uint
}

// NewIndex creates an empty index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Upsert indexes or replaces one book.
func (i *Index) Upsert(doc Document) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Index(doc.key(), doc.toMap())
}

// Delete removes one book.
func (i *Index) Delete(id uint) error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.Delete(strconv.FormatUint(uint64(id), 10))
}

// Rebuild swaps in a fresh index holding exactly docs.
func (i *Index) Rebuild(docs []Document) error {
	fresh, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create search index: %w", err)
	}
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batch := fresh.NewBatch()
		for _, doc := range docs[start:end] {
			if err := batch.Index(doc.key(), doc.toMap()); err != nil {
				return fmt.Errorf("batch index %d: %w", doc.ID, err)
			}
		}
		if err := fresh.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
	}

	i.mu.Lock()
	old := i.index
	i.index = fresh
	i.mu.Unlock()
	return old.Close()
}

// Count returns the number of indexed books.
func (i *Index) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.index.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.index.Close()
}

// Search runs a relevance query over title, author and publisher with typo
// tolerance and prefix matching on the last word.
func (i *Index) Search(ctx context.Context, text string, limit, offset int) (*Result, error) {
	folded := textnorm.Fold(text)
	if folded == "" {
		return &Result{}, nil
	}

	req := bleve.NewSearchRequestOptions(buildQuery(folded, strings.TrimSpace(text)), limit, offset, false)
	req.SortBy([]string{"-_score", "_id"})

	i.mu.RLock()
	res, err := i.index.SearchInContext(ctx, req)
	i.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{Total: res.Total, IDs: make([]uint, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out.IDs = append(out.IDs, uint(id))
	}
	return out, nil
}

func buildQuery(folded, raw string) query.Query {
	var parts []query.Query

	for field, boost := range map[string]float64{"title": 3, "author": 2, "publisher": 1} {
		m := bleve.NewMatchQuery(folded)
		m.SetField(field)
		m.SetBoost(boost)
		parts = append(parts, m)
	}

	words := strings.Fields(folded)
	for _, w := range words {
		if len([]rune(w)) < 4 {
			continue
		}
		for _, field := range []string{"title", "author"} {
			fq := bleve.NewFuzzyQuery(w)
			fq.SetFuzziness(1)
			fq.SetField(field)
			fq.SetBoost(0.8)
			parts = append(parts, fq)
		}
	}

	if last := words[len(words)-1]; len(last) >= 2 {
		for _, field := range []string{"title", "author"} {
			pq := bleve.NewPrefixQuery(last)
			pq.SetField(field)
			pq.SetBoost(0.5)
			parts = append(parts, pq)
		}
	}

	isbn := bleve.NewTermQuery(raw)
	isbn.SetField("isbn")
	isbn.SetBoost(5)
	parts = append(parts, isbn)

	return bleve.NewDisjunctionQuery(parts...)
}
