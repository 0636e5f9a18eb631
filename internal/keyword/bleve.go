// Package keyword resolves free-text movie titles to catalog items with Bleve.
package keyword

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/similar/internal/models"
)

// TitleHit is one title search result.
type TitleHit struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

type titleDoc struct {
	Title string `json:"title"`
}

// TitleIndex is an in-memory Bleve index over item titles.
type TitleIndex struct {
	index  bleve.Index
	titles map[int64]string
	// fuzziness is the edit distance allowed per term by the fuzzy clause.
	fuzziness int
}

// NewTitleIndex indexes every item's title. The index lives in memory and is
// rebuilt with the session.
func NewTitleIndex(items []models.Item) (*TitleIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so "heat" matches "Heat (1995)".
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	t := &TitleIndex{index: index, titles: make(map[int64]string, len(items)), fuzziness: 1}

	batch := index.NewBatch()
	for _, it := range items {
		t.titles[it.ID] = it.Title
		if err := batch.Index(strconv.FormatInt(it.ID, 10), titleDoc{Title: it.Title}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("index title %d: %w", it.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to index titles: %w", err)
	}
	return t, nil
}

// Search returns up to limit items whose titles match query. Exact term matches
// outrank prefix matches on the last term, which outrank fuzzy matches.
// Equal scores are ordered by ascending id.
func (t *TitleIndex) Search(query string, limit int) ([]TitleHit, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(t.buildQuery(query, terms))
	req.Size = limit
	results, err := t.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}

	out := make([]TitleHit, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, TitleHit{ID: id, Title: t.titles[id], Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Len returns the number of indexed titles.
func (t *TitleIndex) Len() (uint64, error) {
	return t.index.DocCount()
}

// Close releases the index.
func (t *TitleIndex) Close() error {
	return t.index.Close()
}

// buildQuery ORs a boosted match query, a prefix query on the last term (for
// partially typed titles) and per-term fuzzy queries (for typos).
func (t *TitleIndex) buildQuery(query string, terms []string) blevequery.Query {
	match := bleve.NewMatchQuery(query)
	match.SetField("title")
	match.SetBoost(4)

	prefix := bleve.NewPrefixQuery(terms[len(terms)-1])
	prefix.SetField("title")
	prefix.SetBoost(2)

	clauses := []blevequery.Query{match, prefix}
	for _, term := range terms {
		// fuzzy matching on very short terms matches almost everything
		if len([]rune(term)) < 4 {
			continue
		}
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(t.fuzziness)
		fq.SetField("title")
		clauses = append(clauses, fq)
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

// tokenizeQuery splits query into lowercase terms, filtering out empty strings.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "()[]{}.,:;!?\"'")
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}
