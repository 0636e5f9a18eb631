package recommend

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/similar/internal/metrics"
	"github.com/hyperjump/similar/internal/models"
)

// Request asks for the k items most similar to ItemID under Variant.
// K == 0 selects the session default.
type Request struct {
	ItemID  int64          `json:"item"`
	Variant models.Variant `json:"variant"`
	K       int            `json:"k"`
}

// Recommendation is one similar item.
type Recommendation struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	Similarity float32 `json:"similarity"`
}

// Response lists the k neighbours of the selected item, most similar first.
type Response struct {
	Item    models.Item      `json:"item"`
	Variant models.Variant   `json:"variant"`
	K       int              `json:"k"`
	Items   []Recommendation `json:"items"`
}

// Recommend answers one interactive request. Responses are cached per
// (variant, item, k); callers must not modify the returned value.
func (s *Session) Recommend(req Request) (*Response, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	start := time.Now()
	k := req.K
	if k == 0 {
		k = s.opts.DefaultK
	}
	if k < s.opts.MinK || k > s.opts.MaxK {
		err := fmt.Errorf("%w: k=%d outside [%d, %d]", models.ErrInvalidK, k, s.opts.MinK, s.opts.MaxK)
		metrics.RecordSearch(req.Variant, "recommend", time.Since(start), err)
		return nil, err
	}
	engine, err := s.Engine(req.Variant)
	if err != nil {
		metrics.RecordSearch(req.Variant, "recommend", time.Since(start), err)
		return nil, err
	}
	variant := engine.Variant()

	key := cacheKey{variant: variant, item: req.ItemID, k: k}
	if resp, ok := s.cache.get(key); ok {
		metrics.RecordCacheHit(variant)
		return resp, nil
	}
	metrics.RecordCacheMiss()

	item, err := s.catalog.Item(req.ItemID)
	if err != nil {
		metrics.RecordSearch(variant, "recommend", time.Since(start), err)
		return nil, err
	}
	rows, err := engine.TopSimilar([]int64{req.ItemID}, k)
	if err != nil {
		metrics.RecordSearch(variant, "recommend", time.Since(start), err)
		return nil, err
	}

	resp := &Response{Item: item, Variant: variant, K: k, Items: make([]Recommendation, 0, len(rows))}
	for _, r := range rows {
		cand, err := s.catalog.Item(r.CandidateID)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, Recommendation{ID: cand.ID, Title: cand.Title, Similarity: r.Similarity})
	}
	s.cache.set(key, resp)
	metrics.RecordSearch(variant, "recommend", time.Since(start), nil)
	s.logger.Debug("Recommendation served",
		zap.Int64("item", req.ItemID),
		zap.String("variant", string(variant)),
		zap.Int("k", k),
		zap.Duration("took", time.Since(start)))
	return resp, nil
}
