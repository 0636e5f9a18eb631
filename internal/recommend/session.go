// Package recommend owns the loaded catalog, one similarity engine per embedding
// variant and the title index, and answers interactive recommendation requests.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/similar/internal/catalog"
	"github.com/hyperjump/similar/internal/embedding"
	"github.com/hyperjump/similar/internal/keyword"
	"github.com/hyperjump/similar/internal/metrics"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/similarity"
	"github.com/hyperjump/similar/internal/vector"
)

// Options configures a Session.
type Options struct {
	// IndexType is passed to vector.NewIndex ("flat" or "faiss").
	IndexType string
	Exclusion similarity.ExclusionMode
	// Normalize L2-normalizes every matrix in place before indexing.
	Normalize bool
	MinK      int
	MaxK      int
	DefaultK  int
	// CacheSize bounds the recommendation cache; 0 disables it.
	CacheSize int
	Logger    *zap.Logger
}

// DefaultOptions matches the interactive slider: k in [5, 30], default 10.
func DefaultOptions() Options {
	return Options{
		IndexType: string(vector.IndexTypeFlat),
		Exclusion: similarity.ExcludePositional,
		MinK:      5,
		MaxK:      30,
		DefaultK:  10,
		CacheSize: 1024,
	}
}

// ErrSessionClosed is returned by queries that reach a session after Close.
var ErrSessionClosed = errors.New("session closed")

// Session is an immutable snapshot of loaded data. It is safe for concurrent use.
// Close waits for in-flight queries before releasing the indices.
type Session struct {
	mu     sync.RWMutex
	closed bool

	catalog  *catalog.Catalog
	engines  map[models.Variant]*similarity.Engine
	variants []models.Variant
	titles   *keyword.TitleIndex
	cache    *resultCache
	opts     Options
	logger   *zap.Logger
	loadedAt time.Time
}

// NewSession builds one index per matrix in parallel. Every matrix must have one
// row per catalog item. The session is returned only after all indices are built.
func NewSession(ctx context.Context, cat *catalog.Catalog, matrices []*embedding.Matrix, opts Options) (*Session, error) {
	if len(matrices) == 0 {
		return nil, fmt.Errorf("no embedding variants to load")
	}
	if opts.MinK <= 0 || opts.MaxK < opts.MinK || opts.DefaultK < opts.MinK || opts.DefaultK > opts.MaxK {
		return nil, fmt.Errorf("%w: k range [%d, %d] with default %d", models.ErrInvalidK, opts.MinK, opts.MaxK, opts.DefaultK)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	seen := make(map[models.Variant]bool, len(matrices))
	for _, m := range matrices {
		if seen[m.Variant] {
			return nil, fmt.Errorf("variant %s loaded twice", m.Variant)
		}
		seen[m.Variant] = true
	}

	engines := make([]*similarity.Engine, len(matrices))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, m := range matrices {
		i, m := i, m
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			engine, err := buildEngine(cat, m, opts, logger)
			if err != nil {
				return fmt.Errorf("build %s index: %w", m.Variant, err)
			}
			engines[i] = engine
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		closeEngines(engines)
		return nil, err
	}

	titles, err := keyword.NewTitleIndex(cat.Items())
	if err != nil {
		closeEngines(engines)
		return nil, fmt.Errorf("build title index: %w", err)
	}

	s := &Session{
		catalog:  cat,
		engines:  make(map[models.Variant]*similarity.Engine, len(engines)),
		titles:   titles,
		cache:    newResultCache(opts.CacheSize),
		opts:     opts,
		logger:   logger,
		loadedAt: time.Now(),
	}
	for _, e := range engines {
		s.engines[e.Variant()] = e
		metrics.IndexSize.WithLabelValues(string(e.Variant())).Set(float64(e.Index().Len()))
	}
	for _, v := range models.Variants {
		if _, ok := s.engines[v]; ok {
			s.variants = append(s.variants, v)
		}
	}
	for _, e := range engines {
		if !slices.Contains(s.variants, e.Variant()) {
			s.variants = append(s.variants, e.Variant())
		}
	}
	logger.Info("Session loaded",
		zap.Int("items", cat.Len()),
		zap.Int("variants", len(s.variants)),
		zap.String("index_type", opts.IndexType))
	return s, nil
}

func buildEngine(cat *catalog.Catalog, m *embedding.Matrix, opts Options, logger *zap.Logger) (*similarity.Engine, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if opts.Normalize {
		m.Normalize()
	}
	if err := catalog.Align(cat, m.Rows()); err != nil {
		return nil, err
	}
	idx, err := vector.NewIndex(opts.IndexType, m.Vectors)
	if err != nil {
		return nil, err
	}
	engine, err := similarity.New(idx, m, cat,
		similarity.WithExclusion(opts.Exclusion),
		similarity.WithLogger(logger.With(zap.String("variant", string(m.Variant)))))
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return engine, nil
}

func closeEngines(engines []*similarity.Engine) {
	for _, e := range engines {
		if e != nil {
			_ = e.Index().Close()
		}
	}
}

// Close releases every index held by the session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, v := range s.variants {
		_ = s.engines[v].Index().Close()
	}
	return s.titles.Close()
}

// acquire holds the session open for the duration of one query.
func (s *Session) acquire() (release func(), err error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrSessionClosed
	}
	return s.mu.RUnlock, nil
}

// Catalog returns the item catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Variants returns loaded variants in canonical order.
func (s *Session) Variants() []models.Variant {
	return append([]models.Variant(nil), s.variants...)
}

// Options returns the options the session was built with.
func (s *Session) Options() Options { return s.opts }

// Engine returns the engine for v. An empty variant selects the first loaded one.
func (s *Session) Engine(v models.Variant) (*similarity.Engine, error) {
	if v == "" {
		v = s.variants[0]
	}
	e, ok := s.engines[v]
	if !ok {
		return nil, fmt.Errorf("%w: %s not loaded", models.ErrUnknownVariant, v)
	}
	return e, nil
}

// TopSimilar runs the batch top-k query on one variant.
func (s *Session) TopSimilar(v models.Variant, ids []int64, k int) ([]models.SimilarityRow, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	start := time.Now()
	e, err := s.Engine(v)
	if err != nil {
		metrics.RecordSearch(v, "top_similar", time.Since(start), err)
		return nil, err
	}
	rows, err := e.TopSimilar(ids, k)
	metrics.RecordSearch(e.Variant(), "top_similar", time.Since(start), err)
	return rows, err
}

// CosineSimilarity runs the pairwise similarity query on one variant.
func (s *Session) CosineSimilarity(v models.Variant, left, right []int64) ([]models.SimilarityRow, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	start := time.Now()
	e, err := s.Engine(v)
	if err != nil {
		metrics.RecordSearch(v, "cosine", time.Since(start), err)
		return nil, err
	}
	rows, err := e.CosineSimilarity(left, right)
	metrics.RecordSearch(e.Variant(), "cosine", time.Since(start), err)
	return rows, err
}

// FindTitles resolves free text to catalog items by title.
func (s *Session) FindTitles(query string, limit int) ([]keyword.TitleHit, error) {
	release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return s.titles.Search(query, limit)
}

// Status describes what the session has loaded.
type Status struct {
	Items     int             `json:"items"`
	IndexType string          `json:"index_type"`
	Variants  []VariantStatus `json:"variants"`
	MinK      int             `json:"min_k"`
	MaxK      int             `json:"max_k"`
	DefaultK  int             `json:"default_k"`
	Cached    int             `json:"cached"`
	LoadedAt  time.Time       `json:"loaded_at"`
}

// VariantStatus describes one loaded variant.
type VariantStatus struct {
	Variant    models.Variant `json:"variant"`
	Label      string         `json:"label"`
	Dimensions int            `json:"dimensions"`
	IndexType  string         `json:"index_type"`
}

// Status reports catalog size, loaded variants and k bounds.
func (s *Session) Status() Status {
	st := Status{
		Items:     s.catalog.Len(),
		IndexType: s.opts.IndexType,
		MinK:      s.opts.MinK,
		MaxK:      s.opts.MaxK,
		DefaultK:  s.opts.DefaultK,
		Cached:    s.cache.len(),
		LoadedAt:  s.loadedAt,
	}
	for _, v := range s.variants {
		idx := s.engines[v].Index()
		st.Variants = append(st.Variants, VariantStatus{
			Variant:    v,
			Label:      v.Label(),
			Dimensions: idx.Dimensions(),
			IndexType:  idx.Type(),
		})
	}
	return st
}
