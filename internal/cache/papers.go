package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/metrics"
)

const paperKind = "paper"

// PaperSource fetches a paper from the server.
type PaperSource interface {
	GetPaper(ctx context.Context, id string) (*paperdash.Paper, error)
}

// Papers serves GetPaper from the store while entries are fresh and falls
// back to the source otherwise. Cache failures are logged and never fail a
// lookup.
type Papers struct {
	source PaperSource
	store  *Store
	ttl    time.Duration
	logger *slog.Logger

	forceRefresh bool
}

// PapersOption configures Papers.
type PapersOption func(*Papers)

// WithTTL sets how long entries stay fresh.
func WithTTL(ttl time.Duration) PapersOption {
	return func(p *Papers) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithLogger sets the logger for cache warnings.
func WithLogger(l *slog.Logger) PapersOption {
	return func(p *Papers) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithForceRefresh skips cache reads; results are still written back.
func WithForceRefresh(force bool) PapersOption {
	return func(p *Papers) {
		p.forceRefresh = force
	}
}

// NewPapers wraps source with store.
func NewPapers(source PaperSource, store *Store, opts ...PapersOption) *Papers {
	p := &Papers{
		source: source,
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetPaper returns the paper with id.
func (p *Papers) GetPaper(ctx context.Context, id string) (*paperdash.Paper, error) {
	if !p.forceRefresh && id != "" {
		if paper, ok := p.cached(ctx, id); ok {
			metrics.CacheHits.Add(1)
			return paper, nil
		}
	}

	metrics.CacheMisses.Add(1)
	paper, err := p.source.GetPaper(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(paper)
	if err != nil {
		p.logger.WarnContext(ctx, "could not encode paper for cache", "paper_id", id, "error", err)
		return paper, nil
	}
	if err := p.store.Put(ctx, paperKind, id, data); err != nil {
		p.logger.WarnContext(ctx, "could not write paper cache", "paper_id", id, "error", err)
	}
	return paper, nil
}

// Invalidate drops the cached copy of id.
func (p *Papers) Invalidate(ctx context.Context, id string) error {
	return p.store.Delete(ctx, paperKind, id)
}

func (p *Papers) cached(ctx context.Context, id string) (*paperdash.Paper, bool) {
	entry, ok, err := p.store.Get(ctx, paperKind, id)
	if err != nil {
		p.logger.WarnContext(ctx, "could not read paper cache", "paper_id", id, "error", err)
		return nil, false
	}
	if !ok || entry.Stale(p.store.clock.Now(), p.ttl) {
		return nil, false
	}

	var paper paperdash.Paper
	if err := json.Unmarshal(entry.Data, &paper); err != nil {
		// Treat an unreadable entry as missing.
		p.logger.DebugContext(ctx, "discarding invalid cache entry", "paper_id", id, "error", err)
		return nil, false
	}
	return &paper, true
}
