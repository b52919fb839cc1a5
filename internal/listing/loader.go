// Package listing implements the incremental list loading that backs the
// paper and article tables: paged fetches with scroll-driven load-more,
// debounced query edits, and client-side sorting of what has been loaded.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/metrics"
)

// ScrollThreshold is how close to the bottom edge, in the viewport's units,
// a scroll position must be to trigger a load-more.
const ScrollThreshold = 100

// ErrSuperseded is returned by a fetch whose result was discarded because a
// newer LoadInitial started while it was in flight.
var ErrSuperseded = errors.New("listing: superseded by a newer query")

// Phase is the state of the initial load of a list.
type Phase int

const (
	PhaseIdle           Phase = iota // nothing requested yet
	PhaseLoadingInitial              // first page in flight
	PhaseReady                       // items loaded
	PhaseEmpty                       // the query matched nothing
	PhaseFailed                      // the first page failed; see Snapshot.Err
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingInitial:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseEmpty:
		return "empty"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// FetchFunc fetches one page of items for q.
type FetchFunc[T any] func(ctx context.Context, q paperdash.ListQuery) ([]T, error)

// Snapshot is an immutable copy of a Loader's state.
type Snapshot[T any] struct {
	Phase       Phase
	Items       []T
	Query       paperdash.ListQuery
	Offset      int // items fetched so far, the offset of the next page
	HasMore     bool
	LoadingMore bool
	Err         error // set in PhaseFailed
}

// NoResults reports the "nothing matched" condition, distinct from a
// failure.
func (s Snapshot[T]) NoResults() bool {
	return s.Phase == PhaseEmpty
}

// Loading reports whether any fetch is in flight.
func (s Snapshot[T]) Loading() bool {
	return s.Phase == PhaseLoadingInitial || s.LoadingMore
}

// Viewport describes the scroll position of a list container.
type Viewport struct {
	ScrollTop    int
	ClientHeight int
	ScrollHeight int
}

// NearBottom reports whether the visible region ends within threshold of
// the bottom edge.
func (v Viewport) NearBottom(threshold int) bool {
	return v.ScrollTop+v.ClientHeight >= v.ScrollHeight-threshold
}

// LoaderOption configures a Loader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	logger    *slog.Logger
	threshold int
}

// WithLogger sets the logger that records load-more failures.
func WithLogger(l *slog.Logger) LoaderOption {
	return func(o *loaderOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithScrollThreshold overrides ScrollThreshold for OnScroll.
func WithScrollThreshold(n int) LoaderOption {
	return func(o *loaderOptions) {
		o.threshold = n
	}
}

// Loader owns the items of one list view. All methods are safe for
// concurrent use; at most one load-more fetch is in flight at a time.
type Loader[T any] struct {
	fetch     FetchFunc[T]
	logger    *slog.Logger
	threshold int

	mu          sync.Mutex
	phase       Phase
	items       []T
	query       paperdash.ListQuery
	offset      int
	hasMore     bool
	loadingMore bool
	err         error
	generation  uint64
}

// NewLoader creates a Loader that pages through fetch.
func NewLoader[T any](fetch FetchFunc[T], opts ...LoaderOption) *Loader[T] {
	o := loaderOptions{
		logger:    slog.New(slog.DiscardHandler),
		threshold: ScrollThreshold,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Loader[T]{
		fetch:     fetch,
		logger:    o.logger,
		threshold: o.threshold,
	}
}

// Snapshot returns a copy of the current state.
func (l *Loader[T]) Snapshot() Snapshot[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot[T]{
		Phase:       l.phase,
		Items:       slices.Clone(l.items),
		Query:       l.query,
		Offset:      l.offset,
		HasMore:     l.hasMore,
		LoadingMore: l.loadingMore,
		Err:         l.err,
	}
}

// LoadInitial discards the current items and fetches the first page of q.
// An empty result moves the loader to PhaseEmpty; a failure to PhaseFailed.
// Responses to older requests that are still in flight are discarded.
func (l *Loader[T]) LoadInitial(ctx context.Context, q paperdash.ListQuery) error {
	q.Offset = 0

	l.mu.Lock()
	l.generation++
	gen := l.generation
	l.query = q
	l.items = nil
	l.offset = 0
	l.hasMore = true
	l.loadingMore = false
	l.err = nil
	l.phase = PhaseLoadingInitial
	l.mu.Unlock()

	var items []T
	err := q.Validate()
	if err == nil {
		items, err = l.fetch(ctx, q)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return ErrSuperseded
	}
	if err != nil {
		l.phase = PhaseFailed
		l.hasMore = false
		l.err = err
		return err
	}

	metrics.PagesLoaded.Add(1)
	l.items = slices.Clone(items)
	l.offset = len(items)
	l.hasMore = len(items) >= q.Limit
	if len(items) == 0 {
		l.phase = PhaseEmpty
	} else {
		l.phase = PhaseReady
	}
	return nil
}

// LoadMore fetches the page after the items loaded so far and appends it.
// It reports false without fetching when a load-more is already pending,
// when the last page was short, or when no items are loaded. A failed
// fetch is logged and leaves the loaded items untouched, so the call can
// simply be repeated.
func (l *Loader[T]) LoadMore(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.loadingMore || !l.hasMore || l.phase != PhaseReady {
		l.mu.Unlock()
		metrics.LoadMoreSkipped.Add(1)
		return false, nil
	}
	l.loadingMore = true
	gen := l.generation
	q := l.query.WithOffset(l.offset)
	l.mu.Unlock()

	items, err := l.fetch(ctx, q)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return true, ErrSuperseded
	}
	l.loadingMore = false
	if err != nil {
		metrics.LoadMoreFailed.Add(1)
		l.logger.WarnContext(ctx, "load more failed", "offset", q.Offset, "error", err)
		return true, err
	}

	metrics.PagesLoaded.Add(1)
	l.items = append(l.items, items...)
	l.offset += len(items)
	l.hasMore = len(items) >= q.Limit
	return true, nil
}

// OnScroll is the scroll notification hook. It may be called on every
// scroll event: it only loads when v is near the bottom, and LoadMore
// drops calls that overlap a pending fetch.
func (l *Loader[T]) OnScroll(ctx context.Context, v Viewport) (bool, error) {
	if !v.NearBottom(l.threshold) {
		return false, nil
	}
	return l.LoadMore(ctx)
}

// Update applies mutate to every loaded item for which match returns true
// and reports how many were changed. Offset and paging are not affected.
func (l *Loader[T]) Update(match func(T) bool, mutate func(*T)) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := range l.items {
		if match(l.items[i]) {
			mutate(&l.items[i])
			n++
		}
	}
	return n
}
