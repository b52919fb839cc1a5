// Package dashboard assembles the list, detail and add-paper views of the
// dashboard from the client and the listing state machines. Views hold
// state only; rendering is left to the caller.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/clock"
	"github.com/jason-riddle/paperdash/internal/listing"
)

// ViewConfig describes one list view.
type ViewConfig struct {
	Name         string
	Limit        int           // page size
	StatusFilter bool          // whether the view filters by status
	Debounce     time.Duration // quiet period for filter edits
}

// Canonical views.
var (
	PaperView   = ViewConfig{Name: "papers", Limit: 20, Debounce: listing.DefaultDebounce}
	ArticleView = ViewConfig{Name: "articles", Limit: 250, StatusFilter: true, Debounce: listing.DefaultDebounce}
)

// Option configures a view.
type Option func(*options)

type options struct {
	clock  clock.Clock
	logger *slog.Logger
}

// WithClock sets the clock that drives filter debouncing.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger for background loads.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: clock.Real(), logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Table is a filterable, sortable, incrementally loaded list of T.
//
// Filter edits are debounced and then reload the first page using the
// context given to NewTable; sorting only reorders what is loaded.
type Table[T any] struct {
	config ViewConfig
	fields []listing.Field[T]
	loader *listing.Loader[T]
	editor *listing.QueryEditor
	logger *slog.Logger
	ctx    context.Context

	mu   sync.Mutex
	sort listing.SortState
}

// NewTable creates a table over fetch. ctx bounds the loads started by
// debounced filter edits.
func NewTable[T any](ctx context.Context, cfg ViewConfig, fetch listing.FetchFunc[T], fields []listing.Field[T], opts ...Option) *Table[T] {
	o := buildOptions(opts)
	if cfg.Debounce <= 0 {
		cfg.Debounce = listing.DefaultDebounce
	}
	t := &Table[T]{
		config: cfg,
		fields: fields,
		loader: listing.NewLoader(fetch, listing.WithLogger(o.logger)),
		logger: o.logger,
		ctx:    ctx,
	}
	debouncer := listing.NewDebouncer(cfg.Debounce, o.clock)
	t.editor = listing.NewQueryEditor(paperdash.ListQuery{Limit: cfg.Limit}, debouncer, t.apply)
	return t
}

func (t *Table[T]) apply(q paperdash.ListQuery) {
	if err := t.loader.LoadInitial(t.ctx, q); err != nil && !errors.Is(err, listing.ErrSuperseded) {
		t.logger.Warn("load failed", "view", t.config.Name, "error", err)
	}
}

// Config returns the view configuration.
func (t *Table[T]) Config() ViewConfig { return t.config }

// Load fetches the first page for the current filters immediately.
func (t *Table[T]) Load(ctx context.Context) error {
	return t.loader.LoadInitial(ctx, t.editor.Query())
}

// LoadMore fetches the next page if one is expected.
func (t *Table[T]) LoadMore(ctx context.Context) (bool, error) {
	return t.loader.LoadMore(ctx)
}

// OnScroll forwards a scroll position to the loader.
func (t *Table[T]) OnScroll(ctx context.Context, v listing.Viewport) (bool, error) {
	return t.loader.OnScroll(ctx, v)
}

// Snapshot returns the loader state with items in fetch order.
func (t *Table[T]) Snapshot() listing.Snapshot[T] {
	return t.loader.Snapshot()
}

// Rows returns the loaded items in display order.
func (t *Table[T]) Rows() []T {
	return listing.Sort(t.loader.Snapshot().Items, t.fields, t.SortState())
}

// Searching reports whether a filter edit is waiting to be applied.
func (t *Table[T]) Searching() bool { return t.editor.Searching() }

// Query returns the filters as edited so far.
func (t *Table[T]) Query() paperdash.ListQuery { return t.editor.Query() }

// SetKeyword edits the keyword filter.
func (t *Table[T]) SetKeyword(s string) { t.editor.SetKeyword(s) }

// SetDateFrom edits the lower date bound.
func (t *Table[T]) SetDateFrom(d *time.Time) { t.editor.SetDateFrom(d) }

// SetDateTo edits the upper date bound.
func (t *Table[T]) SetDateTo(d *time.Time) { t.editor.SetDateTo(d) }

// SetStatusFilter edits the status filter of views that have one.
func (t *Table[T]) SetStatusFilter(s paperdash.Status) error {
	if !t.config.StatusFilter {
		return &paperdash.ValidationError{Field: "status", Message: "view " + t.config.Name + " has no status filter"}
	}
	if s != "" && !s.Valid() {
		return &paperdash.ValidationError{Field: "status", Message: "unknown status " + string(s)}
	}
	t.editor.SetStatus(s)
	return nil
}

// ClearFilters resets every filter.
func (t *Table[T]) ClearFilters() { t.editor.Clear() }

// SortState returns the active sort.
func (t *Table[T]) SortState() listing.SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sort
}

// ToggleSort selects key as the sort column.
func (t *Table[T]) ToggleSort(key string) listing.SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = t.sort.Toggle(key)
	return t.sort
}

// SortKeys lists the sortable columns.
func (t *Table[T]) SortKeys() []string {
	return listing.FieldNames(t.fields)
}

// update patches loaded items; see listing.Loader.Update.
func (t *Table[T]) update(match func(T) bool, mutate func(*T)) int {
	return t.loader.Update(match, mutate)
}
