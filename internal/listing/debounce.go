package listing

import (
	"sync"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/clock"
)

// DefaultDebounce is the quiet period after a filter edit before the query
// is sent.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs only the last function triggered within a quiet period.
// It holds a single pending timer; every Trigger replaces it.
type Debouncer struct {
	clock clock.Clock
	delay time.Duration

	mu    sync.Mutex
	timer clock.Timer
	seq   uint64
}

// NewDebouncer creates a Debouncer. A nil clock uses the real one.
func NewDebouncer(delay time.Duration, clk clock.Clock) *Debouncer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Debouncer{clock: clk, delay: delay}
}

// Trigger schedules f after the quiet period, replacing any pending call.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if seq != d.seq {
			// Replaced after the timer had already fired.
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		f()
	})
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// QueryEditor collects filter edits and applies the query once edits settle.
// The query passed to apply is the one present when the timer fires.
type QueryEditor struct {
	debouncer *Debouncer
	apply     func(paperdash.ListQuery)

	mu    sync.Mutex
	query paperdash.ListQuery
}

// NewQueryEditor creates an editor starting from base.
func NewQueryEditor(base paperdash.ListQuery, d *Debouncer, apply func(paperdash.ListQuery)) *QueryEditor {
	return &QueryEditor{debouncer: d, apply: apply, query: base}
}

// Query returns the current (possibly not yet applied) query.
func (e *QueryEditor) Query() paperdash.ListQuery {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.query
}

// Searching reports whether an edit is waiting for the quiet period.
func (e *QueryEditor) Searching() bool {
	return e.debouncer.Pending()
}

// SetKeyword edits the free-text filter.
func (e *QueryEditor) SetKeyword(keyword string) {
	e.edit(func(q *paperdash.ListQuery) { q.Keyword = keyword })
}

// SetDateFrom edits the lower date bound; nil clears it.
func (e *QueryEditor) SetDateFrom(t *time.Time) {
	e.edit(func(q *paperdash.ListQuery) { q.DateFrom = t })
}

// SetDateTo edits the upper date bound; nil clears it.
func (e *QueryEditor) SetDateTo(t *time.Time) {
	e.edit(func(q *paperdash.ListQuery) { q.DateTo = t })
}

// SetStatus edits the status filter; empty clears it.
func (e *QueryEditor) SetStatus(s paperdash.Status) {
	e.edit(func(q *paperdash.ListQuery) { q.Status = s })
}

// Clear resets every filter, keeping the page size.
func (e *QueryEditor) Clear() {
	e.edit(func(q *paperdash.ListQuery) {
		*q = paperdash.ListQuery{Limit: q.Limit}
	})
}

func (e *QueryEditor) edit(change func(*paperdash.ListQuery)) {
	e.mu.Lock()
	change(&e.query)
	e.mu.Unlock()

	e.debouncer.Trigger(func() {
		e.apply(e.Query())
	})
}
