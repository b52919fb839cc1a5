package listing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/clock"
)

func TestDebouncer_LastCallWins(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	d := NewDebouncer(DefaultDebounce, clk)

	var got []int
	for i := 1; i <= 3; i++ {
		d.Trigger(func() { got = append(got, i) })
		clk.Advance(100 * time.Millisecond)
	}
	if len(got) != 0 {
		t.Fatalf("fired during typing: %v", got)
	}
	if !d.Pending() {
		t.Error("Pending() = false while waiting")
	}

	clk.Advance(400 * time.Millisecond)
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("calls = %v, want [3]", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	d := NewDebouncer(time.Second, clk)

	fired := false
	d.Trigger(func() { fired = true })
	d.Cancel()
	clk.Advance(2 * time.Second)
	if fired {
		t.Error("cancelled call fired")
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clk.Pending())
	}
}

func TestQueryEditor_SingleFetchAfterTyping(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var mu sync.Mutex
	var fetched []paperdash.ListQuery
	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]string, error) {
		mu.Lock()
		defer mu.Unlock()
		fetched = append(fetched, q)
		return []string{"result"}, nil
	}
	l := NewLoader(fetch)
	editor := NewQueryEditor(paperdash.ListQuery{Limit: 20}, NewDebouncer(DefaultDebounce, clk), func(q paperdash.ListQuery) {
		l.LoadInitial(context.Background(), q)
	})

	for _, kw := range []string{"t", "tr", "tra", "tran", "trans"} {
		editor.SetKeyword(kw)
		clk.Advance(120 * time.Millisecond)
	}
	if len(fetched) != 0 {
		t.Fatalf("fetched while typing: %d calls", len(fetched))
	}
	if !editor.Searching() {
		t.Error("Searching() = false during the quiet period")
	}

	clk.Advance(DefaultDebounce)
	if len(fetched) != 1 {
		t.Fatalf("fetch calls = %d, want 1", len(fetched))
	}
	if fetched[0].Keyword != "trans" || fetched[0].Limit != 20 || fetched[0].Offset != 0 {
		t.Errorf("query = %+v", fetched[0])
	}
	if editor.Searching() {
		t.Error("Searching() = true after the query was applied")
	}
}

func TestQueryEditor_CombinedEdits(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var applied []paperdash.ListQuery
	editor := NewQueryEditor(paperdash.ListQuery{Limit: 250}, NewDebouncer(DefaultDebounce, clk), func(q paperdash.ListQuery) {
		applied = append(applied, q)
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	editor.SetKeyword("go")
	editor.SetDateFrom(&from)
	editor.SetStatus(paperdash.StatusArchived)
	clk.Advance(DefaultDebounce)

	if len(applied) != 1 {
		t.Fatalf("apply calls = %d, want 1", len(applied))
	}
	q := applied[0]
	if q.Keyword != "go" || q.DateFrom == nil || !q.DateFrom.Equal(from) || q.Status != paperdash.StatusArchived {
		t.Errorf("query = %+v", q)
	}

	editor.Clear()
	clk.Advance(DefaultDebounce)
	if len(applied) != 2 {
		t.Fatalf("apply calls = %d, want 2", len(applied))
	}
	if applied[1].Filtered() || applied[1].Limit != 250 {
		t.Errorf("cleared query = %+v", applied[1])
	}
}
