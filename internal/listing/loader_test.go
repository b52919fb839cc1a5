package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jason-riddle/paperdash"
)

// pagedSource serves pages of ints and records every query it sees.
type pagedSource struct {
	mu      sync.Mutex
	sizes   []int // page sizes to return, in call order
	queries []paperdash.ListQuery
	err     error
}

func (s *pagedSource) fetch(ctx context.Context, q paperdash.ListQuery) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.sizes) == 0 {
		return nil, nil
	}
	n := s.sizes[0]
	s.sizes = s.sizes[1:]
	items := make([]int, n)
	for i := range items {
		items[i] = q.Offset + i
	}
	return items, nil
}

func (s *pagedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func TestLoader_PagingScenario(t *testing.T) {
	src := &pagedSource{sizes: []int{20, 5}}
	l := NewLoader(src.fetch)
	ctx := context.Background()

	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 20}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	snap := l.Snapshot()
	if snap.Phase != PhaseReady {
		t.Errorf("phase = %v, want ready", snap.Phase)
	}
	if !snap.HasMore {
		t.Error("hasMore = false after full page")
	}
	if snap.Offset != 20 {
		t.Errorf("offset = %d, want 20", snap.Offset)
	}

	issued, err := l.LoadMore(ctx)
	if err != nil || !issued {
		t.Fatalf("LoadMore = %v, %v", issued, err)
	}
	snap = l.Snapshot()
	if len(snap.Items) != 25 {
		t.Errorf("len(items) = %d, want 25", len(snap.Items))
	}
	if snap.HasMore {
		t.Error("hasMore = true after short page")
	}
	if snap.Offset != 25 {
		t.Errorf("offset = %d, want 25", snap.Offset)
	}
	if got := src.queries[1].Offset; got != 20 {
		t.Errorf("second fetch offset = %d, want 20", got)
	}

	issued, err = l.LoadMore(ctx)
	if issued || err != nil {
		t.Errorf("third LoadMore = %v, %v; want no-op", issued, err)
	}
	if src.calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", src.calls())
	}
}

func TestLoader_HasMore(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int
		limit   int
		hasMore bool
		phase   Phase
	}{
		{name: "full page", sizes: []int{10}, limit: 10, hasMore: true, phase: PhaseReady},
		{name: "short page", sizes: []int{9}, limit: 10, hasMore: false, phase: PhaseReady},
		{name: "empty", sizes: []int{0}, limit: 10, hasMore: false, phase: PhaseEmpty},
		{name: "full then empty", sizes: []int{10, 0}, limit: 10, hasMore: false, phase: PhaseReady},
		{name: "full then full", sizes: []int{10, 10}, limit: 10, hasMore: true, phase: PhaseReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &pagedSource{sizes: tt.sizes}
			l := NewLoader(src.fetch)
			ctx := context.Background()
			if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: tt.limit}); err != nil {
				t.Fatalf("LoadInitial failed: %v", err)
			}
			for i := 1; i < len(tt.sizes); i++ {
				if _, err := l.LoadMore(ctx); err != nil {
					t.Fatalf("LoadMore failed: %v", err)
				}
			}
			snap := l.Snapshot()
			if snap.HasMore != tt.hasMore {
				t.Errorf("hasMore = %v, want %v", snap.HasMore, tt.hasMore)
			}
			if snap.Phase != tt.phase {
				t.Errorf("phase = %v, want %v", snap.Phase, tt.phase)
			}
		})
	}
}

func TestLoader_EmptyIsNotAnError(t *testing.T) {
	src := &pagedSource{sizes: []int{0}}
	l := NewLoader(src.fetch)

	if err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 20, Keyword: "nothing"}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	snap := l.Snapshot()
	if !snap.NoResults() {
		t.Error("NoResults() = false")
	}
	if snap.Err != nil {
		t.Errorf("err = %v, want nil", snap.Err)
	}
}

func TestLoader_InitialFailure(t *testing.T) {
	src := &pagedSource{err: errors.New("connection refused")}
	l := NewLoader(src.fetch)

	err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 20})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	snap := l.Snapshot()
	if snap.Phase != PhaseFailed {
		t.Errorf("phase = %v, want failed", snap.Phase)
	}
	if snap.Loading() {
		t.Error("loading flags left set after failure")
	}
	if snap.Err == nil {
		t.Error("snapshot error not set")
	}

	// Retry clears the error.
	src.err = nil
	src.sizes = []int{3}
	if err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 20}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if snap := l.Snapshot(); snap.Err != nil || snap.Phase != PhaseReady {
		t.Errorf("after retry: phase = %v, err = %v", snap.Phase, snap.Err)
	}
}

func TestLoader_InvalidQueryNeverFetches(t *testing.T) {
	src := &pagedSource{sizes: []int{5}}
	l := NewLoader(src.fetch)

	err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 0})
	if !paperdash.IsValidation(err) {
		t.Fatalf("err = %v, want validation error", err)
	}
	if src.calls() != 0 {
		t.Errorf("fetch calls = %d, want 0", src.calls())
	}
}

func TestLoader_LoadMoreFailureKeepsState(t *testing.T) {
	src := &pagedSource{sizes: []int{10}}
	l := NewLoader(src.fetch)
	ctx := context.Background()
	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 10}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}

	src.err = errors.New("timeout")
	issued, err := l.LoadMore(ctx)
	if !issued || err == nil {
		t.Fatalf("LoadMore = %v, %v; want issued with error", issued, err)
	}
	snap := l.Snapshot()
	if len(snap.Items) != 10 || snap.Offset != 10 || !snap.HasMore || snap.LoadingMore {
		t.Errorf("state changed by failed load-more: items=%d offset=%d hasMore=%v loadingMore=%v",
			len(snap.Items), snap.Offset, snap.HasMore, snap.LoadingMore)
	}
	if snap.Phase != PhaseReady || snap.Err != nil {
		t.Errorf("phase = %v, err = %v", snap.Phase, snap.Err)
	}

	// Scrolling again retries the same page.
	src.err = nil
	src.sizes = []int{4}
	if _, err := l.LoadMore(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if got := src.queries[len(src.queries)-1].Offset; got != 10 {
		t.Errorf("retry offset = %d, want 10", got)
	}
}

func TestLoader_SingleLoadMoreInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var inFlight, maxInFlight, calls atomic.Int32

	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]int, error) {
		calls.Add(1)
		if q.Offset == 0 {
			return make([]int, q.Limit), nil
		}
		n := inFlight.Add(1)
		if n > maxInFlight.Load() {
			maxInFlight.Store(n)
		}
		entered <- struct{}{}
		<-release
		inFlight.Add(-1)
		return make([]int, q.Limit), nil
	}

	l := NewLoader(fetch)
	ctx := context.Background()
	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 5}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}

	first := make(chan bool, 1)
	go func() {
		ok, _ := l.LoadMore(ctx)
		first <- ok
	}()
	<-entered

	var wg sync.WaitGroup
	var issued atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.LoadMore(ctx); ok {
				issued.Add(1)
			}
		}()
	}
	wg.Wait()
	close(release)

	if !<-first {
		t.Error("first LoadMore was not issued")
	}
	if maxInFlight.Load() != 1 {
		t.Errorf("max concurrent load-more fetches = %d, want 1", maxInFlight.Load())
	}
	if calls.Load() != 2 {
		t.Errorf("fetch calls = %d, want 2", calls.Load())
	}
	if issued.Load() != 0 {
		t.Errorf("overlapping LoadMore calls issued %d fetches", issued.Load())
	}
	if snap := l.Snapshot(); len(snap.Items) != 10 || snap.LoadingMore {
		t.Errorf("items = %d, loadingMore = %v", len(snap.Items), snap.LoadingMore)
	}
}

func TestLoader_StaleLoadMoreDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]string, error) {
		if q.Offset > 0 {
			close(entered)
			<-release
			return []string{"stale"}, nil
		}
		return []string{q.Keyword + "-0", q.Keyword + "-1"}, nil
	}
	l := NewLoader(fetch)
	ctx := context.Background()
	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 2, Keyword: "old"}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := l.LoadMore(ctx)
		done <- err
	}()
	<-entered

	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 2, Keyword: "new"}); err != nil {
		t.Fatalf("second LoadInitial failed: %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("stale LoadMore err = %v, want ErrSuperseded", err)
	}

	snap := l.Snapshot()
	want := []string{"new-0", "new-1"}
	if fmt.Sprint(snap.Items) != fmt.Sprint(want) {
		t.Errorf("items = %v, want %v", snap.Items, want)
	}
}

func TestLoader_OnScroll(t *testing.T) {
	tests := []struct {
		name   string
		vp     Viewport
		issued bool
	}{
		{name: "far from bottom", vp: Viewport{ScrollTop: 0, ClientHeight: 500, ScrollHeight: 2000}, issued: false},
		{name: "just outside threshold", vp: Viewport{ScrollTop: 1399, ClientHeight: 500, ScrollHeight: 2000}, issued: false},
		{name: "at threshold", vp: Viewport{ScrollTop: 1400, ClientHeight: 500, ScrollHeight: 2000}, issued: true},
		{name: "at bottom", vp: Viewport{ScrollTop: 1500, ClientHeight: 500, ScrollHeight: 2000}, issued: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &pagedSource{sizes: []int{10, 10}}
			l := NewLoader(src.fetch)
			if err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 10}); err != nil {
				t.Fatalf("LoadInitial failed: %v", err)
			}
			issued, err := l.OnScroll(context.Background(), tt.vp)
			if err != nil {
				t.Fatalf("OnScroll failed: %v", err)
			}
			if issued != tt.issued {
				t.Errorf("issued = %v, want %v", issued, tt.issued)
			}
		})
	}
}

func TestLoader_RepeatedScrollAtBottom(t *testing.T) {
	src := &pagedSource{sizes: []int{10, 3}}
	l := NewLoader(src.fetch)
	ctx := context.Background()
	if err := l.LoadInitial(ctx, paperdash.ListQuery{Limit: 10}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}

	bottom := Viewport{ScrollTop: 900, ClientHeight: 100, ScrollHeight: 1000}
	for i := 0; i < 10; i++ {
		if _, err := l.OnScroll(ctx, bottom); err != nil {
			t.Fatalf("OnScroll failed: %v", err)
		}
	}
	if src.calls() != 2 {
		t.Errorf("fetch calls = %d, want 2", src.calls())
	}
}

func TestLoader_Update(t *testing.T) {
	type row struct {
		id     string
		status paperdash.Status
	}
	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]row, error) {
		return []row{{"a", paperdash.StatusNew}, {"b", paperdash.StatusNew}}, nil
	}
	l := NewLoader(fetch)
	if err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 2}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}

	n := l.Update(func(r row) bool { return r.id == "b" }, func(r *row) { r.status = paperdash.StatusArchived })
	if n != 1 {
		t.Errorf("updated = %d, want 1", n)
	}
	snap := l.Snapshot()
	if snap.Items[1].status != paperdash.StatusArchived || snap.Items[0].status != paperdash.StatusNew {
		t.Errorf("items = %+v", snap.Items)
	}
	if snap.Offset != 2 {
		t.Errorf("offset = %d, want 2", snap.Offset)
	}
}

func TestLoader_SnapshotIsACopy(t *testing.T) {
	src := &pagedSource{sizes: []int{3}}
	l := NewLoader(src.fetch)
	if err := l.LoadInitial(context.Background(), paperdash.ListQuery{Limit: 3}); err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	snap := l.Snapshot()
	snap.Items[0] = 99
	if l.Snapshot().Items[0] == 99 {
		t.Error("mutating a snapshot changed the loader")
	}
}
