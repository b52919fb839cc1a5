package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/clock"
)

func TestDir(t *testing.T) {
	t.Run("uses XDG_CACHE_HOME when set", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "/tmp/test-cache")

		dir, err := Dir()
		if err != nil {
			t.Fatalf("Dir failed: %v", err)
		}
		if want := filepath.Join("/tmp/test-cache", "paperdash"); dir != want {
			t.Errorf("Dir() = %v, want %v", dir, want)
		}
	})

	t.Run("falls back to ~/.cache", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", "")

		dir, err := Dir()
		if err != nil {
			t.Fatalf("Dir failed: %v", err)
		}
		home, _ := os.UserHomeDir()
		if want := filepath.Join(home, ".cache", "paperdash"); dir != want {
			t.Errorf("Dir() = %v, want %v", dir, want)
		}
	})
}

func TestDefaultTTL(t *testing.T) {
	if DefaultTTL != 12*time.Hour {
		t.Errorf("DefaultTTL = %v, want %v", DefaultTTL, 12*time.Hour)
	}
}

func openTest(t *testing.T, clk clock.Clock) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", FileName), WithClock(clk))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	s := openTest(t, clk)

	if _, ok, err := s.Get(ctx, "paper", "p1"); err != nil || ok {
		t.Fatalf("Get on empty store = ok %v, err %v", ok, err)
	}

	if err := s.Put(ctx, "paper", "p1", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	entry, ok, err := s.Get(ctx, "paper", "p1")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if string(entry.Data) != `{"a":1}` {
		t.Errorf("Data = %s", entry.Data)
	}
	if !entry.FetchedAt.Equal(start) {
		t.Errorf("FetchedAt = %v, want %v", entry.FetchedAt, start)
	}

	// Overwrite refreshes the timestamp.
	clk.Advance(time.Hour)
	if err := s.Put(ctx, "paper", "p1", []byte(`{"a":2}`)); err != nil {
		t.Fatal(err)
	}
	entry, _, _ = s.Get(ctx, "paper", "p1")
	if string(entry.Data) != `{"a":2}` || !entry.FetchedAt.Equal(start.Add(time.Hour)) {
		t.Errorf("after overwrite = %s at %v", entry.Data, entry.FetchedAt)
	}

	// Kinds are separate namespaces.
	if _, ok, _ := s.Get(ctx, "note", "p1"); ok {
		t.Error("Get(note, p1) found the paper entry")
	}

	if err := s.Put(ctx, "paper", "p2", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx, "paper"); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if err := s.Delete(ctx, "paper", "p2"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Get(ctx, "paper", "p2"); ok {
		t.Error("p2 still present after Delete")
	}

	n, err := s.Purge(ctx)
	if err != nil || n != 1 {
		t.Errorf("Purge = %d, %v; want 1", n, err)
	}
	if n, _ := s.Count(ctx, ""); n != 0 {
		t.Errorf("Count after purge = %d", n)
	}
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	s := openTest(t, clk)

	_ = s.Put(ctx, "paper", "old", []byte(`{}`))
	clk.Advance(13 * time.Hour)
	_ = s.Put(ctx, "paper", "new", []byte(`{}`))

	n, err := s.Prune(ctx, DefaultTTL)
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v; want 1", n, err)
	}
	if _, ok, _ := s.Get(ctx, "paper", "new"); !ok {
		t.Error("fresh entry pruned")
	}
}

func TestEntry_Stale(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		fetched time.Time
		want    bool
	}{
		{"fresh", now.Add(-time.Hour), false},
		{"at ttl", now.Add(-DefaultTTL), false},
		{"expired", now.Add(-DefaultTTL - time.Second), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Entry{FetchedAt: tt.fetched}).Stale(now, DefaultTTL); got != tt.want {
				t.Errorf("Stale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOpenDir_FallsBackToMemory(t *testing.T) {
	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenDir(filepath.Join(blocker, "cache"), nil)
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	defer s.Close()
	if s.Path() != ":memory:" {
		t.Errorf("Path() = %q, want :memory:", s.Path())
	}
	if err := s.Put(context.Background(), "paper", "p1", []byte(`{}`)); err != nil {
		t.Errorf("Put on fallback store: %v", err)
	}
}

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingSource) GetPaper(ctx context.Context, id string) (*paperdash.Paper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &paperdash.Paper{
		PaperID: id,
		Title:   "Paper " + id,
		Extra:   paperdash.Extra{"venue_rank": []byte(`"A*"`)},
	}, nil
}

func TestPapers(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	store := openTest(t, clk)
	src := &countingSource{}
	papers := NewPapers(src, store)

	for range 3 {
		p, err := papers.GetPaper(ctx, "p1")
		if err != nil {
			t.Fatalf("GetPaper failed: %v", err)
		}
		if p.Title != "Paper p1" {
			t.Errorf("Title = %q", p.Title)
		}
		if string(p.Extra["venue_rank"]) != `"A*"` {
			t.Errorf("Extra lost through the cache: %v", p.Extra)
		}
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}

	clk.Advance(DefaultTTL + time.Minute)
	if _, err := papers.GetPaper(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Errorf("source calls after expiry = %d, want 2", src.calls)
	}

	if err := papers.Invalidate(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	_, _ = papers.GetPaper(ctx, "p1")
	if src.calls != 3 {
		t.Errorf("source calls after Invalidate = %d, want 3", src.calls)
	}
}

func TestPapers_ForceRefresh(t *testing.T) {
	ctx := context.Background()
	store := openTest(t, clock.Real())
	src := &countingSource{}

	_, _ = NewPapers(src, store).GetPaper(ctx, "p1")
	_, _ = NewPapers(src, store, WithForceRefresh(true)).GetPaper(ctx, "p1")
	if src.calls != 2 {
		t.Errorf("source calls = %d, want 2", src.calls)
	}
	if n, _ := store.Count(ctx, paperKind); n != 1 {
		t.Errorf("cached entries = %d, want 1", n)
	}
}

func TestPapers_SourceError(t *testing.T) {
	ctx := context.Background()
	store := openTest(t, clock.Real())
	wantErr := &paperdash.Error{StatusCode: 404, Message: "not found"}
	papers := NewPapers(&countingSource{err: wantErr}, store)

	_, err := papers.GetPaper(ctx, "missing")
	if !errors.Is(err, wantErr) {
		t.Errorf("GetPaper error = %v, want %v", err, wantErr)
	}
	if n, _ := store.Count(ctx, ""); n != 0 {
		t.Errorf("error result was cached: %d entries", n)
	}
}

func TestPapers_CorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := openTest(t, clock.Real())
	_ = store.Put(ctx, paperKind, "p1", []byte("not json"))
	src := &countingSource{}

	p, err := NewPapers(src, store).GetPaper(ctx, "p1")
	if err != nil || p.PaperID != "p1" {
		t.Fatalf("GetPaper = %v, %v", p, err)
	}
	if src.calls != 1 {
		t.Errorf("source calls = %d, want 1", src.calls)
	}
}
