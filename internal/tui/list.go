package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/dashboard"
	"github.com/jason-riddle/paperdash/internal/listing"
)

// ErrNoAction is returned by List.Action for views without one.
var ErrNoAction = errors.New("no action for this view")

// Row is one rendered line of a list.
type Row struct {
	ID    string
	Cells []string
}

// Status summarises the loader state for display.
type Status struct {
	Phase       listing.Phase
	Loaded      int
	HasMore     bool
	LoadingMore bool
	Filtered    bool // a keyword, date or status filter is active
	Err         error
}

// List is what the browser needs from a dashboard table.
type List interface {
	Title() string
	Columns() []string
	Rows() []Row
	Status() Status
	Searching() bool

	Load(ctx context.Context) error
	LoadMore(ctx context.Context) (bool, error)

	Keyword() string
	SetKeyword(s string)

	SortKeys() []string
	SortState() listing.SortState
	ToggleSort(key string) listing.SortState

	// Action runs the view action on the row with id and returns a short
	// notice for the status line.
	Action(ctx context.Context, id string) (string, error)
}

type tableList[T any] struct {
	title   string
	columns []string
	table   *dashboard.Table[T]
	row     func(T) Row
	action  func(ctx context.Context, id string) (string, error)
}

func (l *tableList[T]) Title() string { return l.title }
func (l *tableList[T]) Columns() []string { return l.columns }
func (l *tableList[T]) Searching() bool { return l.table.Searching() }
func (l *tableList[T]) Keyword() string { return l.table.Query().Keyword }
func (l *tableList[T]) SetKeyword(s string) { l.table.SetKeyword(s) }
func (l *tableList[T]) SortKeys() []string { return l.table.SortKeys() }
func (l *tableList[T]) SortState() listing.SortState { return l.table.SortState() }
func (l *tableList[T]) ToggleSort(key string) listing.SortState { return l.table.ToggleSort(key) }
func (l *tableList[T]) Load(ctx context.Context) error { return l.table.Load(ctx) }
func (l *tableList[T]) LoadMore(ctx context.Context) (bool, error) { return l.table.LoadMore(ctx) }

func (l *tableList[T]) Rows() []Row {
	items := l.table.Rows()
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = l.row(item)
	}
	return rows
}

func (l *tableList[T]) Status() Status {
	s := l.table.Snapshot()
	return Status{
		Phase:       s.Phase,
		Loaded:      len(s.Items),
		HasMore:     s.HasMore,
		LoadingMore: s.LoadingMore,
		Filtered:    s.Query.Filtered(),
		Err:         s.Err,
	}
}

func (l *tableList[T]) Action(ctx context.Context, id string) (string, error) {
	if l.action == nil {
		return "", ErrNoAction
	}
	return l.action(ctx, id)
}

// PaperList browses papers.
func PaperList(t *dashboard.PaperTable) List {
	return &tableList[paperdash.Paper]{
		title:   "Papers",
		columns: []string{"Title", "Published", "Citations", "Category"},
		table:   t.Table,
		row: func(p paperdash.Paper) Row {
			return Row{ID: p.PaperID, Cells: []string{
				p.Title,
				formatDate(p.PublishedDate),
				humanize.Comma(int64(p.CitationCount)),
				p.PrimaryCategory,
			}}
		},
	}
}

// ArticleList browses web articles. Its action toggles an article between
// new and archived.
func ArticleList(t *dashboard.ArticleTable) List {
	return &tableList[paperdash.Article]{
		title:   "Articles",
		columns: []string{"", "Title", "Site", "Date"},
		table:   t.Table,
		row: func(a paperdash.Article) Row {
			mark := " "
			if a.Status == paperdash.StatusNew {
				mark = "●"
			}
			return Row{ID: a.ArticleID, Cells: []string{
				mark,
				a.Title,
				a.SiteName,
				formatAge(a.Timestamp),
			}}
		},
		action: func(ctx context.Context, id string) (string, error) {
			a, ok := t.Find(id)
			if !ok {
				return "", fmt.Errorf("article %s is not loaded", id)
			}
			next := paperdash.StatusArchived
			if a.Status == paperdash.StatusArchived {
				next = paperdash.StatusNew
			}
			if err := t.SetStatus(ctx, id, next); err != nil {
				return "", err
			}
			return fmt.Sprintf("marked %q %s", a.Title, next), nil
		},
	}
}

func formatDate(d paperdash.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Time().Format("2006-01-02")
}

func formatAge(d paperdash.Date) string {
	if d.IsZero() {
		return "-"
	}
	return humanize.Time(d.Time())
}
