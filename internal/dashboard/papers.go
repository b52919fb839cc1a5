package dashboard

import (
	"context"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/listing"
)

// PaperLister lists papers.
type PaperLister interface {
	ListPapers(ctx context.Context, q paperdash.ListQuery) (*paperdash.PaperPage, error)
}

// PaperFields are the sortable columns of the paper table.
var PaperFields = []listing.Field[paperdash.Paper]{
	listing.Text("title", func(p paperdash.Paper) string { return p.Title }),
	listing.Time("published", func(p paperdash.Paper) time.Time { return p.PublishedDate.Time() }),
	listing.Time("added", func(p paperdash.Paper) time.Time { return p.CreatedAt.Time() }),
	listing.Number("citations", func(p paperdash.Paper) float64 { return float64(p.CitationCount) }),
	listing.Text("category", func(p paperdash.Paper) string { return p.PrimaryCategory }),
}

// PaperTable is the academic paper list.
type PaperTable struct {
	*Table[paperdash.Paper]
}

// NewPaperTable creates the paper list view.
func NewPaperTable(ctx context.Context, api PaperLister, opts ...Option) *PaperTable {
	return NewPaperTableWithConfig(ctx, api, PaperView, opts...)
}

// NewPaperTableWithConfig creates a paper list with a custom page size or
// debounce.
func NewPaperTableWithConfig(ctx context.Context, api PaperLister, cfg ViewConfig, opts ...Option) *PaperTable {
	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]paperdash.Paper, error) {
		page, err := api.ListPapers(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	return &PaperTable{Table: NewTable(ctx, cfg, fetch, PaperFields, opts...)}
}
