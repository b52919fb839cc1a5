package dashboard

import (
	"context"
	"time"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/listing"
)

// ArticleAPI is the part of the client the article view uses.
type ArticleAPI interface {
	ListArticles(ctx context.Context, q paperdash.ListQuery) (*paperdash.ArticlePage, error)
	UpdateArticleStatus(ctx context.Context, articleID string, status paperdash.Status) error
}

// ArticleFields are the sortable columns of the article table.
var ArticleFields = []listing.Field[paperdash.Article]{
	listing.Text("title", func(a paperdash.Article) string { return a.Title }),
	listing.Text("site", func(a paperdash.Article) string { return a.SiteName }),
	listing.Time("date", func(a paperdash.Article) time.Time { return a.Timestamp.Time() }),
	listing.Text("status", func(a paperdash.Article) string { return string(a.Status) }),
}

// ArticleTable is the web article list.
type ArticleTable struct {
	*Table[paperdash.Article]
	api ArticleAPI
}

// NewArticleTable creates the article list view.
func NewArticleTable(ctx context.Context, api ArticleAPI, opts ...Option) *ArticleTable {
	return NewArticleTableWithConfig(ctx, api, ArticleView, opts...)
}

// NewArticleTableWithConfig creates an article list with a custom page size
// or debounce.
func NewArticleTableWithConfig(ctx context.Context, api ArticleAPI, cfg ViewConfig, opts ...Option) *ArticleTable {
	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]paperdash.Article, error) {
		page, err := api.ListArticles(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	return &ArticleTable{
		Table: NewTable(ctx, cfg, fetch, ArticleFields, opts...),
		api:   api,
	}
}

// Find returns the loaded article with id.
func (t *ArticleTable) Find(id string) (paperdash.Article, bool) {
	for _, a := range t.Snapshot().Items {
		if a.ArticleID == id {
			return a, true
		}
	}
	return paperdash.Article{}, false
}

// SetStatus changes an article's status on the server, then in the loaded
// list. When the server call fails the loaded article is left as it was.
func (t *ArticleTable) SetStatus(ctx context.Context, id string, status paperdash.Status) error {
	if err := t.api.UpdateArticleStatus(ctx, id, status); err != nil {
		return err
	}
	t.update(
		func(a paperdash.Article) bool { return a.ArticleID == id },
		func(a *paperdash.Article) { a.Status = status },
	)
	return nil
}

// MarkRead is the "open article" action: a new article is archived and its
// URL returned for the caller to open. The URL is returned even when the
// status update fails.
func (t *ArticleTable) MarkRead(ctx context.Context, id string) (string, error) {
	a, ok := t.Find(id)
	if !ok {
		return "", &paperdash.ValidationError{Field: "article_id", Message: "not loaded: " + id}
	}
	if a.Status != paperdash.StatusNew {
		return a.URL, nil
	}
	return a.URL, t.SetStatus(ctx, id, paperdash.StatusArchived)
}
