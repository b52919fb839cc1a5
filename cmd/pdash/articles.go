package main

import (
	"context"
	"errors"

	"github.com/dustin/go-humanize"

	"github.com/jason-riddle/paperdash"
)

func (a *app) articles(ctx context.Context, args []string) error {
	verb, args, err := subcommand(args, "articles", "list", "status")
	if err != nil {
		return err
	}
	if verb == "status" {
		return a.articleStatus(ctx, args)
	}

	var lf listFlags
	fs := a.newFlags("articles list")
	fs.StringVarP(&lf.keyword, "keyword", "k", "", "keyword filter")
	fs.StringVar(&lf.from, "from", "", "earliest date (YYYY-MM-DD)")
	fs.StringVar(&lf.to, "to", "", "latest date (YYYY-MM-DD)")
	fs.StringVar(&lf.status, "status", "", "new or archived")
	fs.IntVar(&lf.limit, "limit", a.cfg.ArticlePageSize, "page size")
	fs.IntVar(&lf.offset, "offset", 0, "items to skip")
	fs.IntVar(&lf.pages, "pages", 1, "number of pages to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q, err := lf.query()
	if err != nil {
		return err
	}

	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]paperdash.Article, error) {
		page, err := a.client.ListArticles(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	out, err := loadPages(ctx, a, fetch, q, lf.pages)
	if err != nil {
		return err
	}

	t := &tableData{headers: []string{"ID", "Status", "Title", "Site", "Date"}}
	for _, art := range out.Items {
		age := "-"
		if !art.Timestamp.IsZero() {
			age = humanize.Time(art.Timestamp.Time())
		}
		t.rows = append(t.rows, []string{art.ArticleID, string(art.Status), art.Title, art.SiteName, age})
	}
	return a.print(out, t)
}

func (a *app) articleStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: pdash articles status <id> <new|archived>")
	}
	status, err := paperdash.ParseStatus(args[1])
	if err != nil {
		return err
	}
	if err := a.client.UpdateArticleStatus(ctx, args[0], status); err != nil {
		return err
	}
	return a.printJSON(map[string]string{"article_id": args[0], "status": string(status)})
}

func (a *app) sites(ctx context.Context, args []string) error {
	_, args, err := subcommand(args, "sites", "list")
	if err != nil {
		return err
	}

	fs := a.newFlags("sites list")
	limit := fs.Int("limit", 100, "page size")
	offset := fs.Int("offset", 0, "items to skip")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := a.client.ListWebSites(ctx, paperdash.ListQuery{Limit: *limit, Offset: *offset})
	if err != nil {
		return err
	}
	t := &tableData{headers: []string{"ID", "Name", "URL"}}
	for _, s := range page.Items {
		t.rows = append(t.rows, []string{s.SiteID, s.Name, s.URL})
	}
	return a.print(page, t)
}
