package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/cache"
	"github.com/jason-riddle/paperdash/internal/dashboard"
	"github.com/jason-riddle/paperdash/internal/listing"
	"github.com/jason-riddle/paperdash/internal/render"
)

// listOutput is the JSON form of list commands.
type listOutput[T any] struct {
	Count   int  `json:"count"`
	Offset  int  `json:"next_offset"`
	HasMore bool `json:"has_more"`
	Items   []T  `json:"items"`
}

// listFlags are the query flags shared by list commands.
type listFlags struct {
	keyword, from, to, status string
	limit, offset, pages      int
}

func (f *listFlags) query() (paperdash.ListQuery, error) {
	q := paperdash.ListQuery{Keyword: f.keyword, Limit: f.limit, Offset: f.offset}
	var err error
	if q.DateFrom, err = parseDay("from", f.from); err != nil {
		return q, err
	}
	if q.DateTo, err = parseDay("to", f.to); err != nil {
		return q, err
	}
	if f.status != "" {
		if q.Status, err = paperdash.ParseStatus(f.status); err != nil {
			return q, err
		}
	}
	return q, q.Validate()
}

// loadPages fetches up to pages pages through a listing.Loader, the same
// way a scrolled view would. The loader counts from zero; q.Offset shifts
// every request.
func loadPages[T any](ctx context.Context, a *app, fetch listing.FetchFunc[T], q paperdash.ListQuery, pages int) (listOutput[T], error) {
	base := q.Offset
	shifted := func(ctx context.Context, q paperdash.ListQuery) ([]T, error) {
		return fetch(ctx, q.WithOffset(base+q.Offset))
	}
	loader := listing.NewLoader(shifted, listing.WithLogger(a.logger))
	if err := loader.LoadInitial(ctx, q); err != nil {
		return listOutput[T]{}, err
	}
	for i := 1; i < pages && loader.Snapshot().HasMore; i++ {
		if _, err := loader.LoadMore(ctx); err != nil {
			return listOutput[T]{}, err
		}
	}
	s := loader.Snapshot()
	items := s.Items
	if items == nil {
		items = []T{}
	}
	return listOutput[T]{Count: len(items), Offset: base + s.Offset, HasMore: s.HasMore, Items: items}, nil
}

func (a *app) papers(ctx context.Context, args []string) error {
	verb, args, err := subcommand(args, "papers", "list", "get", "add")
	if err != nil {
		return err
	}
	switch verb {
	case "list":
		return a.listPapers(ctx, args)
	case "get":
		return a.getPaper(ctx, args)
	default:
		return a.addPaper(ctx, args)
	}
}

func (a *app) listPapers(ctx context.Context, args []string) error {
	var lf listFlags
	fs := a.newFlags("papers list")
	fs.StringVarP(&lf.keyword, "keyword", "k", "", "keyword filter")
	fs.StringVar(&lf.from, "from", "", "earliest published date (YYYY-MM-DD)")
	fs.StringVar(&lf.to, "to", "", "latest published date (YYYY-MM-DD)")
	fs.IntVar(&lf.limit, "limit", a.cfg.PaperPageSize, "page size")
	fs.IntVar(&lf.offset, "offset", 0, "items to skip")
	fs.IntVar(&lf.pages, "pages", 1, "number of pages to fetch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q, err := lf.query()
	if err != nil {
		return err
	}

	fetch := func(ctx context.Context, q paperdash.ListQuery) ([]paperdash.Paper, error) {
		page, err := a.client.ListPapers(ctx, q)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	out, err := loadPages(ctx, a, fetch, q, lf.pages)
	if err != nil {
		return err
	}

	t := &tableData{headers: []string{"ID", "Title", "Published", "Citations", "Category"}}
	for _, p := range out.Items {
		t.rows = append(t.rows, []string{
			p.PaperID,
			p.Title,
			day(p.PublishedDate),
			humanize.Comma(int64(p.CitationCount)),
			p.PrimaryCategory,
		})
	}
	return a.print(out, t)
}

func (a *app) getPaper(ctx context.Context, args []string) error {
	fs := a.newFlags("papers get")
	asHTML := fs.Bool("html", false, "print the paper as HTML")
	asMarkdown := fs.Bool("markdown", false, "print the paper as markdown")
	fullText := fs.Bool("full-text", false, "include the extracted full text")
	withNotes := fs.Bool("notes", false, "include the paper's notes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: pdash papers get <id> [--html | --markdown] [--full-text] [--notes]")
	}
	id := fs.Arg(0)

	var getter dashboard.PaperGetter = a.client
	if !a.noCache {
		store, err := a.paperCache()
		if err != nil {
			return err
		}
		defer store.Close()
		getter = cache.NewPapers(a.client, store,
			cache.WithTTL(a.cfg.CacheTTL()),
			cache.WithLogger(a.logger),
			cache.WithForceRefresh(a.forceRefresh),
		)
	}

	var detail *dashboard.PaperDetail
	var paper *paperdash.Paper
	var err error
	if *withNotes {
		detail, err = dashboard.LoadPaperDetail(ctx, getter, a.client, id)
		if detail != nil {
			paper = detail.Paper
		}
	} else {
		paper, err = getter.GetPaper(ctx, id)
	}
	if err != nil {
		if paperdash.IsNotFound(err) {
			return fmt.Errorf("paper %s not found", id)
		}
		return err
	}

	opts := render.PaperOptions{FullText: *fullText}
	if detail != nil {
		opts.Notes = detail.Notes.Notes()
	}

	switch {
	case *asHTML:
		html, err := render.HTML(render.PaperMarkdown(paper, opts))
		if err != nil {
			return err
		}
		fmt.Fprint(a.stdout, html)
		return nil
	case *asMarkdown:
		fmt.Fprint(a.stdout, render.PaperMarkdown(paper, opts))
		return nil
	case a.output == "table":
		profile := termenv.Ascii
		if isTerminal(a.stdout) {
			profile = render.DetectProfile(a.stdout)
		}
		fmt.Fprintln(a.stdout, render.Terminal(render.PaperMarkdown(paper, opts), render.TerminalOptions{
			Width:   min(terminalWidth(a.stdout), 100),
			Profile: profile,
			Output:  a.stdout,
		}))
		return nil
	}

	if detail != nil {
		return a.printJSON(struct {
			Paper *paperdash.Paper `json:"paper"`
			Notes []paperdash.Note `json:"notes"`
		}{paper, opts.Notes})
	}
	return a.printJSON(paper)
}

func (a *app) addPaper(ctx context.Context, args []string) error {
	fs := a.newFlags("papers add")
	title := fs.String("title", "", "paper title")
	pdfURL := fs.String("pdf-url", "", "URL of the paper PDF")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := paperdash.AddPaperRequest{Title: *title, PDFURL: *pdfURL}
	session, err := a.client.AddPaper(ctx, req)
	if err != nil {
		return err
	}

	for ev := range session.Events() {
		if !ev.Terminal() {
			fmt.Fprintf(a.stderr, "[%3d%%] %s\n", ev.Progress, ev.Message)
		}
	}

	switch session.State() {
	case paperdash.SessionCompleted:
		result := session.Result()
		fmt.Fprintf(a.stderr, "[100%%] %s\n", result.Message)
		if result.Paper != nil {
			return a.printJSON(result.Paper)
		}
		return a.printJSON(result)
	case paperdash.SessionCancelled:
		return errors.New("cancelled")
	}
	return session.Err()
}

func day(d paperdash.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Time().Format("2006-01-02")
}
