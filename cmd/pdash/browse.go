package main

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jason-riddle/paperdash/internal/dashboard"
	"github.com/jason-riddle/paperdash/internal/tui"
)

func (a *app) browse(ctx context.Context, args []string) error {
	view, _, err := subcommand(args, "browse", "papers", "articles")
	if err != nil {
		return err
	}
	if !isTerminal(a.stdout) {
		return errors.New("browse needs a terminal")
	}

	// Filter edits reload in the background; they stop with the program.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []dashboard.Option{dashboard.WithLogger(a.logger)}
	var list tui.List
	if view == "papers" {
		cfg := dashboard.PaperView
		cfg.Limit = a.cfg.PaperPageSize
		cfg.Debounce = a.cfg.DebounceDuration()
		list = tui.PaperList(dashboard.NewPaperTableWithConfig(ctx, a.client, cfg, opts...))
	} else {
		cfg := dashboard.ArticleView
		cfg.Limit = a.cfg.ArticlePageSize
		cfg.Debounce = a.cfg.DebounceDuration()
		list = tui.ArticleList(dashboard.NewArticleTableWithConfig(ctx, a.client, cfg, opts...))
	}

	program := tea.NewProgram(tui.New(ctx, list), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
