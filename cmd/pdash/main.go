// pdash is the command-line client for the paper and article dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/cache"
	"github.com/jason-riddle/paperdash/internal/config"
)

const usage = `usage: pdash [flags] <command> [args]

Commands:
  papers list [--keyword K] [--from DATE] [--to DATE] [--limit N] [--offset N] [--pages N]
  papers get <id> [--html | --markdown] [--full-text] [--notes]
  papers add --title TITLE --pdf-url URL
  articles list [--keyword K] [--from DATE] [--to DATE] [--status new|archived] [--pages N]
  articles status <id> <new|archived>
  sites list [--limit N] [--offset N]
  notes list <paper-id>
  notes add <paper-id> <text>
  notes edit <paper-id> <note-id> <text>
  notes delete <note-id>
  notes ask <note-id> <question>
  health [--db]
  browse <papers|articles>
  cache path|purge|prune

Flags:
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the state shared by every command.
type app struct {
	cfg    *config.Config
	client *paperdash.Client
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer

	output       string // "json" or "table"
	noCache      bool
	forceRefresh bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("pdash", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	configPath := flags.String("config", "", "config file (default: $PAPERDASH_CONFIG)")
	baseURL := flags.String("url", "", "dashboard API URL (default: $PAPERDASH_URL or config)")
	timeout := flags.Duration("timeout", 0, "request timeout (default: $PAPERDASH_TIMEOUT or config)")
	output := flags.StringP("output", "o", "json", "output format: json or table")
	verbose := flags.BoolP("verbose", "v", false, "log requests to stderr")
	noCache := flags.Bool("no-cache", false, "do not read or write the local paper cache")
	forceRefresh := flags.Bool("force-refresh", false, "bypass cached papers, refreshing the cache")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *output != "json" && *output != "table" {
		return fmt.Errorf("unsupported output format: %s (want json or table)", *output)
	}

	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *timeout > 0 {
		cfg.Timeout = config.Duration(*timeout)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(stderr, *verbose)
	a := &app{
		cfg:    cfg,
		logger: logger,
		client: paperdash.NewClient(cfg.BaseURL,
			paperdash.WithTimeout(cfg.TimeoutDuration()),
			paperdash.WithLogger(logger),
		),
		stdout:       stdout,
		stderr:       stderr,
		output:       *output,
		noCache:      *noCache || cfg.Cache.Disabled,
		forceRefresh: *forceRefresh,
	}

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "papers":
		return a.papers(ctx, cmdArgs)
	case "articles":
		return a.articles(ctx, cmdArgs)
	case "sites":
		return a.sites(ctx, cmdArgs)
	case "notes":
		return a.notes(ctx, cmdArgs)
	case "health":
		return a.health(ctx, cmdArgs)
	case "browse":
		return a.browse(ctx, cmdArgs)
	case "cache":
		return a.cache(ctx, cmdArgs)
	}
	return fmt.Errorf("unknown command: %s", command)
}

// newLogger logs warnings by default and every request with --verbose.
// Output to a terminal is text, anything else JSON.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the width of w, or 100 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 100
}

// subcommand splits args into a verb and its arguments.
func subcommand(args []string, group string, verbs ...string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("usage: pdash %s <%s>", group, strings.Join(verbs, "|"))
	}
	for _, v := range verbs {
		if args[0] == v {
			return v, args[1:], nil
		}
	}
	return "", nil, fmt.Errorf("unknown %s command: %s", group, args[0])
}

// newFlags creates a flag set for one subcommand.
func (a *app) newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) paperCache() (*cache.Store, error) {
	return cache.OpenDir(a.cfg.Cache.Dir, a.logger)
}

func (a *app) health(ctx context.Context, args []string) error {
	fs := a.newFlags("health")
	db := fs.Bool("db", false, "check database connectivity too")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result := map[string]string{"server": a.client.BaseURL()}
	body, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	result["api"] = strings.TrimSpace(body)
	if *db {
		body, err := a.client.HealthDB(ctx)
		if err != nil {
			return err
		}
		result["db"] = strings.TrimSpace(body)
	}
	return a.print(result, nil)
}

func (a *app) cache(ctx context.Context, args []string) error {
	verb, _, err := subcommand(args, "cache", "path", "purge", "prune")
	if err != nil {
		return err
	}

	dir := a.cfg.Cache.Dir
	if dir == "" {
		if dir, err = cache.Dir(); err != nil {
			return err
		}
	}
	if verb == "path" {
		fmt.Fprintln(a.stdout, filepath.Join(dir, cache.FileName))
		return nil
	}

	store, err := cache.Open(dir + string(os.PathSeparator) + cache.FileName)
	if err != nil {
		return err
	}
	defer store.Close()

	var removed int64
	if verb == "purge" {
		removed, err = store.Purge(ctx)
	} else {
		removed, err = store.Prune(ctx, a.cfg.CacheTTL())
	}
	if err != nil {
		return err
	}
	return a.print(map[string]int64{"removed": removed}, nil)
}

// parseDay parses a YYYY-MM-DD flag value. Empty means unset.
func parseDay(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, &paperdash.ValidationError{Field: name, Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", v)}
	}
	return &t, nil
}
