// Package tui is the interactive terminal browser over the paper and
// article lists.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jason-riddle/paperdash"
	"github.com/jason-riddle/paperdash/internal/listing"
)

// nearBottomRows is how close to the last loaded row the cursor must come
// before the next page is requested.
const nearBottomRows = 5

// pollInterval is how often the view refreshes while a fetch or debounced
// search is pending.
const pollInterval = 150 * time.Millisecond

type loadedMsg struct {
	initial bool
	err     error
}

type actionMsg struct {
	notice string
	err    error
}

type pollMsg struct{}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx    context.Context
	list   List
	keys   KeyMap
	styles styles
	input  textinput.Model

	searching bool // keyword input has focus
	polling   bool
	cursor    int
	offset    int
	width     int
	height    int
	notice    string
}

// New creates a browser over list. ctx bounds every fetch.
func New(ctx context.Context, list List) Model {
	input := textinput.New()
	input.Prompt = "/ "
	input.Placeholder = "keyword"
	input.CharLimit = 200
	input.Cursor.SetMode(cursor.CursorStatic)
	input.SetValue(list.Keyword())

	return Model{
		ctx:    ctx,
		list:   list,
		keys:   DefaultKeyMap,
		styles: defaultStyles(),
		input:  input,
		width:  80,
		height: 24,
	}
}

// Init implements tea.Model. It loads the first page.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	ctx, list := m.ctx, m.list
	return tea.Batch(
		func() tea.Msg { return loadedMsg{initial: true, err: list.Load(ctx)} },
		func() tea.Msg { return pollMsg{} },
	)
}

func (m Model) loadMore() tea.Cmd {
	ctx, list := m.ctx, m.list
	return func() tea.Msg {
		_, err := list.LoadMore(ctx)
		return loadedMsg{err: err}
	}
}

func poll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleListKeys(msg)

	case loadedMsg:
		if msg.err != nil && !errors.Is(msg.err, listing.ErrSuperseded) && !msg.initial {
			// Initial failures show in the body; load-more failures only here.
			m.notice = "load more failed: " + msg.err.Error()
		}
		m.clampCursor()
		cmd := m.maybeLoadMore()
		return m, cmd

	case actionMsg:
		if msg.err != nil {
			m.notice = "error: " + msg.err.Error()
		} else {
			m.notice = msg.notice
		}

	case pollMsg:
		m.polling = false
		m.clampCursor()
		cmd := m.startPolling()
		return m, cmd
	}
	return m, nil
}

// startPolling keeps re-rendering while work is pending.
func (m *Model) startPolling() tea.Cmd {
	if m.polling {
		return nil
	}
	st := m.list.Status()
	if !m.list.Searching() && st.Phase != listing.PhaseLoadingInitial && !st.LoadingMore {
		return nil
	}
	m.polling = true
	return poll()
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.list.SetKeyword("")
			m.cursor, m.offset = 0, 0
			cmd := m.startPolling()
			return m, cmd
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != before {
		m.list.SetKeyword(v)
		m.cursor, m.offset = 0, 0
		cmd = tea.Batch(cmd, m.startPolling())
		return m, cmd
	}
	return m, cmd
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := len(m.list.Rows())
	page := m.bodyHeight()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.cursor--
	case key.Matches(msg, m.keys.Down):
		m.cursor++
	case key.Matches(msg, m.keys.PageUp):
		m.cursor -= page
	case key.Matches(msg, m.keys.PageDown):
		m.cursor += page
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = rows - 1

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.SearchClear):
		if m.input.Value() != "" {
			m.input.SetValue("")
			m.list.SetKeyword("")
			m.cursor, m.offset = 0, 0
			cmd := m.startPolling()
			return m, cmd
		}

	case key.Matches(msg, m.keys.SortNext):
		m.list.ToggleSort(nextSortKey(m.list.SortKeys(), m.list.SortState().Key))
	case key.Matches(msg, m.keys.SortReverse):
		if k := m.list.SortState().Key; k != "" {
			m.list.ToggleSort(k)
		}

	case key.Matches(msg, m.keys.Action):
		if row, ok := m.selected(); ok {
			ctx, list, id := m.ctx, m.list, row.ID
			return m, func() tea.Msg {
				notice, err := list.Action(ctx, id)
				return actionMsg{notice: notice, err: err}
			}
		}

	case key.Matches(msg, m.keys.Reload):
		m.notice = ""
		return m, m.load()

	default:
		return m, nil
	}

	m.clampCursor()
	cmd := m.maybeLoadMore()
	return m, cmd
}

// nextSortKey returns the column after current, wrapping around.
func nextSortKey(keys []string, current string) string {
	if len(keys) == 0 {
		return ""
	}
	i := slices.Index(keys, current)
	return keys[(i+1)%len(keys)]
}

func (m *Model) clampCursor() {
	rows := len(m.list.Rows())
	m.cursor = max(min(m.cursor, rows-1), 0)

	h := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	m.offset = max(min(m.offset, rows-h), 0)
}

// maybeLoadMore requests the next page when the cursor nears the end of
// what is loaded. The loader drops the call if a page is already in flight.
func (m *Model) maybeLoadMore() tea.Cmd {
	st := m.list.Status()
	if st.Phase != listing.PhaseReady || !st.HasMore || st.LoadingMore {
		return nil
	}
	v := listing.Viewport{
		ScrollTop:    m.cursor,
		ClientHeight: 1,
		ScrollHeight: st.Loaded,
	}
	if !v.NearBottom(nearBottomRows) {
		return nil
	}
	m.polling = true
	return tea.Batch(m.loadMore(), poll())
}

func (m Model) selected() (Row, bool) {
	rows := m.list.Rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return Row{}, false
	}
	return rows[m.cursor], true
}

// bodyHeight is the number of list rows that fit between the header and
// footer.
func (m Model) bodyHeight() int {
	return max(m.height-5, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	if m.searching || m.input.Value() != "" {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(m.body())
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	title := m.styles.title.Render(m.list.Title())
	var parts []string
	if s := m.list.SortState(); s.Key != "" {
		parts = append(parts, fmt.Sprintf("sort: %s %s", s.Key, s.Direction))
	}
	if m.list.Searching() {
		parts = append(parts, "searching…")
	}
	if len(parts) == 0 {
		return title
	}
	return title + "  " + m.styles.faint.Render(strings.Join(parts, "  "))
}

func (m Model) body() string {
	st := m.list.Status()
	h := m.bodyHeight()

	var content string
	switch st.Phase {
	case listing.PhaseIdle, listing.PhaseLoadingInitial:
		content = m.styles.faint.Render("Loading…")
	case listing.PhaseFailed:
		content = m.styles.err.Render("Error: " + errString(st.Err))
		if paperdash.Retryable(st.Err) {
			content += "\n" + m.styles.faint.Render("press R to retry")
		}
	case listing.PhaseEmpty:
		content = m.styles.faint.Render("No results")
		if st.Filtered {
			content += "\n" + m.styles.faint.Render("nothing matches the current filters")
		}
	default:
		content = m.table(h)
	}

	lines := strings.Split(content, "\n")
	for len(lines) < h {
		lines = append(lines, "")
	}
	return strings.Join(lines[:h], "\n")
}

func errString(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// table renders the visible rows. The widest column (the title) takes the
// space the others leave.
func (m Model) table(h int) string {
	rows := m.list.Rows()
	cols := m.list.Columns()

	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = ansi.StringWidth(c)
	}
	for _, r := range rows {
		for i, c := range r.Cells {
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(c))
			}
		}
	}
	flex := flexColumn(cols)
	fixed := 0
	for i, w := range widths {
		if i != flex {
			fixed += w + 2
		}
	}
	widths[flex] = max(min(widths[flex], m.width-fixed), 8)

	end := min(m.offset+h, len(rows))
	lines := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		line := formatRow(rows[i].Cells, widths)
		if i == m.cursor {
			line = m.styles.selected.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func flexColumn(cols []string) int {
	if i := slices.Index(cols, "Title"); i >= 0 {
		return i
	}
	return 0
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var c string
		if i < len(cells) {
			c = ansi.Truncate(cells[i], w, "…")
		}
		parts[i] = c + strings.Repeat(" ", max(w-ansi.StringWidth(c), 0))
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}

func (m Model) footer() string {
	st := m.list.Status()
	var parts []string
	if st.Phase == listing.PhaseReady {
		switch {
		case st.LoadingMore:
			parts = append(parts, fmt.Sprintf("%d loaded, loading more…", st.Loaded))
		case st.HasMore:
			parts = append(parts, fmt.Sprintf("%d loaded", st.Loaded))
		default:
			parts = append(parts, fmt.Sprintf("%d loaded, end of list", st.Loaded))
		}
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	help := m.styles.faint.Render("j/k move  / search  s sort  r reverse  a archive  R reload  q quit")
	if len(parts) == 0 {
		return help
	}
	return strings.Join(parts, "  ·  ") + "\n" + help
}

type styles struct {
	title    lipgloss.Style
	faint    lipgloss.Style
	err      lipgloss.Style
	selected lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		faint:    lipgloss.NewStyle().Foreground(lipgloss.Color("243")),
		err:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		selected: lipgloss.NewStyle().Reverse(true),
	}
}
