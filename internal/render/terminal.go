package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Theme holds the colours of terminal output.
type Theme struct {
	Heading lipgloss.Color
	Text    lipgloss.Color
	Faint   lipgloss.Color
	Accent  lipgloss.Color
	Border  lipgloss.Color
}

// DefaultTheme suits dark terminals.
var DefaultTheme = Theme{
	Heading: lipgloss.Color("39"),
	Text:    lipgloss.Color("252"),
	Faint:   lipgloss.Color("243"),
	Accent:  lipgloss.Color("214"),
	Border:  lipgloss.Color("238"),
}

// TerminalOptions configures Terminal.
type TerminalOptions struct {
	Width   int             // wrap width; 80 when zero
	Theme   *Theme          // DefaultTheme when nil
	Profile termenv.Profile // colour profile; termenv.Ascii disables styling
	Output  io.Writer       // terminal the profile was detected on; os.Stdout when nil
}

// DetectProfile returns the colour profile of w, falling back to Ascii for
// anything that is not a terminal.
func DetectProfile(w io.Writer) termenv.Profile {
	return termenv.NewOutput(w).EnvColorProfile()
}

// Terminal renders markdown source as styled, word-wrapped terminal text.
// Soft line breaks reflow; code fences are syntax highlighted.
func Terminal(source string, opts TerminalOptions) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	theme := DefaultTheme
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	lip := lipgloss.NewRenderer(out, termenv.WithProfile(opts.Profile))
	lip.SetColorProfile(opts.Profile)

	src := []byte(source)
	doc := getMarkdown().Parser().Parse(text.NewReader(src))
	w := &termWriter{
		source:  src,
		theme:   theme,
		width:   opts.Width,
		profile: opts.Profile,
		lip:     lip,
	}
	_ = ast.Walk(doc, w.walk)
	return strings.TrimRight(w.out.String(), "\n")
}

type termWriter struct {
	source  []byte
	theme   Theme
	width   int
	profile termenv.Profile
	lip     *lipgloss.Renderer

	out      strings.Builder
	inline   strings.Builder
	newlines int // trailing newlines in out

	prefix  string
	indents []string
	bullet  string // replaces prefix on the next line
	lists   []listLevel

	bold, italic, strike int
}

type listLevel struct {
	ordered bool
	next    int
	tight   bool
}

func (w *termWriter) style() lipgloss.Style {
	return w.lip.NewStyle()
}

func (w *termWriter) write(s string) {
	if s == "" {
		return
	}
	w.out.WriteString(s)
	trimmed := strings.TrimRight(s, "\n")
	if trimmed == "" {
		w.newlines += len(s)
	} else {
		w.newlines = len(s) - len(trimmed)
	}
}

func (w *termWriter) newline() {
	if w.newlines < 1 {
		w.write("\n")
	}
}

func (w *termWriter) blank() {
	if w.out.Len() == 0 {
		return
	}
	for w.newlines < 2 {
		w.write("\n")
	}
}

func (w *termWriter) tight() bool {
	return len(w.lists) > 0 && w.lists[len(w.lists)-1].tight
}

func (w *termWriter) pushIndent(s string) {
	w.indents = append(w.indents, s)
	w.prefix += s
}

func (w *termWriter) popIndent() {
	if len(w.indents) == 0 {
		return
	}
	last := w.indents[len(w.indents)-1]
	w.indents = w.indents[:len(w.indents)-1]
	w.prefix = w.prefix[:len(w.prefix)-len(last)]
}

// prefixed prepends the line prefix to every line of s.
func (w *termWriter) prefixed(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		p := w.prefix
		if i == 0 && w.bullet != "" {
			p, w.bullet = w.bullet, ""
		}
		lines[i] = p + line
	}
	return strings.Join(lines, "\n")
}

func (w *termWriter) wrapWidth() int {
	return max(w.width-ansi.StringWidth(w.prefix), 10)
}

func (w *termWriter) flush() string {
	s := strings.TrimRight(w.inline.String(), " ")
	w.inline.Reset()
	if s == "" {
		return ""
	}
	return w.prefixed(ansi.Wrap(s, w.wrapWidth(), " -"))
}

func (w *termWriter) styled(s string) string {
	st := w.style().Foreground(w.theme.Text)
	if w.bold > 0 {
		st = st.Bold(true)
	}
	if w.italic > 0 {
		st = st.Italic(true)
	}
	if w.strike > 0 {
		st = st.Strikethrough(true)
	}
	return st.Render(s)
}

func (w *termWriter) faint(s string) string {
	return w.style().Foreground(w.theme.Faint).Render(s)
}

func (w *termWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if entering {
			w.inline.Reset()
			break
		}
		if s := w.flush(); s != "" {
			w.write(s)
			w.newline()
			if !w.tight() {
				w.blank()
			}
		}

	case *ast.Heading:
		if entering {
			w.inline.Reset()
			break
		}
		w.heading(n.Level)

	case *ast.FencedCodeBlock:
		w.code(fenceText(n, w.source), strings.ToLower(string(n.Language(w.source))))
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			b.Write(segment.Value(w.source))
		}
		w.code(b.String(), "")
		return ast.WalkSkipChildren, nil

	case *ast.Blockquote:
		if entering {
			w.pushIndent("│ ")
		} else {
			w.popIndent()
			w.blank()
		}

	case *ast.List:
		if entering {
			w.lists = append(w.lists, listLevel{ordered: n.IsOrdered(), next: n.Start, tight: n.IsTight})
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if !w.tight() {
				w.blank()
			}
		}

	case *ast.ListItem:
		if entering {
			w.listItem()
		} else {
			w.popIndent()
			if w.tight() {
				w.newline()
			} else {
				w.blank()
			}
		}

	case *ast.ThematicBreak:
		w.blank()
		rule := strings.Repeat("─", w.wrapWidth())
		w.write(w.prefixed(w.style().Foreground(w.theme.Border).Render(rule)))
		w.newline()
		w.blank()

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			w.write(w.prefixed(w.faint(strings.TrimRight(string(segment.Value(w.source)), "\n"))))
			w.newline()
		}
		w.blank()
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		if !entering {
			break
		}
		w.inline.WriteString(w.styled(string(n.Segment.Value(w.source))))
		if n.HardLineBreak() {
			w.inline.WriteString("\n")
		} else if n.SoftLineBreak() {
			w.inline.WriteString(" ")
		}

	case *ast.String:
		if entering {
			w.inline.WriteString(w.styled(string(n.Value)))
		}

	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if n.Level >= 2 {
			w.bold += delta
		} else {
			w.italic += delta
		}

	case *ast.CodeSpan:
		w.inline.WriteString(w.style().Foreground(w.theme.Accent).Render(string(n.Text(w.source))))
		return ast.WalkSkipChildren, nil

	case *ast.Link:
		if !entering {
			break
		}
		label := w.inlineOf(n)
		w.inline.WriteString(label)
		if dest := string(n.Destination); dest != "" && ansi.Strip(label) != dest {
			w.inline.WriteString(" " + w.faint("("+dest+")"))
		}
		return ast.WalkSkipChildren, nil

	case *ast.AutoLink:
		if entering {
			w.inline.WriteString(w.faint(string(n.URL(w.source))))
		}

	case *ast.Image:
		if entering {
			w.inline.WriteString(w.faint("[" + ansi.Strip(w.inlineOf(n)) + "]"))
		}
		return ast.WalkSkipChildren, nil

	case *extast.Strikethrough:
		if entering {
			w.strike++
		} else {
			w.strike--
		}

	case *extast.TaskCheckBox:
		if entering {
			box := "[ ] "
			if n.IsChecked {
				box = "[x] "
			}
			w.inline.WriteString(w.styled(box))
		}

	case *extast.Table:
		if entering {
			w.table(n)
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

// inlineOf renders the inline children of n without disturbing the
// paragraph being collected.
func (w *termWriter) inlineOf(n ast.Node) string {
	saved := w.inline.String()
	w.inline.Reset()
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		_ = ast.Walk(c, w.walk)
	}
	s := w.inline.String()
	w.inline.Reset()
	w.inline.WriteString(saved)
	return s
}

func (w *termWriter) heading(level int) {
	content := ansi.Strip(w.inline.String())
	w.inline.Reset()
	if content == "" {
		return
	}
	st := w.style().Bold(true).Foreground(w.theme.Text)
	if level <= 2 {
		st = st.Foreground(w.theme.Heading)
	}
	w.blank()
	w.write(w.prefixed(ansi.Wrap(st.Render(content), w.wrapWidth(), " -")))
	w.newline()
	w.blank()
}

func (w *termWriter) listItem() {
	top := &w.lists[len(w.lists)-1]
	mark := "• "
	if top.ordered {
		mark = fmt.Sprintf("%d. ", top.next)
		top.next++
	}
	w.bullet = w.prefix + mark
	w.pushIndent(strings.Repeat(" ", ansi.StringWidth(mark)))
}

func (w *termWriter) code(code, language string) {
	var lines []string
	if highlighted, ok := w.highlight(code, language); ok && language != MermaidLanguage {
		lines = strings.Split(strings.TrimRight(highlighted, "\n"), "\n")
	} else {
		// Styled line by line: lipgloss pads multi-line blocks to one width.
		raw := strings.Split(strings.TrimRight(code, "\n"), "\n")
		if language == MermaidLanguage {
			raw = append([]string{"[diagram]"}, raw...)
		}
		for _, line := range raw {
			lines = append(lines, w.faint(line))
		}
	}
	w.blank()
	for _, line := range lines {
		w.write(w.prefixed("  " + line))
		w.newline()
	}
	w.blank()
}

func (w *termWriter) highlight(code, language string) (string, bool) {
	if language == "" || w.profile == termenv.Ascii {
		return "", false
	}
	formatter := "terminal256"
	if w.profile == termenv.TrueColor {
		formatter = "terminal16m"
	}
	var b strings.Builder
	if err := quick.Highlight(&b, code, language, formatter, "monokai"); err != nil {
		return "", false
	}
	return b.String(), true
}

func (w *termWriter) table(t *extast.Table) {
	var rows [][]string
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, w.inlineOf(cell))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, cells := range rows {
		for i, c := range cells {
			if i < len(widths) {
				widths[i] = max(widths[i], ansi.StringWidth(c))
			}
		}
	}

	w.blank()
	for r, cells := range rows {
		parts := make([]string, len(widths))
		for i := range widths {
			var c string
			if i < len(cells) {
				c = cells[i]
			}
			parts[i] = c + strings.Repeat(" ", widths[i]-ansi.StringWidth(c))
		}
		line := ansi.Truncate(strings.Join(parts, "  "), w.wrapWidth(), "…")
		if r == 0 {
			line = w.style().Bold(true).Render(ansi.Strip(line))
		}
		w.write(w.prefixed(line))
		w.newline()
		if r == 0 {
			sep := make([]string, len(widths))
			for i, width := range widths {
				sep[i] = strings.Repeat("─", width)
			}
			w.write(w.prefixed(w.style().Foreground(w.theme.Border).Render(ansi.Truncate(strings.Join(sep, "  "), w.wrapWidth(), ""))))
			w.newline()
		}
	}
	w.blank()
}
