package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jason-riddle/paperdash"
)

// PaperOptions selects the optional parts of a paper document.
type PaperOptions struct {
	FullText bool // append the extracted paper text
	Notes    []paperdash.Note
}

// paperSections are the long-form sections in display order.
var paperSections = []struct {
	title string
	text  func(*paperdash.Paper) string
}{
	{"Summary", func(p *paperdash.Paper) string { return p.Summary }},
	{"Abstract", func(p *paperdash.Paper) string { return p.AbstractText }},
	{"Background & Research Question", func(p *paperdash.Paper) string { return p.BackgroundAndPurpose }},
	{"Methodology", func(p *paperdash.Paper) string { return p.Methodology }},
	{"Dataset", func(p *paperdash.Paper) string { return p.Dataset }},
	{"Experiment Overview and Results", func(p *paperdash.Paper) string { return p.Results }},
	{"Future Works", func(p *paperdash.Paper) string { return p.AdvantagesLimitations }},
}

// PaperMarkdown assembles the detail view of p as one markdown document.
// Sections without content are left out.
func PaperMarkdown(p *paperdash.Paper, opts PaperOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.TrimSpace(p.Title))

	if meta := paperMeta(p); len(meta) > 0 {
		b.WriteString(strings.Join(meta, " · "))
		b.WriteString("\n\n")
	}
	if p.URL != "" {
		fmt.Fprintf(&b, "<%s>\n\n", p.URL)
	}

	for _, s := range paperSections {
		writeSection(&b, s.title, s.text(p))
	}
	if opts.FullText {
		writeSection(&b, "Full Text", p.Text)
	}

	if len(opts.Notes) > 0 {
		b.WriteString("## Notes\n\n")
		for _, n := range opts.Notes {
			text := strings.TrimSpace(n.Text)
			if text == "" {
				continue
			}
			if !n.Timestamp.IsZero() {
				fmt.Fprintf(&b, "*%s*\n\n", n.Timestamp.Time().Format("2006-01-02 15:04"))
			}
			b.WriteString(text)
			b.WriteString("\n\n---\n\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func paperMeta(p *paperdash.Paper) []string {
	var meta []string
	if len(p.Authors) > 0 {
		names := make([]string, 0, len(p.Authors))
		for _, a := range p.Authors {
			names = append(names, a.Name)
		}
		if len(names) > 5 {
			names = append(names[:5], fmt.Sprintf("and %d more", len(p.Authors)-5))
		}
		meta = append(meta, strings.Join(names, ", "))
	}
	if !p.PublishedDate.IsZero() {
		meta = append(meta, p.PublishedDate.Time().Format("2006-01-02"))
	}
	if p.Journal != nil && p.Journal.Name != "" {
		meta = append(meta, p.Journal.Name)
	}
	if p.PrimaryCategory != "" {
		meta = append(meta, "`"+p.PrimaryCategory+"`")
	}
	if p.CitationCount > 0 {
		meta = append(meta, humanize.Comma(int64(p.CitationCount))+" citations")
	}
	return meta
}

func writeSection(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, body)
}

// Age formats t relative to now the way list views show it.
func Age(d paperdash.Date) string {
	if d.IsZero() {
		return "-"
	}
	return humanize.Time(d.Time())
}
