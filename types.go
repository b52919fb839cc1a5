package paperdash

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Date is a timestamp that accepts both date-only ("2006-01-02") and
// RFC3339 encodings. Dates without a time-of-day are encoded back in
// date-only form.
type Date time.Time

// Time returns the underlying time.Time.
func (d Date) Time() time.Time {
	return time.Time(d)
}

// IsZero reports whether d is the zero time.
func (d Date) IsZero() bool {
	return time.Time(d).IsZero()
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	*d = Date(t)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	t := time.Time(d)
	if t.IsZero() {
		return []byte("null"), nil
	}
	if t.Equal(t.Truncate(24*time.Hour)) && t.Location() == time.UTC {
		return json.Marshal(t.Format(time.DateOnly))
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("date: unsupported format %q", s)
}

// Status is the reading status of a web article.
type Status string

const (
	StatusNew      Status = "new"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusNew || s == StatusArchived
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q (want new or archived)", s)}
	}
	return st, nil
}

// Author is a paper author.
type Author struct {
	AuthorID string `json:"author_id"`
	SSID     string `json:"ss_id,omitempty"`
	Name     string `json:"name"`
	HIndex   *int   `json:"h_index,omitempty"`
}

// Task is a research task a paper addresses.
type Task struct {
	TaskID string `json:"task_id"`
	Name   string `json:"name"`
}

// Journal is the venue a paper was published in.
type Journal struct {
	JournalID string `json:"journal_id"`
	Name      string `json:"name"`
}

// Paper represents an academic paper.
type Paper struct {
	PaperID                  string   `json:"paper_id"`
	SSID                     string   `json:"ss_id,omitempty"`
	ArxivID                  string   `json:"arxiv_id,omitempty"`
	DOI                      string   `json:"doi,omitempty"`
	Title                    string   `json:"title"`
	AbstractText             string   `json:"abstract_text,omitempty"`
	Authors                  []Author `json:"authors,omitempty"`
	Tasks                    []Task   `json:"tasks,omitempty"`
	PrimaryCategory          string   `json:"primary_category,omitempty"`
	PublishedDate            Date     `json:"published_date"`
	CreatedAt                Date     `json:"created_at"`
	UpdatedAt                Date     `json:"updated_at"`
	Journal                  *Journal `json:"journal,omitempty"`
	Text                     string   `json:"text,omitempty"`
	URL                      string   `json:"url,omitempty"`
	CitationCount            int      `json:"citation_count"`
	ReferenceCount           int      `json:"reference_count"`
	InfluentialCitationCount int      `json:"influential_citation_count"`
	Bibtex                   string   `json:"bibtex,omitempty"`
	Summary                  string   `json:"summary,omitempty"`
	BackgroundAndPurpose     string   `json:"background_and_purpose,omitempty"`
	Methodology              string   `json:"methodology,omitempty"`
	Dataset                  string   `json:"dataset,omitempty"`
	Results                  string   `json:"results,omitempty"`
	AdvantagesLimitations    string   `json:"advantages_limitations_and_future_work,omitempty"`
	Status                   string   `json:"status,omitempty"`

	// Extra holds fields the server sent that this client does not model.
	Extra Extra `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler, preserving unknown fields.
func (p *Paper) UnmarshalJSON(data []byte) error {
	type plain Paper
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	extra, err := splitExtra(data, plain{})
	p.Extra = extra
	return err
}

// MarshalJSON implements json.Marshaler, re-emitting unknown fields.
func (p Paper) MarshalJSON() ([]byte, error) {
	type plain Paper
	data, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, p.Extra)
}

// Article represents a crawled web article.
type Article struct {
	SiteID                    string `json:"site_id"`
	SiteName                  string `json:"site_name,omitempty"`
	SiteURL                   string `json:"site_url,omitempty"`
	ArticleID                 string `json:"article_id"`
	Title                     string `json:"title"`
	Description               string `json:"description,omitempty"`
	URL                       string `json:"url"`
	Text                      string `json:"text,omitempty"`
	HTML                      string `json:"html,omitempty"`
	Timestamp                 Date   `json:"timestamp"`
	Summary                   string `json:"summary,omitempty"`
	IsNewTechnologyRelated    bool   `json:"is_new_technology_related"`
	IsNewAcademicPaperRelated bool   `json:"is_new_academic_paper_related"`
	IsAIRelated               bool   `json:"is_ai_related"`
	IsITRelated               bool   `json:"is_it_related"`
	IsNewProductRelated       bool   `json:"is_new_product_related"`
	IsSecurityRelated         bool   `json:"is_security_related"`
	Status                    Status `json:"status,omitempty"`

	Extra Extra `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler, preserving unknown fields.
func (a *Article) UnmarshalJSON(data []byte) error {
	type plain Article
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	extra, err := splitExtra(data, plain{})
	a.Extra = extra
	return err
}

// MarshalJSON implements json.Marshaler, re-emitting unknown fields.
func (a Article) MarshalJSON() ([]byte, error) {
	type plain Article
	data, err := json.Marshal(plain(a))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, a.Extra)
}

// WebSite is a crawled site.
type WebSite struct {
	SiteID string `json:"site_id"`
	Name   string `json:"name"`
	URL    string `json:"url"`

	Extra Extra `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler, preserving unknown fields.
func (w *WebSite) UnmarshalJSON(data []byte) error {
	type plain WebSite
	if err := json.Unmarshal(data, (*plain)(w)); err != nil {
		return err
	}
	extra, err := splitExtra(data, plain{})
	w.Extra = extra
	return err
}

// MarshalJSON implements json.Marshaler, re-emitting unknown fields.
func (w WebSite) MarshalJSON() ([]byte, error) {
	type plain WebSite
	data, err := json.Marshal(plain(w))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, w.Extra)
}

// Note is a free-text memo attached to a paper.
type Note struct {
	NoteID    string `json:"paper_note_id"`
	PaperID   string `json:"paper_id,omitempty"`
	Text      string `json:"text"`
	Timestamp Date   `json:"note_timestamp"`

	Extra Extra `json:"-"`
}

// UnmarshalJSON implements json.Unmarshaler, preserving unknown fields.
func (n *Note) UnmarshalJSON(data []byte) error {
	type plain Note
	if err := json.Unmarshal(data, (*plain)(n)); err != nil {
		return err
	}
	extra, err := splitExtra(data, plain{})
	n.Extra = extra
	return err
}

// MarshalJSON implements json.Marshaler, re-emitting unknown fields.
func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	data, err := json.Marshal(plain(n))
	if err != nil {
		return nil, err
	}
	return mergeExtra(data, n.Extra)
}

// Page is one page of a paginated list response.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total,omitempty"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// PaperPage is a page of papers.
type PaperPage = Page[Paper]

// ArticlePage is a page of web articles.
type ArticlePage = Page[Article]

// WebSitePage is a page of web sites.
type WebSitePage = Page[WebSite]

// ProgressEvent is one message of the add-paper progress stream.
type ProgressEvent struct {
	Progress int    `json:"progress"`
	Message  string `json:"message"`
	Paper    *Paper `json:"paper,omitempty"`
}

// Terminal reports whether e is the final event of its stream.
func (e ProgressEvent) Terminal() bool {
	return e.Progress == 100
}

// AddPaperRequest is the payload of the add-paper stream.
type AddPaperRequest struct {
	Title  string
	PDFURL string
}

// Validate checks the request before any connection is opened.
func (r AddPaperRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Message: "must not be empty"}
	}
	if strings.TrimSpace(r.PDFURL) == "" {
		return &ValidationError{Field: "pdf_url", Message: "must not be empty"}
	}
	u, err := url.Parse(r.PDFURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "pdf_url", Message: fmt.Sprintf("%q is not an http(s) URL", r.PDFURL)}
	}
	return nil
}
