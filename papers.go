package paperdash

import (
	"context"
	"net/url"
)

const (
	papersAPIPath = "/api/v1/academic-paper/all"
	paperAPIPath  = "/api/v1/academic-paper/paper"
	addPaperPath  = "/api/v1/academic-paper/add-sse"
)

// ListPapers retrieves one page of papers matching q.
func (c *Client) ListPapers(ctx context.Context, q ListQuery) (*PaperPage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fullURL, err := c.buildURL(papersAPIPath, q.Values())
	if err != nil {
		return nil, wrapError(err, "ListPapers")
	}

	var result PaperPage
	if err := c.doRequestWithURL(ctx, "GET", fullURL, nil, &result); err != nil {
		return nil, wrapError(err, "ListPapers")
	}

	return &result, nil
}

// GetPaper retrieves a single paper, including its long-form sections.
func (c *Client) GetPaper(ctx context.Context, id string) (*Paper, error) {
	if id == "" {
		return nil, &ValidationError{Field: "paper_id", Message: "must not be empty"}
	}
	fullURL, err := c.buildURL(paperAPIPath, url.Values{"paper_id": {id}})
	if err != nil {
		return nil, wrapError(err, "GetPaper")
	}

	var result Paper
	if err := c.doRequestWithURL(ctx, "GET", fullURL, nil, &result); err != nil {
		return nil, wrapError(err, "GetPaper")
	}

	return &result, nil
}
