package paperdash

import (
	"context"
)

const (
	webSitesAPIPath      = "/api/v1/web_site/all_web_sites"
	articlesAPIPath      = "/api/v1/web_site/all_web_articles"
	articleStatusAPIPath = "/api/v1/web_site/update_web_article_status"
)

// ListArticles retrieves one page of web articles matching q.
func (c *Client) ListArticles(ctx context.Context, q ListQuery) (*ArticlePage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	fullURL, err := c.buildURL(articlesAPIPath, q.Values())
	if err != nil {
		return nil, wrapError(err, "ListArticles")
	}

	var result ArticlePage
	if err := c.doRequestWithURL(ctx, "GET", fullURL, nil, &result); err != nil {
		return nil, wrapError(err, "ListArticles")
	}

	return &result, nil
}

// ListWebSites retrieves one page of crawled sites. Only Limit and Offset
// of q are used.
func (c *Client) ListWebSites(ctx context.Context, q ListQuery) (*WebSitePage, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	paging := ListQuery{Limit: q.Limit, Offset: q.Offset}
	fullURL, err := c.buildURL(webSitesAPIPath, paging.Values())
	if err != nil {
		return nil, wrapError(err, "ListWebSites")
	}

	var result WebSitePage
	if err := c.doRequestWithURL(ctx, "GET", fullURL, nil, &result); err != nil {
		return nil, wrapError(err, "ListWebSites")
	}

	return &result, nil
}

type articleStatusRequest struct {
	ArticleID string `json:"article_id"`
	Status    Status `json:"status"`
}

// UpdateArticleStatus changes the reading status of one article.
func (c *Client) UpdateArticleStatus(ctx context.Context, articleID string, status Status) error {
	if articleID == "" {
		return &ValidationError{Field: "article_id", Message: "must not be empty"}
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown status " + string(status)}
	}

	body := articleStatusRequest{ArticleID: articleID, Status: status}
	if err := c.doRequest(ctx, "POST", articleStatusAPIPath, body, nil); err != nil {
		return wrapError(err, "UpdateArticleStatus")
	}
	return nil
}
