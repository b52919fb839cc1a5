package paperdash

import "context"

// Health checks that the API is serving. The response body is returned
// verbatim.
func (c *Client) Health(ctx context.Context) (string, error) {
	var body string
	if err := c.doRequest(ctx, "GET", "/api/v1/health/", nil, &body); err != nil {
		return "", wrapError(err, "Health")
	}
	return body, nil
}

// HealthDB checks that the API can reach its database.
func (c *Client) HealthDB(ctx context.Context) (string, error) {
	var body string
	if err := c.doRequest(ctx, "GET", "/api/v1/health/db", nil, &body); err != nil {
		return "", wrapError(err, "HealthDB")
	}
	return body, nil
}
