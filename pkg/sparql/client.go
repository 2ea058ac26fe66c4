// Package sparql downloads SPARQL query results as CSV from a public
// knowledge-base endpoint such as the Wikidata query service.
package sparql

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recordlink/internal/fetcher"
)

// DefaultEndpoint is the Wikidata query service.
const DefaultEndpoint = "https://query.wikidata.org/sparql"

// StatusError is returned when the endpoint answers with a non-200 status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sparql: failed to retrieve data: status code %d", e.StatusCode)
}

// Client runs SPARQL queries.
type Client struct {
	endpoint string
	fetcher  fetcher.Fetcher
}

// Option configures the client.
type Option func(*Client)

// WithEndpoint sets a custom endpoint URL (for testing).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithFetcher sets the fetcher used for requests.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// NewClient creates a client for the default endpoint. Requests are made once
// and never retried.
func NewClient(opts ...Option) *Client {
	c := &Client{endpoint: DefaultEndpoint}
	for _, o := range opts {
		o(c)
	}
	if c.fetcher == nil {
		c.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{MaxAttempts: 1})
	}
	return c
}

// DownloadCSV runs query and writes the CSV result to dest. dest is only
// created on a 200 response.
func (c *Client) DownloadCSV(ctx context.Context, query, dest string) error {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return eris.Wrap(err, "sparql: parse endpoint")
	}
	q := u.Query()
	q.Set("query", query)
	u.RawQuery = q.Encode()

	log := zap.L().With(zap.String("component", "sparql"), zap.String("endpoint", c.endpoint))

	n, err := c.fetcher.DownloadToFile(ctx, u.String(), http.Header{"Accept": {"text/csv"}}, dest)
	if err != nil {
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			log.Error("failed to retrieve data", zap.Int("status", se.StatusCode))
			return &StatusError{StatusCode: se.StatusCode}
		}
		return eris.Wrap(err, "sparql: download csv")
	}

	log.Info("query results saved", zap.String("path", dest), zap.Int64("bytes", n))
	return nil
}
