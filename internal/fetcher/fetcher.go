// Package fetcher downloads remote data and streams delimited or spreadsheet
// rows for the table loaders.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download issues a GET and returns the response body. header is merged
	// into the request; non-200 responses return a *StatusError.
	Download(ctx context.Context, url string, header http.Header) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes the body to path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, header http.Header, path string) (int64, error)
}

// StatusError reports a response with an unexpected HTTP status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}
