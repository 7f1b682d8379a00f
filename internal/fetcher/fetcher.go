// Package fetcher downloads reference datasets over HTTP. Requests are
// throttled per host, retried on transient failures and can be made
// conditional on an ETag.
package fetcher

import (
	"context"
	"io"
)

// Response is the outcome of a conditional download. Body is nil when the
// server still holds the requested ETag.
type Response struct {
	Body        io.ReadCloser
	ETag        string
	NotModified bool
}

// Fetcher downloads remote documents.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// Revalidate downloads url unless the server answers 304 for etag.
	// An empty etag makes the request unconditional.
	Revalidate(ctx context.Context, url, etag string) (*Response, error)
}
