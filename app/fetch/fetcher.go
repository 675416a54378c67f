package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request carries the feed URL plus the cached validators from the last
// successful fetch.
type Request struct {
	URL          string
	ETag         string
	LastModified string
}

// Result of a single fetch. When NotModified is set the body is empty and
// the stored validators remain current.
type Result struct {
	NotModified  bool
	Body         []byte
	ETag         string
	LastModified string
}

// Fetcher retrieves feed bodies with conditional GET, a per-request timeout
// and a response size cap. It never retries; retry policy belongs to the
// refresh scheduler across passes.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	timeout     time.Duration
	maxBodySize int64
}

func NewFetcher(client *http.Client, userAgent string, timeout time.Duration, maxBodySize int64) *Fetcher {
	return &Fetcher{
		client:      client,
		userAgent:   userAgent,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

func (f *Fetcher) Run(ctx context.Context, req Request) (*Result, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrUnreachable, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	if req.ETag != "" {
		httpReq.Header.Set("If-None-Match", req.ETag)
	}
	if req.LastModified != "" {
		httpReq.Header.Set("If-Modified-Since", req.LastModified)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{NotModified: true}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: ErrHTTPStatus, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, f.classify(ctx, err)
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, &FetchError{Kind: ErrTooLarge}
	}

	return &Result{
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

// classify maps transport errors to the fetch taxonomy. A caller-level
// cancellation is passed through untouched so an aborted refresh pass is
// not recorded as a feed failure.
func (f *Fetcher) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: ErrTimeout, Err: err}
	}
	return &FetchError{Kind: ErrUnreachable, Err: err}
}
