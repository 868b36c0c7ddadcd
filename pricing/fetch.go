package pricing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultURL points at the canonical hosted pricing document.
	DefaultURL = "https://raw.githubusercontent.com/llmmeter/pricing/main/pricing.json"

	defaultFetchTimeout = 5 * time.Second
	maxDocumentSize     = 4 << 20
)

// Fetcher retrieves the remote pricing document once at initialization time.
type Fetcher struct {
	client  *http.Client
	url     string
	timeout time.Duration
	logger  *slog.Logger
}

// FetchOption customizes a Fetcher.
type FetchOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client used for the fetch.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds the whole fetch.
func WithTimeout(timeout time.Duration) FetchOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for fetch degradation warnings.
func WithLogger(logger *slog.Logger) FetchOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFetcher(url string, opts ...FetchOption) *Fetcher {
	if url == "" {
		url = DefaultURL
	}
	fetcher := &Fetcher{
		client:  http.DefaultClient,
		url:     url,
		timeout: defaultFetchTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(fetcher)
	}
	return fetcher
}

// Fetch downloads and decodes the pricing document. On any failure it returns
// an empty table: cost attribution degrades to zero instead of blocking the
// instrumented application's startup.
func (f *Fetcher) Fetch(ctx context.Context) Table {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	table, err := f.fetch(ctx)
	if err != nil {
		f.logger.Warn("pricing fetch failed, costs default to zero", "url", f.url, "error", err)
		return Empty()
	}
	return table
}

func (f *Fetcher) fetch(ctx context.Context) (Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return Table{}, fmt.Errorf("build pricing request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch pricing document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("fetch pricing document: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return Table{}, fmt.Errorf("read pricing document: %w", err)
	}

	return Load(body)
}
