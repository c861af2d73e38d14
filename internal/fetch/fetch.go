// Package fetch resolves raw ingest input to plain text.
//
// A candidate string is classified as either a URL or literal text. URLs
// are fetched through an SSRF-guarded client and HTML pages are reduced to
// readable article text; non-HTML responses pass through unchanged.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/dulicode/better-prompts/internal/security"
)

// ErrFetch indicates a URL could not be fetched or its content could not
// be extracted. The error message carries the offending URL.
var ErrFetch = errors.New("content fetch failed")

const (
	// userAgent identifies this fetcher to origin servers.
	userAgent = "Better-Prompts-MCP/1.0 (+https://github.com/better-prompts/mcp)"

	// fetchTimeout bounds a whole page fetch. Pages are the slowest
	// dependency in the pipeline, so this is minutes where every other
	// call is seconds.
	fetchTimeout = 5 * time.Minute

	// maxBodySize caps a response body at 10 MB.
	maxBodySize = 10 << 20
)

// IsURL reports whether text is a well-formed absolute URL: it must carry
// both a scheme and a host. Anything else is treated as literal text.
func IsURL(text string) bool {
	u, err := url.Parse(text)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Fetcher fetches pages and extracts their readable text.
type Fetcher struct {
	validator *security.URL
	client    *http.Client
	logger    *slog.Logger
}

// New creates a Fetcher with an SSRF-guarded HTTP client.
func New(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	validator := security.NewURL()
	return &Fetcher{
		validator: validator,
		client: &http.Client{
			Transport:     validator.SafeTransport(),
			CheckRedirect: validator.ValidateRedirect,
			Timeout:       fetchTimeout,
		},
		logger: logger,
	}
}

// NewWithClient builds a Fetcher around a caller-supplied client and no
// URL validator; the caller owns transport hardening. Tests use this to
// reach loopback httptest servers, which the SSRF guard rightly blocks.
func NewWithClient(client *http.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// Resolve turns a candidate string into plain text. Literal text is
// returned as-is (trimmed); URLs are fetched and reduced.
func (f *Fetcher) Resolve(ctx context.Context, candidate string) (string, error) {
	trimmed := strings.TrimSpace(candidate)
	if !IsURL(trimmed) {
		return trimmed, nil
	}
	return f.fetch(ctx, trimmed)
}

// fetch retrieves the URL and extracts readable text from HTML responses.
func (f *Fetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	if f.validator != nil {
		if err := f.validator.Validate(pageURL); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: %s: status %d", ErrFetch, pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("%w: %s: reading body: %v", ErrFetch, pageURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(body, contentType) {
		f.logger.Debug("fetched non-HTML content", "url", pageURL, "content_type", contentType)
		return string(body), nil
	}

	text, err := extractReadableText(body, resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, pageURL, err)
	}

	f.logger.Debug("fetched page", "url", pageURL, "text_length", len(text))
	return text, nil
}

// isHTML detects HTML the way origin servers actually behave: by
// content-type when present, by sniffing the body prefix when absent.
func isHTML(body []byte, contentType string) bool {
	if strings.Contains(contentType, "text/html") || contentType == "" {
		return true
	}
	prefix := body
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	return bytes.Contains(bytes.ToLower(prefix), []byte("<html"))
}

// extractReadableText reduces an HTML page to its readable article text.
func extractReadableText(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("extracting readable content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("page has no extractable content")
	}
	return text, nil
}
