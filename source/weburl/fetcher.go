package weburl

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Default fetch limits for remote requirement documents.
const (
	DefaultFetchTimeout   = 30 * time.Second
	DefaultMaxContentSize = 10 * 1024 * 1024 // 10MB
	DefaultUserAgent      = "semaudit/1.0"
)

// FetchResult contains the fetched document content and metadata.
type FetchResult struct {
	Body        []byte
	ContentType string
}

// Fetcher retrieves remote requirement documents over HTTPS with
// security restrictions: URL validation, redirect checking, DNS
// resolution guarding against private IPs, and content size limits.
type Fetcher struct {
	client         *http.Client
	userAgent      string
	maxContentSize int64
}

// NewFetcher creates a fetcher with the given timeout, user agent, and
// maximum content size in bytes. Zero values select the defaults.
func NewFetcher(timeout time.Duration, userAgent string, maxContentSize int64) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if maxContentSize <= 0 {
		maxContentSize = DefaultMaxContentSize
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           safeDialContext(dialer),
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			// Re-validate each redirect target so a trusted host
			// cannot bounce the fetch to an internal address.
			if err := ValidateURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}

	return &Fetcher{
		client:         client,
		userAgent:      userAgent,
		maxContentSize: maxContentSize,
	}
}

// safeDialContext returns a DialContext that resolves the host first and
// refuses to connect to private IPs. This closes the DNS rebinding gap
// left by validating the URL string alone.
func safeDialContext(dialer *net.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("DNS lookup failed for %q: %w", host, err)
		}

		for _, ip := range ips {
			if IsPrivateIP(ip.IP) {
				return nil, fmt.Errorf("connection to private IP %s blocked", ip.IP)
			}
		}

		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
	}
}

// Fetch retrieves a remote document. The URL is validated before any
// connection is made, and the response body is capped at the configured
// maximum size.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("validate %s: %w", rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/markdown, application/yaml, text/html, text/plain;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	// Read one byte past the limit so an oversized body is detected
	// rather than silently truncated.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxContentSize {
		return nil, fmt.Errorf("document exceeds maximum size of %d bytes", f.maxContentSize)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
