// Package weburl provides secure fetching of remote requirement documents.
//
// # Overview
//
// Requirement documents can live at HTTPS URLs instead of on the local
// filesystem. This package implements the security validation needed to
// fetch them without opening an SSRF (Server-Side Request Forgery) hole,
// plus slug generation so remote documents get stable local names.
//
// # URL Validation
//
// The ValidateURL function checks URLs against multiple security criteria:
//
//   - Requires HTTPS scheme
//   - Blocks localhost variants (localhost, 127.0.0.1, ::1)
//   - Blocks local domains (.local, .internal)
//   - Blocks private IP ranges (RFC 1918, CGNAT, link-local)
//
// # IP Address Handling
//
// The IsPrivateIP function detects private/reserved IP addresses including:
//
//   - IPv4 private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - IPv4 loopback (127.0.0.0/8)
//   - IPv4 link-local (169.254.0.0/16)
//   - CGNAT range (100.64.0.0/10)
//   - IPv6 loopback (::1)
//   - IPv6 unique local (fc00::/7)
//   - IPv6 link-local (fe80::/10)
//   - IPv6-mapped IPv4 addresses (::ffff:x.x.x.x)
//
// CIDRs are pre-compiled at package initialization for efficiency.
//
// # Fetching
//
// Fetcher retrieves documents with defense in depth: the URL is validated
// before connecting, every redirect target is re-validated, the dialer
// resolves DNS itself and refuses private IPs (closing the DNS rebinding
// gap), and response bodies are capped at a configured maximum size.
//
// # Document Slugs
//
// DocumentSlug derives readable, filesystem-safe names from URLs:
//
//	https://example.com/docs/guide → example-com-docs-guide
//
// Slugs are:
//   - Lowercase with hyphens as separators
//   - Truncated to 80 characters maximum
//   - Deterministic (same URL always produces same slug)
//
// For invalid URLs, a hash-based fallback slug is generated.
//
// # Usage
//
//	import "github.com/c360studio/semaudit/source/weburl"
//
//	fetcher := weburl.NewFetcher(0, "", 0) // defaults
//	result, err := fetcher.Fetch(ctx, "https://example.com/requirements.yaml")
//	if err != nil {
//	    return err
//	}
//
//	name := weburl.DocumentSlug("https://example.com/requirements.yaml")
//	// Returns: "example-com-requirements-yaml"
package weburl
