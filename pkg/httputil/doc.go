// Package httputil provides HTTP utilities for fetching map bundles.
//
// # Overview
//
// This package provides infrastructure used by the HTTP bundle source:
//
//   - [Client]: Cached, retrying HTTP GET with JSON decoding
//   - [Cache]: File-based HTTP response caching
//   - [Retry]: Automatic retry with exponential backoff
//
// # Caching
//
// [Cache] stores fetched documents in the filesystem (~/.cache/flatmap/)
// with configurable TTL. Map bundles change rarely, so caching dramatically
// speeds up repeated map loads and reduces load on map servers.
//
// Usage:
//
//	cache, err := httputil.NewCache("", 24*time.Hour)
//	var doc pathway.Document
//	ok, _ := cache.Get("whole-rat:pathways", &doc) // Check cache
//	if !ok {
//	    doc = fetchFromServer()
//	    cache.Set("whole-rat:pathways", doc)       // Store for later
//	}
//
// Cache keys should be namespaced by map id to avoid collisions.
//
// # Retry
//
// [Retry] wraps HTTP requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//
// It uses exponential backoff to avoid hammering a recovering server:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &doc)
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Cache directory: ~/.cache/flatmap/
//   - Max retries: 3
//   - Base backoff: 1 second
//   - Request timeout: 30 seconds
//
// The cache can be cleared via `flatmap cache clear` or by deleting the
// cache directory.
package httputil
