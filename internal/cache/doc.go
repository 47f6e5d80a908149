// Package cache coordinates data fetches under intermittent connectivity.
//
// # Overview
//
// The coordinator sits between callers and the remote API. Each logical
// resource is identified by a key; the caller supplies an opaque fetcher and
// the coordinator decides whether to serve from cache, fetch immediately,
// pause until connectivity returns, or give up.
//
// # Freshness Windows
//
//	fetchedAt            +StaleTime                +RetentionTime (since last use)
//	    │   fresh: serve      │  stale: serve cached,    │   gone: blocking
//	    │   from cache        │  refresh in background   │   fetch
//
// The retention window is measured from last use, so actively read resources
// stay servable indefinitely while idle ones age out.
//
// # Retry And Gating
//
// Failures retry with capped exponential backoff, min(base·2^attempt, cap),
// base 1s and cap 30s. Reads get three retries, writes one. Detected offline
// state never fails a request by itself: attempts pause and resume on
// reconnect, bounded only by the caller's context. Only an exhausted retry
// budget produces a terminal error, surfaced as ErrRetriesExhausted.
//
// # Deduplication
//
// Concurrent reads for the same key share one in-flight attempt via
// singleflight; every waiter observes the same resolution. Writes are never
// deduplicated or cached.
package cache
