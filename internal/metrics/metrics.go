// Package metrics exposes process counters through expvar.
package metrics

import (
	"expvar"
)

var (
	// RequestsTotal counts HTTP requests issued by the API client
	RequestsTotal = expvar.NewInt("requests_total")

	// RequestErrorsTotal counts requests that failed or returned non-2xx
	RequestErrorsTotal = expvar.NewInt("request_errors_total")

	// PagesLoaded counts list pages appended or replaced by a loader
	PagesLoaded = expvar.NewInt("pages_loaded_total")

	// LoadMoreSkipped counts load-more calls dropped by the re-entrancy guard
	LoadMoreSkipped = expvar.NewInt("load_more_skipped_total")

	// LoadMoreFailed counts load-more fetches that failed and were only logged
	LoadMoreFailed = expvar.NewInt("load_more_failed_total")

	// SessionsStarted counts add-paper progress streams opened
	SessionsStarted = expvar.NewInt("progress_sessions_started_total")

	// SessionsCompleted counts streams that reached the terminal event
	SessionsCompleted = expvar.NewInt("progress_sessions_completed_total")

	// SessionsFailed counts streams that ended in a parse or transport error
	SessionsFailed = expvar.NewInt("progress_sessions_failed_total")

	// SessionsCancelled counts streams closed by the caller
	SessionsCancelled = expvar.NewInt("progress_sessions_cancelled_total")

	// CacheHits counts detail lookups served from the local cache
	CacheHits = expvar.NewInt("cache_hits_total")

	// CacheMisses counts detail lookups that went to the server
	CacheMisses = expvar.NewInt("cache_misses_total")
)
