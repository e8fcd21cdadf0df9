// Package http provides the sandbox REST backend: an HTTP server that speaks
// the dialect the data provider targets, backed by a record.Store.
//
// # Usage
//
//	store := memory.NewRecordStore()
//	records := service.NewRecordService(store, logger)
//	srv := http.NewServer(records,
//	    http.WithAddr("127.0.0.1:3000"),
//	    http.WithLogger(logger),
//	    http.WithHealthChecker(http.NewHealthChecker(store, version)),
//	)
//	err := srv.Start(ctx)
//
// # Endpoints
//
//	GET    /{resource}       - list; query params limit, skip, query (JSON object), sort ("-field" descends)
//	POST   /{resource}       - create; body is a JSON object, _id generated when absent
//	GET    /{resource}/{id}  - fetch one
//	PATCH  /{resource}/{id}  - merge top-level fields into the document
//	DELETE /{resource}/{id}  - remove and return the document
//	GET    /health           - store health as JSON
//	GET    /metrics          - Prometheus metrics
//
// Errors are returned as {"error": "..."} with 400 for malformed input,
// 404 for unknown documents, 409 for duplicate IDs, 429 when a client is
// throttled and 500 otherwise.
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - Records duration and status
//  2. RequestIDMiddleware - Extracts or generates X-Request-ID and enriches the logger
//  3. TracingMiddleware - Continues the caller's W3C trace
//  4. RateLimitMiddleware - Throttles per client address (WithRateLimit)
//  5. RecoverMiddleware - Converts handler panics into 500 responses
//  6. Handler - Routes to the record service
package http
