// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// Middleware functions are chained outermost to innermost as
//
//	handler = Recovery(RequestID(Logging(CORS(handler))))
//
// Recovery converts handler panics into 500 responses, RequestID assigns a
// correlation ID, Logging records method, path, status, and latency with
// structured logging, and CORS emits Cross-Origin Resource Sharing headers
// based on configuration.
package middleware
