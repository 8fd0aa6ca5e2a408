// Package server runs the HTTP server hosting the chat API.
//
// The server wraps the API router in the standard middleware chain
// (recovery, request ID, logging, CORS), optionally mounts the Prometheus
// exposition endpoint, and handles graceful shutdown on SIGINT/SIGTERM or
// context cancellation.
package server
