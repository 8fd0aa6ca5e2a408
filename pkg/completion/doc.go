// Package completion provides a streaming client for OpenAI-compatible
// chat-completion endpoints (the default target is Groq's API).
//
// The streaming call is modeled as two explicit phases:
//
//   - Open performs the connect phase: it sends the request and waits for
//     response headers. Transient network failures in this phase are retried
//     with exponential backoff. A non-2xx status is fatal and surfaced as a
//     *StatusError carrying the upstream message.
//   - Stream.Recv performs the consume phase: it yields UTF-8 text fragments
//     parsed from the server-sent event stream. Failures here are never
//     retried, because fragments already delivered to the caller would be
//     duplicated or lost.
//
// A missing credential is detected at construction time, not at call time.
package completion
