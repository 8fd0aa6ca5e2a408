// Package api exposes the chat service over HTTP.
//
// Two delivery modes are offered for the same chat pipeline: a
// request/response endpoint (POST /chat) that returns both persisted turns
// after the exchange completes, and a WebSocket endpoint (/ws/chat) that
// relays fragments as they arrive. Around them sits a small REST surface for
// conversation management, history, statistics, health, and credential
// validation.
//
// All error responses use the body {"detail": "..."}.
package api
