// Package chat implements the session orchestrator: the component that
// resolves a conversation, persists the user turn, drives a streaming
// completion call, relays fragments to a delivery adapter, and persists
// exactly one assistant turn per request.
//
// A request moves through the states resolving, persisting-user-turn,
// streaming, persisting-assistant-turn, completed. Failures before the user
// turn is persisted abort the request with a *RequestError and leave no
// trace in the store. Failures after it, during the history read or the
// stream itself, are recovered locally: the
// accumulated partial output (or a fixed fallback text if nothing was
// accumulated) is persisted as the assistant turn, the stream error is
// reported to the adapter as a non-fatal event, and the request still
// completes at the protocol level.
//
// The orchestrator keeps no state across requests; each invocation owns its
// own accumulator. Concurrent requests against the same conversation are not
// serialized; each append is atomic and the store-assigned order is
// authoritative.
package chat
