// Parley is a persistent chat backend for LLM conversations.
//
// It stores conversations and messages durably, relays completions from an
// OpenAI-compatible streaming API, and serves the result over two delivery
// modes:
//   - Request/response: POST /chat returns the full exchange
//   - Streaming: /ws/chat relays fragments over a WebSocket as they arrive
//
// Usage:
//
//	# Start server with default configuration
//	parley run
//
//	# Start with custom configuration file
//	parley run --config /path/to/config.yaml
//
//	# Check the upstream API credential
//	parley validate-key
//
//	# Show version information
//	parley version
package main

func main() {
	Execute()
}
