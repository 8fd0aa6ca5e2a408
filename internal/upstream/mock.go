// Package upstream provides a scripted OpenAI-compatible mock endpoint for
// tests that exercise the completion client and the chat pipeline.
package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
)

// Script describes how the mock endpoint behaves for a request.
type Script struct {
	// Fragments are streamed one SSE record each, terminated by [DONE].
	Fragments []string

	// Status, when not 0 and not 200, is returned with ErrorMessage as an
	// OpenAI-style error body instead of a stream.
	Status int

	// ErrorMessage is the error body text used with a non-200 Status.
	ErrorMessage string

	// Drop severs the connection after DropAfter fragments instead of
	// finishing the stream with [DONE].
	Drop      bool
	DropAfter int

	// RefuseConnects makes the first N requests fail at the network level
	// by closing the connection before writing a response.
	RefuseConnects int

	// RawRecords, when set, are written verbatim as SSE lines instead of
	// encoding Fragments. Useful for malformed-record tests.
	RawRecords []string
}

// Server is a scripted mock completion endpoint.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	script   Script
	requests atomic.Int64
	refused  atomic.Int64

	// LastBody holds the most recent decoded request body.
	LastBody map[string]any
}

// NewServer starts a mock endpoint with the given script. Callers own the
// returned server and must Close it.
func NewServer(script Script) *Server {
	s := &Server{script: script}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Requests returns how many requests reached the endpoint, refused included.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

// SetScript replaces the script for subsequent requests.
func (s *Server) SetScript(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	s.mu.Lock()
	script := s.script
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
		s.LastBody = body
	}
	s.mu.Unlock()

	if s.refused.Load() < int64(script.RefuseConnects) {
		s.refused.Add(1)
		abort(w)
		return
	}

	if script.Status != 0 && script.Status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(script.Status)
		fmt.Fprintf(w, `{"error":{"message":%q,"type":"invalid_request_error"}}`, script.ErrorMessage)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	if len(script.RawRecords) > 0 {
		for _, rec := range script.RawRecords {
			fmt.Fprintf(w, "%s\n\n", rec)
		}
		flush()
		return
	}

	for i, frag := range script.Fragments {
		if script.Drop && i >= script.DropAfter {
			break
		}
		fmt.Fprintf(w, "data: %s\n\n", chunk(frag))
		flush()
	}

	if script.Drop {
		flush()
		abort(w)
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flush()
}

// chunk builds one OpenAI-style streaming record carrying a content delta.
func chunk(content string) string {
	record := map[string]any{
		"id":    "chatcmpl-test",
		"model": "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"delta": map[string]string{"content": content},
			},
		},
	}
	raw, _ := json.Marshal(record)
	return string(raw)
}

// abort severs the connection without a clean HTTP close so clients observe
// a network-level failure.
func abort(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
