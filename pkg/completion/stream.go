package completion

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
)

// Stream reads text fragments from a server-sent event response body.
// It is lazy, finite, and non-restartable: the consume phase is never
// retried. A Stream is not safe for concurrent use.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	logger  *slog.Logger
	closed  bool
	done    bool
}

// newStream wraps a streaming response body.
func newStream(body io.ReadCloser, logger *slog.Logger) *Stream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Stream{
		body:    body,
		scanner: scanner,
		logger:  logger,
	}
}

// Recv returns the next text fragment.
//
// It returns io.EOF when the stream ends normally (the "[DONE]" sentinel or
// connection close) and a *StreamError on mid-stream failure. Records that
// fail to parse are skipped and logged, not fatal. Only records carrying
// delta content are surfaced.
func (s *Stream) Recv(ctx context.Context) (string, error) {
	if s.done || s.closed {
		return "", io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", &StreamError{Message: "failed to read stream", Cause: err}
			}
			s.done = true
			return "", io.EOF
		}

		line := s.scanner.Text()
		if line == "" {
			continue
		}

		// Skip comments, event types, and other non-data records.
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if data == "[DONE]" {
			s.done = true
			return "", io.EOF
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			s.logger.Warn("skipping unparseable stream record", "error", err)
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		return content, nil
	}
}

// Close releases the underlying network connection. It is safe to call at
// any time, including before the stream is exhausted, and more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.body == nil {
		return nil
	}
	return s.body.Close()
}
