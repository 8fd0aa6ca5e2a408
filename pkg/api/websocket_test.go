package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"parleyhq/parley/pkg/config"
	"parleyhq/parley/pkg/server"
	"parleyhq/parley/pkg/store"
)

func dialWS(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return frame
}

func TestWebSocketStreamsFragments(t *testing.T) {
	h, ts := newTestHandler(t, []string{"Hello", ", ", "world!"}, nil)
	conn := dialWS(t, h)

	if err := conn.WriteJSON(map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Initial streaming frame announces the conversation with empty text.
	first := readFrame(t, conn)
	if first.Status != "streaming" || first.Text != "" {
		t.Fatalf("first frame = %+v, want empty streaming frame", first)
	}
	if first.ConversationID == 0 {
		t.Fatal("expected a conversation id in the first frame")
	}

	var got strings.Builder
	var final wsFrame
	for {
		frame := readFrame(t, conn)
		if frame.Status != "streaming" {
			final = frame
			break
		}
		got.WriteString(frame.Text)
		if frame.ConversationID != first.ConversationID {
			t.Errorf("fragment frame carries conversation %d, want %d",
				frame.ConversationID, first.ConversationID)
		}
	}

	if got.String() != "Hello, world!" {
		t.Errorf("streamed text = %q, want %q", got.String(), "Hello, world!")
	}
	if final.Status != "complete" || final.ConversationID != first.ConversationID {
		t.Errorf("final frame = %+v, want complete", final)
	}

	// The transcript holds exactly the two turns of this exchange.
	msgs, _ := ts.ListMessages(context.Background(), first.ConversationID)
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[1].Content != "Hello, world!" {
		t.Errorf("assistant turn = %q", msgs[1].Content)
	}
}

// The upgrade must survive the full production middleware chain, whose
// logging writer wraps the response.
func TestWebSocketThroughServerMiddleware(t *testing.T) {
	h, ts := newTestHandler(t, []string{"pong"}, nil)
	srv := server.New(config.Default().Server, h.Routes(), "/metrics", nil)

	httpSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(httpSrv.Close)

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial through middleware chain failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(map[string]any{"message": "ping"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var got strings.Builder
	var final wsFrame
	for {
		frame := readFrame(t, conn)
		if frame.Status != "streaming" {
			final = frame
			break
		}
		got.WriteString(frame.Text)
	}

	if got.String() != "pong" {
		t.Errorf("streamed text = %q, want %q", got.String(), "pong")
	}
	if final.Status != "complete" {
		t.Errorf("final frame = %+v, want complete", final)
	}

	msgs, _ := ts.ListMessages(context.Background(), final.ConversationID)
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
}

func TestWebSocketSequentialExchanges(t *testing.T) {
	h, _ := newTestHandler(t, []string{"reply"}, nil)
	conn := dialWS(t, h)

	// First exchange creates the conversation.
	if err := conn.WriteJSON(map[string]any{"message": "one"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var convID int64
	for {
		frame := readFrame(t, conn)
		convID = frame.ConversationID
		if frame.Status == "complete" {
			break
		}
	}

	// Second exchange reuses it.
	if err := conn.WriteJSON(map[string]any{"message": "two", "conversation_id": convID}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	for {
		frame := readFrame(t, conn)
		if frame.ConversationID != convID {
			t.Errorf("frame conversation = %d, want %d", frame.ConversationID, convID)
		}
		if frame.Status == "complete" {
			break
		}
	}
}

func TestWebSocketErrorFramesKeepConnectionOpen(t *testing.T) {
	h, _ := newTestHandler(t, []string{"later"}, nil)
	conn := dialWS(t, h)

	// Malformed JSON.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("{nope")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frame := readFrame(t, conn)
	if frame.Status != "error" || frame.Error != "Invalid message format" {
		t.Errorf("frame = %+v, want invalid format error", frame)
	}

	// Empty message.
	if err := conn.WriteJSON(map[string]any{"message": "   "}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frame = readFrame(t, conn)
	if frame.Status != "error" {
		t.Errorf("frame = %+v, want error frame", frame)
	}

	// Unknown conversation.
	if err := conn.WriteJSON(map[string]any{"message": "hi", "conversation_id": 999}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frame = readFrame(t, conn)
	if frame.Status != "error" || frame.ConversationID != 999 {
		t.Errorf("frame = %+v, want error carrying conversation 999", frame)
	}

	// The connection is still usable after all three failures.
	if err := conn.WriteJSON(map[string]any{"message": "still alive"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	frame = readFrame(t, conn)
	if frame.Status != "streaming" {
		t.Errorf("frame = %+v, want streaming frame", frame)
	}
}

func TestWebSocketStreamFailure(t *testing.T) {
	streamErr := errors.New("connection reset")
	h, ts := newTestHandler(t, []string{"par"}, streamErr)
	conn := dialWS(t, h)

	if err := conn.WriteJSON(map[string]any{"message": "hi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var frames []wsFrame
	for {
		frame := readFrame(t, conn)
		frames = append(frames, frame)
		if frame.Status == "error" {
			break
		}
	}

	// streaming (empty), streaming ("par"), then the error frame.
	if len(frames) != 3 {
		t.Fatalf("frames = %+v, want 3", frames)
	}
	if frames[1].Text != "par" {
		t.Errorf("fragment = %q, want partial output", frames[1].Text)
	}
	if !strings.Contains(frames[2].Error, "connection reset") {
		t.Errorf("error frame = %+v", frames[2])
	}

	// Both turns were persisted before the error frame went out.
	msgs, _ := ts.ListMessages(context.Background(), frames[0].ConversationID)
	if len(msgs) != 2 {
		t.Fatalf("len(msgs) = %d, want 2", len(msgs))
	}
	if msgs[1].Role != store.RoleAssistant || msgs[1].Content != "par" {
		t.Errorf("assistant turn = %+v, want partial output persisted", msgs[1])
	}
}
