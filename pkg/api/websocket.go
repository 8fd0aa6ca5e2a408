package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"parleyhq/parley/pkg/chat"
)

// wsFrame is the wire format of every frame sent to a WebSocket client.
type wsFrame struct {
	Status         string `json:"status"`
	Text           string `json:"text,omitempty"`
	Error          string `json:"error,omitempty"`
	ConversationID int64  `json:"conversation_id"`
}

// wsSink translates orchestrator events into frames on the connection.
// Events arrive sequentially, so no write locking is needed.
type wsSink struct {
	conn           *websocket.Conn
	conversationID int64
	writeErr       error
	logger         *slog.Logger
}

func (s *wsSink) send(frame wsFrame) {
	if s.writeErr != nil {
		return
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		// The client is gone; the exchange still runs to completion so the
		// assistant turn gets persisted.
		s.writeErr = err
		s.logger.Debug("websocket write failed", "error", err)
	}
}

func (s *wsSink) ConversationResolved(conversationID int64) {
	s.conversationID = conversationID
	s.send(wsFrame{
		Status:         "streaming",
		Text:           "",
		ConversationID: conversationID,
	})
}

func (s *wsSink) Fragment(text string) {
	s.send(wsFrame{
		Status:         "streaming",
		Text:           text,
		ConversationID: s.conversationID,
	})
}

func (s *wsSink) StreamError(err error) {
	s.send(wsFrame{
		Status:         "error",
		Error:          "Error streaming response: " + err.Error(),
		ConversationID: s.conversationID,
	})
}

// handleWebSocket serves /ws/chat. One connection carries any number of
// exchanges, processed strictly in sequence: the next inbound message is not
// read until the previous exchange has terminated. A request-level failure
// is reported as an error frame and leaves the connection open.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("websocket connection accepted", "remote_addr", r.RemoteAddr)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "error", err)
			} else {
				h.logger.Info("websocket disconnected")
			}
			return
		}

		h.serveExchange(r, conn, payload)
	}
}

// serveExchange runs one inbound message through the chat pipeline and
// writes the resulting frame sequence.
func (h *Handler) serveExchange(r *http.Request, conn *websocket.Conn, payload []byte) {
	start := time.Now()

	var req chat.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		_ = conn.WriteJSON(wsFrame{
			Status: "error",
			Error:  "Invalid message format",
		})
		return
	}

	sink := &wsSink{conn: conn, logger: h.logger}
	if req.ConversationID != nil {
		sink.conversationID = *req.ConversationID
	}

	result, err := h.runner.Run(r.Context(), req, sink)
	if err != nil {
		h.metrics.RecordRequest("websocket", requestErrorKind(err), time.Since(start))

		var reqErr *chat.RequestError
		detail := "Error processing message"
		if errors.As(err, &reqErr) {
			detail = reqErr.Message
		}
		sink.send(wsFrame{
			Status:         "error",
			Error:          detail,
			ConversationID: sink.conversationID,
		})
		return
	}

	if result.StreamErr != nil {
		// The sink already delivered the error frame; the exchange is over
		// and both turns are persisted, so no complete frame follows.
		h.metrics.RecordRequest("websocket", "stream_error", time.Since(start))
		return
	}
	h.metrics.RecordRequest("websocket", "completed", time.Since(start))

	sink.send(wsFrame{
		Status:         "complete",
		ConversationID: result.ConversationID,
	})
}
