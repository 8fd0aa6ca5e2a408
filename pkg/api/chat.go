package api

import (
	"errors"
	"net/http"
	"time"

	"parleyhq/parley/pkg/chat"
	"parleyhq/parley/pkg/store"
)

// chatResponse is the terminal payload of the request/response mode: the
// resolved conversation and both turns persisted by the exchange.
type chatResponse struct {
	ConversationID int64         `json:"conversation_id"`
	UserMessage    store.Message `json:"user_message"`
	AIResponse     store.Message `json:"ai_response"`
}

// handleChat serves POST /chat. The full exchange runs before the response
// is written; fragments are accumulated, not relayed.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chat.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.runner.Run(r.Context(), req, chat.NopSink{})
	if err != nil {
		status, detail := requestErrorStatus(err)
		h.metrics.RecordRequest("http", requestErrorKind(err), time.Since(start))
		writeError(w, status, detail)
		return
	}

	outcome := "completed"
	if result.StreamErr != nil {
		outcome = "stream_error"
	}
	h.metrics.RecordRequest("http", outcome, time.Since(start))

	writeJSON(w, http.StatusOK, chatResponse{
		ConversationID: result.ConversationID,
		UserMessage:    result.UserMessage,
		AIResponse:     result.AssistantMessage,
	})
}

// requestErrorStatus maps a chat request failure to an HTTP status and a
// client-safe detail string.
func requestErrorStatus(err error) (int, string) {
	var reqErr *chat.RequestError
	if !errors.As(err, &reqErr) {
		return http.StatusInternalServerError, "Failed to process chat message"
	}

	switch reqErr.Kind {
	case chat.KindEmptyMessage:
		return http.StatusBadRequest, reqErr.Message
	case chat.KindConversationNotFound:
		return http.StatusNotFound, reqErr.Message
	default:
		return http.StatusInternalServerError, reqErr.Message
	}
}

// requestErrorKind extracts the failure kind for metrics labels.
func requestErrorKind(err error) string {
	var reqErr *chat.RequestError
	if errors.As(err, &reqErr) {
		return string(reqErr.Kind)
	}
	return string(chat.KindInternal)
}
