package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"parleyhq/parley/pkg/store"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

// conversationIDParam parses the {id} path parameter.
func conversationIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid conversation id %q", raw)
	}
	return id, nil
}

// paginationParams parses limit and offset query parameters with defaults.
func paginationParams(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// titleRequest is the body of conversation create and rename calls.
type titleRequest struct {
	Title string `json:"title"`
}

// handleCreateConversation serves POST /conversations.
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	conv, err := h.store.CreateConversation(r.Context(), req.Title)
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// handleListConversations serves GET /conversations: summaries without
// messages, most recently active first.
func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	convs, err := h.store.ListConversations(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}

// handleGetConversation serves GET /conversations/{id}: the conversation
// with its full message history.
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.GetConversation(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to get conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get conversation")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// handleDeleteConversation serves DELETE /conversations/{id}. Deleting a
// conversation removes its messages as well.
func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existed, err := h.store.DeleteConversation(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	if !existed {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Conversation with ID %d not found", id))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleUpdateTitle serves PUT /conversations/{id}/title.
func (h *Handler) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, err := conversationIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conv, err := h.store.UpdateConversationTitle(r.Context(), id, req.Title)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to update conversation title", "conversation_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to update conversation title")
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

// handleHistory serves GET /history: conversations with their messages,
// most recently active first.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	convs, err := h.store.ListConversationsWithMessages(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to load history", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get chat history")
		return
	}
	if convs == nil {
		convs = []store.Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}

// handleStats serves GET /stats.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get conversation statistics")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// handleHealth serves GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
	})
}

// handleValidateKey serves GET /validate-key, probing the upstream
// credential with a minimal completion call.
func (h *Handler) handleValidateKey(w http.ResponseWriter, r *http.Request) {
	if h.validator == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "No completion client configured",
		})
		return
	}

	v := h.validator.ValidateCredential(r.Context())
	if !v.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "invalid",
			"message": v.Message,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "valid",
		"message": v.Message,
	})
}
