package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"parleyhq/parley/pkg/chat"
	"parleyhq/parley/pkg/completion"
	"parleyhq/parley/pkg/store"
	"parleyhq/parley/pkg/telemetry/metrics"
)

// Runner executes one chat request. *chat.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req chat.Request, sink chat.EventSink) (*chat.Result, error)
}

// CredentialValidator checks the upstream credential.
// *completion.Client satisfies it.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context) completion.Validation
}

// Handler serves the chat API.
type Handler struct {
	store     store.TranscriptStore
	runner    Runner
	validator CredentialValidator
	metrics   *metrics.ChatMetrics
	version   string
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMetrics wires request metrics into the handler.
func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) Option {
	return func(h *Handler) {
		h.version = v
	}
}

// WithCredentialValidator wires the /validate-key endpoint. Without one the
// endpoint reports the credential as unverifiable.
func WithCredentialValidator(v CredentialValidator) Option {
	return func(h *Handler) {
		h.validator = v
	}
}

// NewHandler creates the API handler.
func NewHandler(ts store.TranscriptStore, runner Runner, opts ...Option) *Handler {
	h := &Handler{
		store:   ts,
		runner:  runner,
		version: "dev",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router with all endpoints registered.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/chat", h.handleChat)
	r.HandleFunc("/ws/chat", h.handleWebSocket)

	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations", h.handleListConversations)
	r.Get("/conversations/{id}", h.handleGetConversation)
	r.Delete("/conversations/{id}", h.handleDeleteConversation)
	r.Put("/conversations/{id}/title", h.handleUpdateTitle)

	r.Get("/history", h.handleHistory)
	r.Get("/stats", h.handleStats)
	r.Get("/health", h.handleHealth)
	r.Get("/validate-key", h.handleValidateKey)

	return r
}
