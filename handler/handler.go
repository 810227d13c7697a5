package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/google/uuid"

	"election-agent/internal/domain"
	"election-agent/internal/metrics"
	"election-agent/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 1 << 20
)

// User-facing bodies of the chat proxy.
const (
	msgMethodNotAllowed = "Method not allowed"
	msgMessagesRequired = "Messages array is required"
	msgBothUnavailable  = "Both OpenAI and Claude APIs unavailable"
	msgNoAPIKeys        = "No API keys configured"
	msgInternalError    = "Internal server error"
)

type Completer interface {
	Complete(ctx context.Context, req usecase.CompletionRequest) (domain.Completion, error)
}

type SessionStore interface {
	Start(ctx context.Context) domain.Conversation
	Conversation(id string) (domain.Conversation, error)
	Send(ctx context.Context, id, text string) (usecase.TurnResult, domain.Conversation, error)
	Clear(ctx context.Context, id string) (domain.Conversation, error)
}

// HealthChecker reports which providers have credentials.
type HealthChecker interface {
	Configured(ctx context.Context) (map[domain.Provider]bool, error)
}

type Handler struct {
	completer Completer
	sessions  SessionStore
	health    HealthChecker
	metrics   *metrics.Registry
	logger    *slog.Logger

	root  http.Handler
	proxy *httpadapter.HandlerAdapter
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics records request metrics and exposes GET /metrics.
func WithMetrics(reg *metrics.Registry) Option {
	return func(h *Handler) {
		h.metrics = reg
	}
}

func WithHealth(hc HealthChecker) Option {
	return func(h *Handler) {
		h.health = hc
	}
}

func NewHandler(c Completer, s SessionStore, opts ...Option) (*Handler, error) {
	if c == nil {
		return nil, errors.New("handler: completer must not be nil")
	}
	if s == nil {
		return nil, errors.New("handler: session store must not be nil")
	}
	h := &Handler{
		completer: c,
		sessions:  s,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", h.chat)
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", h.sendMessage)
	mux.HandleFunc("DELETE /api/sessions/{id}/messages", h.clearSession)
	mux.HandleFunc("GET /healthz", h.healthz)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics.Handler())
	}

	var root http.Handler = h.withRecovery(mux)
	root = h.withCorrelation(root)
	if h.metrics != nil {
		root = metrics.HTTPMiddleware(h.metrics)(root)
	}
	h.root = root
	h.proxy = httpadapter.New(h)
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

type ctxKey struct{}

func (h *Handler) withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = newCorrelationID()
		}
		w.Header().Set(correlationHeader, id)
		ctx := context.WithValue(r.Context(), ctxKey{}, h.logger.With("correlation_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log(r.Context()).ErrorContext(r.Context(), "panic serving request",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, errorResponse{
					Error:   msgInternalError,
					Details: fmt.Sprint(rec),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) log(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return h.logger
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
