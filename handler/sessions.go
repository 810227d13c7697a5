package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"election-agent/internal/domain"
	"election-agent/internal/usecase"
)

type sendRequest struct {
	Content string `json:"content"`
}

type sendResponse struct {
	SessionID string               `json:"sessionId"`
	Reply     domain.ChatMessage   `json:"reply"`
	Blocked   bool                 `json:"blocked"`
	Keyword   string               `json:"keyword,omitempty"`
	Degraded  bool                 `json:"degraded"`
	Messages  []domain.ChatMessage `json:"messages"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers,omitempty"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.sessions.Start(r.Context()))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.sessions.Conversation(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Details: "invalid_json"})
		return
	}
	res, conv, err := h.sessions.Send(r.Context(), r.PathValue("id"), req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sendResponse{
		SessionID: conv.ID,
		Reply:     res.Reply,
		Blocked:   res.Blocked,
		Keyword:   res.Keyword,
		Degraded:  res.Degraded,
		Messages:  conv.Messages,
	})
}

func (h *Handler) clearSession(w http.ResponseWriter, r *http.Request) {
	conv, err := h.sessions.Clear(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	configured, err := h.health.Configured(r.Context())
	if err != nil {
		h.log(r.Context()).WarnContext(r.Context(), "health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
		return
	}
	providers := make(map[string]bool, len(configured))
	anyConfigured := false
	for p, ok := range configured {
		providers[string(p)] = ok
		anyConfigured = anyConfigured || ok
	}
	status := "ok"
	if !anyConfigured {
		status = "no_provider_configured"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Providers: providers})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		h.internalError(w, r, err)
		return
	}
	status := statusFor(ue.Code)
	if status >= http.StatusInternalServerError {
		h.log(r.Context()).ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: string(ue.Code), Details: ue.Reason})
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorInvalidQuestion:
		return http.StatusBadRequest
	case usecase.ErrorNotFound:
		return http.StatusNotFound
	case usecase.ErrorConflict:
		return http.StatusConflict
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
