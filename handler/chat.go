package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"election-agent/internal/domain"
	"election-agent/internal/usecase"
)

type chatRequest struct {
	Messages json.RawMessage `json:"messages"`
	Provider string          `json:"provider"`
	Model    string          `json:"model"`
}

type chatChoice struct {
	Index        int                `json:"index"`
	Message      domain.ChatMessage `json:"message"`
	FinishReason string             `json:"finish_reason"`
}

// chatResponse mirrors the OpenAI chat.completion object regardless of which
// provider served the request.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   domain.Usage `json:"usage"`
}

func toChatResponse(c domain.Completion) chatResponse {
	return chatResponse{
		ID:      c.ID,
		Object:  c.Object,
		Created: c.Created,
		Model:   c.Model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      domain.ChatMessage{Role: domain.RoleAssistant, Content: c.Content},
			FinishReason: c.FinishReason,
		}},
		Usage: c.Usage,
	}
}

// chat is the stateless proxy: messages are forwarded as given, with no
// filtering or windowing.
func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
		return
	}
	ctx := r.Context()
	logger := h.log(ctx)

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.internalError(w, r, fmt.Errorf("read body: %w", err))
		return
	}
	var req chatRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		h.internalError(w, r, err)
		return
	}
	if !isJSONArray(req.Messages) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgMessagesRequired})
		return
	}
	var messages []domain.ChatMessage
	if err := json.Unmarshal(req.Messages, &messages); err != nil {
		h.internalError(w, r, err)
		return
	}

	provider := proxyProvider(req.Provider)
	c, err := h.completer.Complete(ctx, usecase.CompletionRequest{
		Prompt:   domain.Prompt{History: messages},
		Provider: provider,
		Model:    strings.TrimSpace(req.Model),
	})
	if err != nil {
		var ue *usecase.Error
		if errors.As(err, &ue) && ue.Code == usecase.ErrorServiceUnavailable {
			logger.WarnContext(ctx, "chat proxy unavailable", "reason", ue.Reason, "err", err)
			msg := msgNoAPIKeys
			if ue.Reason == usecase.ReasonBothUnavailable {
				msg = msgBothUnavailable
			}
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: msg})
			return
		}
		h.internalError(w, r, err)
		return
	}

	logger.InfoContext(ctx, "chat proxy completed",
		"requested_provider", provider,
		"provider", c.Provider,
		"model", c.Model,
		"messages", len(messages),
		"total_tokens", c.Usage.TotalTokens,
	)
	writeJSON(w, http.StatusOK, toChatResponse(c))
}

// proxyProvider keeps the proxy's historical rule: anything other than an
// explicit or absent "openai" is served by the secondary provider.
func proxyProvider(s string) domain.Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(domain.ProviderOpenAI):
		return domain.ProviderOpenAI
	default:
		return domain.ProviderAnthropic
	}
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	details := err.Error()
	var ue *usecase.Error
	if errors.As(err, &ue) {
		details = ue.Cause()
	}
	h.log(r.Context()).ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError, Details: details})
}
