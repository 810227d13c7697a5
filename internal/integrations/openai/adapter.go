package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"election-agent/internal/domain"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when neither the request nor the environment names one.
	DefaultModel = "gpt-3.5-turbo"
)

// now is swapped in tests.
var now = time.Now

// Adapter encapsulates the OpenAI Chat Completions wire format.
type Adapter struct {
	baseURL string
}

type Option func(*Adapter)

func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSpace(baseURL)
	}
}

// New creates an Adapter targeting the public OpenAI API unless overridden.
func New(opts ...Option) *Adapter {
	a := &Adapter{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() domain.Provider {
	return domain.ProviderOpenAI
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// SelectModel prefers the per-request model over the configured one.
func (a *Adapter) SelectModel(requested, configured string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return DefaultModel
}

// BuildRequest assembles a Chat Completions call. Roles are sent as-is, in the
// order system prompt, history, latest message.
func (a *Adapter) BuildRequest(p domain.Prompt, cfg domain.ProviderConfig) (domain.ProviderRequest, error) {
	if !cfg.Configured() {
		return domain.ProviderRequest{}, errors.New("openai: api key must not be empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return domain.ProviderRequest{}, errors.New("openai: model must not be empty")
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(p.History)+2)
	if p.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: p.System,
		})
	}
	for _, m := range p.History {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if p.Latest.Role != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: p.Latest.Role, Content: p.Latest.Content})
	}

	body, err := json.Marshal(goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature(cfg.Temperature),
	})
	if err != nil {
		return domain.ProviderRequest{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return domain.ProviderRequest{
		URL:    chatURL(a.baseURL),
		Header: header,
		Body:   body,
	}, nil
}

// ExtractCompletion reads the first choice of a Chat Completions response.
// Missing usage counters default to zero and the total is always recomputed.
func (a *Adapter) ExtractCompletion(raw []byte) (domain.Completion, error) {
	var payload goopenai.ChatCompletionResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Completion{}, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return domain.Completion{}, errors.New("openai: no choices in response")
	}
	choice := payload.Choices[0]

	out := domain.Completion{
		ID:           payload.ID,
		Object:       domain.ObjectChatCompletion,
		Created:      payload.Created,
		Model:        payload.Model,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage:        domain.NewUsage(payload.Usage.PromptTokens, payload.Usage.CompletionTokens),
		Provider:     domain.ProviderOpenAI,
	}
	ts := now()
	if out.ID == "" {
		out.ID = fmt.Sprintf("chatcmpl-%d", ts.UnixMilli())
	}
	if out.Created == 0 {
		out.Created = ts.Unix()
	}
	if out.FinishReason == "" {
		out.FinishReason = string(goopenai.FinishReasonStop)
	}
	return out, nil
}

// IsTransientFailure reports whether status is worth failing over on without
// suspecting the request itself.
func (a *Adapter) IsTransientFailure(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

// temperature keeps an explicit 0 on the wire. go-openai omits a zero
// Temperature, so it is sent as the smallest positive float32 instead.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
