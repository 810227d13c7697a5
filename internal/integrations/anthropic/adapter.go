package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"election-agent/internal/domain"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024

	// DefaultModel is used when no Claude model is configured or requested.
	DefaultModel = "claude-3-sonnet-20240229"

	systemPrefix = "System: "
)

// now is swapped in tests.
var now = time.Now

// messageResponse is the subset of the Messages API response we read.
type messageResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Adapter encapsulates the Anthropic Messages wire format.
//
// The system instruction travels in the top-level system field. Any message
// that still carries the system role is folded into the list as a user turn,
// because the Messages API rejects inline system messages.
type Adapter struct {
	baseURL string
}

type Option func(*Adapter)

func WithBaseURL(baseURL string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimSpace(baseURL)
	}
}

func New(opts ...Option) *Adapter {
	a := &Adapter{baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Name() domain.Provider {
	return domain.ProviderAnthropic
}

func messagesURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/messages"
	}
	return base + "/v1/messages"
}

// RemapSystemMessages returns a copy of msgs where every system-role message
// becomes a user message prefixed with "System: ". Other messages are copied
// untouched.
func RemapSystemMessages(msgs []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		if m.Role == domain.RoleSystem {
			m = domain.ChatMessage{Role: domain.RoleUser, Content: systemPrefix + m.Content}
		}
		out[i] = m
	}
	return out
}

// IsClaudeModel reports whether model names an Anthropic model.
func IsClaudeModel(model string) bool {
	return strings.Contains(strings.ToLower(model), "claude")
}

// SelectModel honors a per-request model only when it names a Claude model,
// since callers usually pass OpenAI model names along with the fallback.
func (a *Adapter) SelectModel(requested, configured string) string {
	if IsClaudeModel(requested) {
		return strings.TrimSpace(requested)
	}
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return DefaultModel
}

func (a *Adapter) BuildRequest(p domain.Prompt, cfg domain.ProviderConfig) (domain.ProviderRequest, error) {
	if !cfg.Configured() {
		return domain.ProviderRequest{}, errors.New("anthropic: api key must not be empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	turns := make([]domain.ChatMessage, 0, len(p.History)+1)
	turns = append(turns, p.History...)
	if p.Latest.Role != "" {
		turns = append(turns, p.Latest)
	}

	messages := make([]sdk.MessageParam, 0, len(turns))
	for _, m := range RemapSystemMessages(turns) {
		messages = append(messages, sdk.MessageParam{
			Role:    sdk.MessageParamRole(m.Role),
			Content: []sdk.ContentBlockParamUnion{sdk.NewTextBlock(m.Content)},
		})
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if p.System != "" {
		params.System = []sdk.TextBlockParam{{Text: p.System}}
	}
	params.Temperature = sdk.Float(cfg.Temperature)

	body, err := json.Marshal(params)
	if err != nil {
		return domain.ProviderRequest{}, fmt.Errorf("anthropic: marshal request: %w", err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", apiVersion)

	return domain.ProviderRequest{
		URL:    messagesURL(a.baseURL),
		Header: header,
		Body:   body,
	}, nil
}

// ExtractCompletion maps a Messages response onto the canonical completion.
// The id and timestamp are synthesized at response time, and the token total
// is the sum of input and output tokens since the API reports no total.
func (a *Adapter) ExtractCompletion(raw []byte) (domain.Completion, error) {
	var payload messageResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Completion{}, fmt.Errorf("anthropic: decode response: %w", err)
	}
	if len(payload.Content) == 0 {
		return domain.Completion{}, errors.New("anthropic: no content blocks in response")
	}

	ts := now()
	return domain.Completion{
		ID:           fmt.Sprintf("chatcmpl-%d", ts.UnixMilli()),
		Object:       domain.ObjectChatCompletion,
		Created:      ts.Unix(),
		Model:        payload.Model,
		Content:      payload.Content[0].Text,
		FinishReason: finishReason(payload.StopReason),
		Usage:        domain.NewUsage(payload.Usage.InputTokens, payload.Usage.OutputTokens),
		Provider:     domain.ProviderAnthropic,
	}, nil
}

func finishReason(stop string) string {
	if stop == string(sdk.StopReasonMaxTokens) {
		return "length"
	}
	return "stop"
}

func (a *Adapter) IsTransientFailure(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		// 529 overloaded included.
		return true
	default:
		return false
	}
}
