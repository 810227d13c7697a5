package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"election-agent/internal/domain"
	"election-agent/internal/policy"
)

const (
	DefaultTitle         = "ElectionSathi"
	DefaultHistoryWindow = 5

	ErrorApology = "I apologize, but I encountered an error. Please try again or contact support if the issue persists."
	EmptyApology = "I apologize, but I received an empty response. Please try again."
)

// Analytics event names.
const (
	EventMessageSent         = "message_sent"
	EventBlockedQuestion     = "blocked_question"
	EventResponseReceived    = "response_received"
	EventErrorOccurred       = "error_occurred"
	EventConversationCleared = "conversation_cleared"
)

// Greeting is the assistant message every conversation starts with.
func Greeting(title string) string {
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle
	}
	return fmt.Sprintf("Hello! I'm %s, your trusted companion for election insights. "+
		"I can help you with voting information, registration, polling locations, candidate details, and more.", title)
}

// Completer is satisfied by *Orchestrator.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (domain.Completion, error)
}

// PromptSource renders the system instruction for a turn.
type PromptSource interface {
	SystemPrompt(ctx context.Context, title string) (string, error)
}

type SessionConfig struct {
	Title         string
	Provider      domain.Provider
	Model         string
	HistoryWindow int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if strings.TrimSpace(c.Title) == "" {
		c.Title = DefaultTitle
	}
	if c.Provider == "" {
		c.Provider = domain.ProviderOpenAI
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = DefaultHistoryWindow
	}
	return c
}

// TurnResult describes what one Send appended to the conversation.
type TurnResult struct {
	Reply    domain.ChatMessage
	Blocked  bool
	Keyword  string
	Degraded bool
	Provider domain.Provider
	Usage    domain.Usage
}

// Session owns one conversation's history. At most one turn may be in flight.
type Session struct {
	id        string
	cfg       SessionConfig
	completer Completer
	prompts   PromptSource
	filter    *policy.Filter
	logger    *slog.Logger
	metrics   Metrics
	tracker   Tracker

	mu       sync.Mutex
	messages []domain.ChatMessage
	busy     bool
}

func (s *Session) ID() string {
	return s.id
}

// Messages returns a copy of the history.
func (s *Session) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Conversation() domain.Conversation {
	return domain.Conversation{ID: s.id, Messages: s.Messages()}
}

// Send runs one user turn. Upstream failures do not surface as errors: an
// apology is appended instead and Degraded is set.
func (s *Session) Send(ctx context.Context, text string) (TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return TurnResult{}, newError(ErrorInvalidInput, ReasonEmptyMessage, nil)
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return TurnResult{}, newError(ErrorConflict, ReasonTurnInFlight, nil)
	}
	user := domain.ChatMessage{Role: domain.RoleUser, Content: text}

	if keyword, blocked := s.filter.Check(text); blocked {
		reply := domain.ChatMessage{Role: domain.RoleAssistant, Content: policy.Refusal}
		s.messages = append(s.messages, user, reply)
		s.mu.Unlock()

		s.metrics.BlockedQuestion(keyword)
		s.logger.InfoContext(ctx, "blocked question", "session_id", s.id, "keyword", keyword)
		s.tracker.Track(ctx, s.id, EventBlockedQuestion, map[string]any{"keyword": keyword})
		return TurnResult{Reply: reply, Blocked: true, Keyword: keyword}, nil
	}

	history := s.window()
	s.messages = append(s.messages, user)
	s.busy = true
	s.mu.Unlock()

	s.tracker.Track(ctx, s.id, EventMessageSent, map[string]any{
		"length":   len(text),
		"provider": string(s.cfg.Provider),
	})

	res := TurnResult{
		Reply:    domain.ChatMessage{Role: domain.RoleAssistant, Content: ErrorApology},
		Degraded: true,
	}
	defer func() {
		s.mu.Lock()
		s.messages = append(s.messages, res.Reply)
		s.busy = false
		s.mu.Unlock()
	}()

	res = s.complete(ctx, history, user)
	return res, nil
}

func (s *Session) complete(ctx context.Context, history []domain.ChatMessage, user domain.ChatMessage) TurnResult {
	system, err := s.prompts.SystemPrompt(ctx, s.cfg.Title)
	if err != nil {
		return s.failed(ctx, fmt.Errorf("usecase: build system prompt: %w", err))
	}

	c, err := s.completer.Complete(ctx, CompletionRequest{
		Prompt: domain.Prompt{
			System:  system,
			History: history,
			Latest:  user,
		},
		Provider: s.cfg.Provider,
		Model:    s.cfg.Model,
	})
	if err != nil {
		return s.failed(ctx, err)
	}

	content := strings.TrimSpace(c.Content)
	degraded := content == ""
	if degraded {
		content = EmptyApology
		s.logger.WarnContext(ctx, "empty completion", "session_id", s.id, "provider", c.Provider)
	}
	s.tracker.Track(ctx, s.id, EventResponseReceived, map[string]any{
		"provider":     string(c.Provider),
		"model":        c.Model,
		"total_tokens": c.Usage.TotalTokens,
	})
	return TurnResult{
		Reply:    domain.ChatMessage{Role: domain.RoleAssistant, Content: content},
		Degraded: degraded,
		Provider: c.Provider,
		Usage:    c.Usage,
	}
}

func (s *Session) failed(ctx context.Context, err error) TurnResult {
	code := ErrorInternal
	var ue *Error
	if errors.As(err, &ue) {
		code = ue.Code
	}
	s.logger.ErrorContext(ctx, "turn failed", "session_id", s.id, "code", code, "err", err)
	s.tracker.Track(ctx, s.id, EventErrorOccurred, map[string]any{"code": string(code)})
	return TurnResult{
		Reply:    domain.ChatMessage{Role: domain.RoleAssistant, Content: ErrorApology},
		Degraded: true,
	}
}

// window returns the trailing prior turns sent as context. Caller holds mu.
func (s *Session) window() []domain.ChatMessage {
	start := len(s.messages) - s.cfg.HistoryWindow
	if start < 0 {
		start = 0
	}
	out := make([]domain.ChatMessage, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// Clear resets the history to the greeting.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return newError(ErrorConflict, ReasonTurnInFlight, nil)
	}
	s.messages = seed(s.cfg.Title)
	s.mu.Unlock()

	s.tracker.Track(ctx, s.id, EventConversationCleared, nil)
	return nil
}

func seed(title string) []domain.ChatMessage {
	return []domain.ChatMessage{{Role: domain.RoleAssistant, Content: Greeting(title)}}
}
