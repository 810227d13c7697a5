package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"election-agent/internal/domain"
	"election-agent/internal/policy"
)

type fakeCompleter struct {
	mu      sync.Mutex
	calls   []CompletionRequest
	result  domain.Completion
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (domain.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePrompts struct {
	prompt string
	err    error
	titles []string
}

func (f *fakePrompts) SystemPrompt(_ context.Context, title string) (string, error) {
	f.titles = append(f.titles, title)
	return f.prompt, f.err
}

type trackedEvent struct {
	sessionID string
	event     string
	props     map[string]any
}

type recordingTracker struct {
	mu     sync.Mutex
	events []trackedEvent
}

func (r *recordingTracker) Track(_ context.Context, sessionID, event string, props map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, trackedEvent{sessionID: sessionID, event: event, props: props})
}

func (r *recordingTracker) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.event)
	}
	return out
}

type sessionFixture struct {
	completer *fakeCompleter
	prompts   *fakePrompts
	tracker   *recordingTracker
	metrics   *recordingMetrics
	svc       *SessionService
}

func newSessionFixture(t *testing.T, cfg SessionConfig) *sessionFixture {
	t.Helper()
	f := &sessionFixture{
		completer: &fakeCompleter{result: domain.Completion{
			Content:  "Polling opens at 7 AM.",
			Provider: domain.ProviderOpenAI,
			Model:    "gpt-mock",
			Usage:    domain.NewUsage(10, 5),
		}},
		prompts: &fakePrompts{prompt: "SYSTEM"},
		tracker: &recordingTracker{},
		metrics: &recordingMetrics{},
	}
	svc, err := NewSessionService(f.completer, f.prompts, policy.NewFilter(), cfg,
		WithTracker(f.tracker), WithMetrics(f.metrics))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewSessionService_Validation(t *testing.T) {
	_, err := NewSessionService(nil, &fakePrompts{}, nil, SessionConfig{})
	require.ErrorContains(t, err, "completer")
	_, err = NewSessionService(&fakeCompleter{}, nil, nil, SessionConfig{})
	require.ErrorContains(t, err, "prompt source")
}

func TestSession_SeededWithGreeting(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{Title: "VoteBot"})
	sess := f.svc.Create(context.Background())

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, domain.RoleAssistant, msgs[0].Role)
	require.Contains(t, msgs[0].Content, "Hello! I'm VoteBot,")
	require.Equal(t, Greeting("VoteBot"), msgs[0].Content)
}

func TestSession_SendAppendsReply(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{Model: "gpt-4o"})
	sess := f.svc.Create(context.Background())

	res, err := sess.Send(context.Background(), "  When do polls open?  ")
	require.NoError(t, err)
	require.False(t, res.Blocked)
	require.False(t, res.Degraded)
	require.Equal(t, "Polling opens at 7 AM.", res.Reply.Content)
	require.Equal(t, domain.ProviderOpenAI, res.Provider)
	require.Equal(t, 15, res.Usage.TotalTokens)

	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: Greeting(DefaultTitle)},
		{Role: domain.RoleUser, Content: "When do polls open?"},
		{Role: domain.RoleAssistant, Content: "Polling opens at 7 AM."},
	}, sess.Messages())

	require.Len(t, f.completer.calls, 1)
	req := f.completer.calls[0]
	require.Equal(t, "SYSTEM", req.Prompt.System)
	require.Equal(t, domain.ProviderOpenAI, req.Provider)
	require.Equal(t, "gpt-4o", req.Model)
	require.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "When do polls open?"}, req.Prompt.Latest)
	require.Equal(t, []domain.ChatMessage{{Role: domain.RoleAssistant, Content: Greeting(DefaultTitle)}}, req.Prompt.History)
	require.Equal(t, []string{DefaultTitle}, f.prompts.titles)
	require.Equal(t, []string{EventMessageSent, EventResponseReceived}, f.tracker.names())
}

func TestSession_HistoryWindow(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{HistoryWindow: 3})
	sess := f.svc.Create(context.Background())

	for _, q := range []string{"q1", "q2", "q3"} {
		_, err := sess.Send(context.Background(), q)
		require.NoError(t, err)
	}

	last := f.completer.calls[2]
	require.Len(t, last.Prompt.History, 3)
	require.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: "Polling opens at 7 AM."}, last.Prompt.History[0])
	require.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "q2"}, last.Prompt.History[1])
	require.Equal(t, domain.RoleAssistant, last.Prompt.History[2].Role)
	require.Equal(t, "q3", last.Prompt.Latest.Content)
}

func TestSession_BlockedQuestionNeverCallsCompleter(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	sess := f.svc.Create(context.Background())

	res, err := sess.Send(context.Background(), "Who Should I Vote For in Patna?")
	require.NoError(t, err)
	require.True(t, res.Blocked)
	require.Equal(t, "who should i vote for", res.Keyword)
	require.Equal(t, policy.Refusal, res.Reply.Content)

	require.Zero(t, f.completer.callCount())
	require.Empty(t, f.prompts.titles)
	require.Equal(t, []string{"who should i vote for"}, f.metrics.blocked)
	require.Equal(t, []string{EventBlockedQuestion}, f.tracker.names())

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, "Who Should I Vote For in Patna?", msgs[1].Content)
	require.Equal(t, policy.Refusal, msgs[2].Content)
}

func TestSession_EmptyInputRejected(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	sess := f.svc.Create(context.Background())

	_, err := sess.Send(context.Background(), "   ")
	requireCode(t, err, ErrorInvalidInput, ReasonEmptyMessage)
	require.Len(t, sess.Messages(), 1)
	require.Zero(t, f.completer.callCount())
}

func TestSession_UpstreamFailureAppendsApology(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	f.completer.err = newError(ErrorServiceUnavailable, ReasonNoProvider, nil)
	sess := f.svc.Create(context.Background())

	res, err := sess.Send(context.Background(), "When is counting day?")
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, ErrorApology, res.Reply.Content)

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, ErrorApology, msgs[2].Content)
	require.Equal(t, []string{EventMessageSent, EventErrorOccurred}, f.tracker.names())
	require.Equal(t, "SERVICE_UNAVAILABLE", f.tracker.events[1].props["code"])

	// the conversation continues
	f.completer.err = nil
	res, err = sess.Send(context.Background(), "And the results?")
	require.NoError(t, err)
	require.False(t, res.Degraded)
}

func TestSession_PromptFailureAppendsApology(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	f.prompts.err = errors.New("dataset unavailable")
	sess := f.svc.Create(context.Background())

	res, err := sess.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Equal(t, ErrorApology, res.Reply.Content)
	require.Zero(t, f.completer.callCount())
}

func TestSession_EmptyCompletionAppendsEmptyApology(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	f.completer.result.Content = "  "
	sess := f.svc.Create(context.Background())

	res, err := sess.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.True(t, res.Degraded)
	require.Equal(t, EmptyApology, res.Reply.Content)
}

func TestSession_SingleTurnInFlight(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	f.completer.started = make(chan struct{}, 1)
	f.completer.release = make(chan struct{})
	sess := f.svc.Create(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := sess.Send(context.Background(), "first")
		done <- err
	}()
	<-f.completer.started

	_, err := sess.Send(context.Background(), "second")
	requireCode(t, err, ErrorConflict, ReasonTurnInFlight)
	requireCode(t, sess.Clear(context.Background()), ErrorConflict, ReasonTurnInFlight)

	close(f.completer.release)
	require.NoError(t, <-done)
	require.Equal(t, 1, f.completer.callCount())
	require.Len(t, sess.Messages(), 3)
}

type panickingCompleter struct{}

func (panickingCompleter) Complete(context.Context, CompletionRequest) (domain.Completion, error) {
	panic("upstream exploded")
}

func TestSession_PanicDuringTurnReleasesSession(t *testing.T) {
	svc, err := NewSessionService(panickingCompleter{}, &fakePrompts{prompt: "SYSTEM"}, policy.NewFilter(), SessionConfig{})
	require.NoError(t, err)
	sess := svc.Create(context.Background())

	require.Panics(t, func() {
		_, _ = sess.Send(context.Background(), "first")
	})

	msgs := sess.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, ErrorApology, msgs[2].Content)
	require.NoError(t, sess.Clear(context.Background()))

	_, err = sess.Send(context.Background(), "")
	requireCode(t, err, ErrorInvalidInput, ReasonEmptyMessage)
}

func TestSession_Clear(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	sess := f.svc.Create(context.Background())
	_, err := sess.Send(context.Background(), "hi")
	require.NoError(t, err)

	require.NoError(t, sess.Clear(context.Background()))
	require.Equal(t, []domain.ChatMessage{{Role: domain.RoleAssistant, Content: Greeting(DefaultTitle)}}, sess.Messages())
	require.Contains(t, f.tracker.names(), EventConversationCleared)
}

func TestSessionService_Registry(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})
	ctx := context.Background()

	prev := newUUID
	newUUID = func() string { return "sess-1" }
	t.Cleanup(func() { newUUID = prev })

	sess := f.svc.Create(ctx)
	require.Equal(t, "sess-1", sess.ID())
	require.Equal(t, 1, f.svc.Len())

	got, err := f.svc.Get(" sess-1 ")
	require.NoError(t, err)
	require.Same(t, sess, got)

	res, conv, err := f.svc.Send(ctx, "sess-1", "hi")
	require.NoError(t, err)
	require.Equal(t, "Polling opens at 7 AM.", res.Reply.Content)
	require.Equal(t, "sess-1", conv.ID)
	require.Len(t, conv.Messages, 3)

	conv, err = f.svc.Clear(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 1)

	_, _, err = f.svc.Send(ctx, "missing", "hi")
	requireCode(t, err, ErrorNotFound, ReasonSessionNotFound)
	_, err = f.svc.Clear(ctx, "missing")
	requireCode(t, err, ErrorNotFound, ReasonSessionNotFound)

	f.svc.Delete("sess-1")
	require.Zero(t, f.svc.Len())
}

func TestSessionService_StartAndConversation(t *testing.T) {
	f := newSessionFixture(t, SessionConfig{})

	conv := f.svc.Start(context.Background())
	require.NotEmpty(t, conv.ID)
	require.Len(t, conv.Messages, 1)

	got, err := f.svc.Conversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, conv, got)

	_, err = f.svc.Conversation("nope")
	requireCode(t, err, ErrorNotFound, ReasonSessionNotFound)
}
