package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"election-agent/internal/domain"
	"election-agent/internal/policy"
)

// SessionService is an in-memory registry of sessions. Nothing outlives the
// process.
type SessionService struct {
	cfg       SessionConfig
	completer Completer
	prompts   PromptSource
	filter    *policy.Filter
	logger    *slog.Logger
	metrics   Metrics
	tracker   Tracker

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionService(c Completer, p PromptSource, f *policy.Filter, cfg SessionConfig, opts ...Option) (*SessionService, error) {
	if c == nil {
		return nil, errors.New("usecase: completer must not be nil")
	}
	if p == nil {
		return nil, errors.New("usecase: prompt source must not be nil")
	}
	if f == nil {
		f = policy.NewFilter()
	}
	o := buildOptions(opts)
	return &SessionService{
		cfg:       cfg.withDefaults(),
		completer: c,
		prompts:   p,
		filter:    f,
		logger:    o.logger,
		metrics:   o.metrics,
		tracker:   o.tracker,
		sessions:  make(map[string]*Session),
	}, nil
}

// Create starts a conversation seeded with the greeting.
func (s *SessionService) Create(ctx context.Context) *Session {
	sess := &Session{
		id:        newUUID(),
		cfg:       s.cfg,
		completer: s.completer,
		prompts:   s.prompts,
		filter:    s.filter,
		logger:    s.logger,
		metrics:   s.metrics,
		tracker:   s.tracker,
		messages:  seed(s.cfg.Title),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "session created", "session_id", sess.id)
	return sess
}

// Start creates a session and returns its initial conversation.
func (s *SessionService) Start(ctx context.Context) domain.Conversation {
	return s.Create(ctx).Conversation()
}

func (s *SessionService) Conversation(id string) (domain.Conversation, error) {
	sess, err := s.Get(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	return sess.Conversation(), nil
}

func (s *SessionService) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, newError(ErrorNotFound, ReasonSessionNotFound, nil)
	}
	return sess, nil
}

func (s *SessionService) Send(ctx context.Context, id, text string) (TurnResult, domain.Conversation, error) {
	sess, err := s.Get(id)
	if err != nil {
		return TurnResult{}, domain.Conversation{}, err
	}
	res, err := sess.Send(ctx, text)
	if err != nil {
		return TurnResult{}, domain.Conversation{}, err
	}
	return res, sess.Conversation(), nil
}

func (s *SessionService) Clear(ctx context.Context, id string) (domain.Conversation, error) {
	sess, err := s.Get(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if err := sess.Clear(ctx); err != nil {
		return domain.Conversation{}, err
	}
	return sess.Conversation(), nil
}

// Delete forgets a session. Unknown ids are ignored.
func (s *SessionService) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, strings.TrimSpace(id))
	s.mu.Unlock()
}

func (s *SessionService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
