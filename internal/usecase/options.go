package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"election-agent/internal/domain"
)

const defaultAttemptTimeout = 30 * time.Second

// Metrics receives counters for provider attempts and policy blocks.
type Metrics interface {
	ProviderAttempt(provider domain.Provider, outcome string)
	ProviderFallback()
	BlockedQuestion(keyword string)
}

// Tracker receives product analytics events keyed by session.
type Tracker interface {
	Track(ctx context.Context, sessionID, event string, props map[string]any)
}

type nopMetrics struct{}

func (nopMetrics) ProviderAttempt(domain.Provider, string) {}
func (nopMetrics) ProviderFallback()                      {}
func (nopMetrics) BlockedQuestion(string)                 {}

type nopTracker struct{}

func (nopTracker) Track(context.Context, string, string, map[string]any) {}

type options struct {
	logger  *slog.Logger
	metrics Metrics
	tracker Tracker
	doer    HTTPDoer
	timeout time.Duration
}

// Option configures an Orchestrator or a SessionService. Options that do not
// apply to the receiving type are ignored.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

func WithTracker(t Tracker) Option {
	return func(o *options) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithHTTPDoer replaces the HTTP client used for upstream calls.
func WithHTTPDoer(d HTTPDoer) Option {
	return func(o *options) {
		if d != nil {
			o.doer = d
		}
	}
}

// WithAttemptTimeout bounds each individual provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		metrics: nopMetrics{},
		tracker: nopTracker{},
		timeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.doer == nil {
		o.doer = defaultHTTPClient()
	}
	return o
}

var newUUID = func() string {
	return uuid.NewString()
}
