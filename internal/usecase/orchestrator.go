package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"election-agent/internal/domain"
)

// Attempt outcomes reported to Metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient_failure"
	OutcomeFailure   = "failure"
)

// Adapter translates between the canonical prompt/completion shapes and one
// provider's wire format. It performs no I/O.
type Adapter interface {
	Name() domain.Provider
	SelectModel(requested, configured string) string
	BuildRequest(p domain.Prompt, cfg domain.ProviderConfig) (domain.ProviderRequest, error)
	ExtractCompletion(raw []byte) (domain.Completion, error)
	IsTransientFailure(status int) bool
}

// KeySource resolves a provider credential. An empty key with a nil error
// means the provider is not configured.
type KeySource interface {
	APIKey(ctx context.Context, provider domain.Provider) (string, error)
}

// ProviderDefaults are the environment-sourced settings of one provider.
type ProviderDefaults struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

type CompletionRequest struct {
	Prompt   domain.Prompt
	Provider domain.Provider
	// Model optionally overrides the configured model, subject to the
	// adapter's SelectModel rules.
	Model string
}

// Orchestrator runs the primary-then-fallback policy over two adapters.
// Each attempted provider gets exactly one upstream call per Complete.
type Orchestrator struct {
	primary  Adapter
	fallback Adapter
	keys     KeySource
	defaults map[domain.Provider]ProviderDefaults

	doer    HTTPDoer
	timeout time.Duration
	logger  *slog.Logger
	metrics Metrics

	cacheMu     sync.RWMutex
	cacheLoaded bool
	apiKeys     map[domain.Provider]string
}

func NewOrchestrator(primary, fallback Adapter, keys KeySource, defaults map[domain.Provider]ProviderDefaults, opts ...Option) (*Orchestrator, error) {
	if primary == nil {
		return nil, errors.New("usecase: primary adapter must not be nil")
	}
	if fallback == nil {
		return nil, errors.New("usecase: fallback adapter must not be nil")
	}
	if primary.Name() == fallback.Name() {
		return nil, fmt.Errorf("usecase: primary and fallback are both %s", primary.Name())
	}
	if keys == nil {
		return nil, errors.New("usecase: key source must not be nil")
	}
	o := buildOptions(opts)
	d := make(map[domain.Provider]ProviderDefaults, len(defaults))
	for p, v := range defaults {
		d[p] = v
	}
	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		keys:     keys,
		defaults: d,
		doer:     o.doer,
		timeout:  o.timeout,
		logger:   o.logger,
		metrics:  o.metrics,
	}, nil
}

// Complete serves req from the preferred provider when it is the primary and
// configured, falling back to the secondary on any failure. Otherwise it goes
// straight to the secondary.
func (o *Orchestrator) Complete(ctx context.Context, req CompletionRequest) (domain.Completion, error) {
	if err := o.ensureKeys(ctx); err != nil {
		return domain.Completion{}, newError(ErrorInternal, ReasonCredentialLoad, err)
	}

	primaryCfg := o.providerConfig(o.primary, req.Model)
	fallbackCfg := o.providerConfig(o.fallback, req.Model)

	if req.Provider == o.primary.Name() && primaryCfg.Configured() {
		c, err := o.attempt(ctx, o.primary, req.Prompt, primaryCfg)
		if err == nil {
			return c, nil
		}
		if !fallbackCfg.Configured() {
			return domain.Completion{}, newError(ErrorServiceUnavailable, ReasonBothUnavailable, err)
		}
		o.metrics.ProviderFallback()
		o.logger.InfoContext(ctx, "falling back to secondary provider",
			"from", o.primary.Name(),
			"to", o.fallback.Name(),
		)
	} else if !fallbackCfg.Configured() {
		return domain.Completion{}, newError(ErrorServiceUnavailable, ReasonNoProvider, nil)
	}

	c, err := o.attempt(ctx, o.fallback, req.Prompt, fallbackCfg)
	if err != nil {
		return domain.Completion{}, newError(ErrorUpstream, ReasonProviderFailed, err)
	}
	return c, nil
}

// Configured reports which providers currently have a credential.
func (o *Orchestrator) Configured(ctx context.Context) (map[domain.Provider]bool, error) {
	if err := o.ensureKeys(ctx); err != nil {
		return nil, err
	}
	o.cacheMu.RLock()
	defer o.cacheMu.RUnlock()
	return map[domain.Provider]bool{
		o.primary.Name():  o.apiKeys[o.primary.Name()] != "",
		o.fallback.Name(): o.apiKeys[o.fallback.Name()] != "",
	}, nil
}

func (o *Orchestrator) attempt(ctx context.Context, a Adapter, p domain.Prompt, cfg domain.ProviderConfig) (domain.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	c, err := o.call(ctx, a, p, cfg)
	if err != nil {
		outcome := o.classify(a, err)
		o.metrics.ProviderAttempt(a.Name(), outcome)
		status, _ := upstreamStatusCode(err)
		o.logger.WarnContext(ctx, "provider attempt failed",
			"provider", a.Name(),
			"model", cfg.Model,
			"outcome", outcome,
			"status", status,
			"err", err,
		)
		return domain.Completion{}, err
	}
	o.metrics.ProviderAttempt(a.Name(), OutcomeSuccess)
	return c, nil
}

func (o *Orchestrator) call(ctx context.Context, a Adapter, p domain.Prompt, cfg domain.ProviderConfig) (domain.Completion, error) {
	pr, err := a.BuildRequest(p, cfg)
	if err != nil {
		return domain.Completion{}, err
	}
	raw, err := send(ctx, o.doer, a.Name(), pr)
	if err != nil {
		return domain.Completion{}, err
	}
	c, err := a.ExtractCompletion(raw)
	if err != nil {
		return domain.Completion{}, err
	}
	if c.Model == "" {
		c.Model = cfg.Model
	}
	return c, nil
}

func (o *Orchestrator) classify(a Adapter, err error) string {
	if status, ok := upstreamStatusCode(err); ok {
		if a.IsTransientFailure(status) {
			return OutcomeTransient
		}
		return OutcomeFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return OutcomeTransient
	}
	return OutcomeFailure
}

func (o *Orchestrator) providerConfig(a Adapter, requestedModel string) domain.ProviderConfig {
	d := o.defaults[a.Name()]
	o.cacheMu.RLock()
	key := o.apiKeys[a.Name()]
	o.cacheMu.RUnlock()
	return domain.ProviderConfig{
		Provider:    a.Name(),
		APIKey:      key,
		Model:       a.SelectModel(requestedModel, d.Model),
		MaxTokens:   d.MaxTokens,
		Temperature: d.Temperature,
	}
}

// ensureKeys resolves both credentials once per process. A failed lookup is
// not cached so the next call retries.
func (o *Orchestrator) ensureKeys(ctx context.Context) error {
	o.cacheMu.RLock()
	if o.cacheLoaded {
		o.cacheMu.RUnlock()
		return nil
	}
	o.cacheMu.RUnlock()

	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	if o.cacheLoaded {
		return nil
	}

	keys := make(map[domain.Provider]string, 2)
	for _, a := range []Adapter{o.primary, o.fallback} {
		key, err := o.keys.APIKey(ctx, a.Name())
		if err != nil {
			return fmt.Errorf("usecase: load %s api key: %w", a.Name(), err)
		}
		keys[a.Name()] = key
	}
	o.apiKeys = keys
	o.cacheLoaded = true
	return nil
}
