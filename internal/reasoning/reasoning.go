// Package reasoning drives an external language-model service with web search
// access and normalizes what it returns into plain text.
package reasoning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/opportunity-research/internal/model"
)

// ErrTimeout is returned when a call exceeds its time budget.
var ErrTimeout = eris.New("reasoning: call timed out")

// Tool configures the search capability granted for one call.
type Tool struct {
	// AllowedDomains restricts search to these domains. Empty is unrestricted.
	AllowedDomains []string
	// MaxUses caps searches per call; zero leaves the provider default.
	MaxUses int
}

// Unrestricted returns a search tool with no domain restriction.
func Unrestricted() Tool {
	return Tool{}
}

// RestrictedTo returns a search tool limited to a single domain.
func RestrictedTo(domain string) Tool {
	return Tool{AllowedDomains: []string{domain}}
}

// Restricted reports whether the tool limits search domains.
func (t Tool) Restricted() bool {
	return len(t.AllowedDomains) > 0
}

// Request is one provider call.
type Request struct {
	Instruction string
	Tool        Tool
	MaxTokens   int
	// Label names the calling phase for logs and cost attribution.
	Label string
}

// Provider is one upstream reasoning service.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error)
}

// ServiceError is any failure reported by, or on the way to, the upstream
// service other than a timeout.
type ServiceError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("reasoning: %s service error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reasoning: %s service error: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Result is the normalized outcome of Invoke.
type Result struct {
	Text     string
	Provider string
	Usage    model.TokenUsage
	Duration time.Duration
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRateLimit throttles outbound calls to rps. Zero or negative disables.
func WithRateLimit(rps float64) Option {
	return func(a *Adapter) {
		if rps > 0 {
			a.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			a.limiter = nil
		}
	}
}

// WithBreaker routes calls through b.
func WithBreaker(b *Breaker) Option {
	return func(a *Adapter) {
		a.breaker = b
	}
}

// WithMaxTokens sets the output token cap sent with each call.
func WithMaxTokens(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// Adapter invokes a Provider with a per-call deadline.
type Adapter struct {
	provider  Provider
	limiter   *rate.Limiter
	breaker   *Breaker
	maxTokens int
}

// NewAdapter wraps p.
func NewAdapter(p Provider, opts ...Option) *Adapter {
	a := &Adapter{provider: p, maxTokens: 4096}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Provider returns the wrapped provider's name.
func (a *Adapter) Provider() string {
	return a.provider.Name()
}

// Invoke sends one instruction and returns the extracted text. The deadline is
// armed when the call starts and released when it returns. A zero timeout
// leaves only the caller's deadline in force. There are no retries.
func (a *Adapter) Invoke(ctx context.Context, instruction string, tool Tool, timeout time.Duration, label string) (*Result, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		callCtx, cancel = context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	}
	defer cancel()

	name := a.provider.Name()
	log := zap.L().With(zap.String("provider", name), zap.String("phase", label))
	start := time.Now()

	if a.limiter != nil {
		if err := a.limiter.Wait(callCtx); err != nil {
			if ctx.Err() == nil {
				return nil, eris.Wrapf(ErrTimeout, "%s: rate limit wait exceeds %s", name, timeout)
			}
			return nil, &ServiceError{Provider: name, Err: ctx.Err()}
		}
	}

	if a.breaker != nil {
		if err := a.breaker.Allow(); err != nil {
			return nil, &ServiceError{Provider: name, Err: err}
		}
	}

	resp, usage, err := a.provider.Generate(callCtx, Request{
		Instruction: instruction,
		Tool:        tool,
		MaxTokens:   a.maxTokens,
		Label:       label,
	})
	elapsed := time.Since(start)
	if err != nil {
		err = a.classify(ctx, callCtx, name, timeout, err)
		a.record(err)
		log.Warn("reasoning call failed", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, err
	}
	a.record(nil)

	text, err := Extract(resp)
	if err != nil {
		log.Warn("reasoning response unreadable", zap.Duration("duration", elapsed), zap.Error(err))
		return nil, err
	}

	log.Debug("reasoning call complete",
		zap.Duration("duration", elapsed),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
	)

	return &Result{Text: text, Provider: name, Usage: usage, Duration: elapsed}, nil
}

// classify maps a raw call failure onto ErrTimeout or *ServiceError.
func (a *Adapter) classify(parent, callCtx context.Context, name string, timeout time.Duration, err error) error {
	if callCtx.Err() != nil && parent.Err() == nil && errors.Is(context.Cause(callCtx), ErrTimeout) {
		return eris.Wrapf(ErrTimeout, "%s after %s", name, timeout)
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	if parent.Err() != nil && !errors.Is(err, parent.Err()) {
		return &ServiceError{Provider: name, Err: eris.Wrap(parent.Err(), err.Error())}
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return err
	}
	return &ServiceError{Provider: name, Err: err}
}

func (a *Adapter) record(err error) {
	if a.breaker == nil {
		return
	}
	a.breaker.Record(err)
}
