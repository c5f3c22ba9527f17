// Package pipeline runs the two-phase identity verification and opportunity
// research flow against a reasoning service.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/config"
	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/internal/reasoning"
)

// Invoker sends one instruction to the reasoning service.
type Invoker interface {
	Invoke(ctx context.Context, instruction string, tool reasoning.Tool, timeout time.Duration, label string) (*reasoning.Result, error)
}

const (
	defaultVerifyTimeout   = 60 * time.Second
	defaultResearchTimeout = 120 * time.Second
	defaultIdentityDomain  = "linkedin.com"
)

// Pipeline sequences identity verification and opportunity research.
type Pipeline struct {
	invoker Invoker
	cfg     config.PipelineConfig
}

// New creates a Pipeline. Zero config values fall back to defaults.
func New(invoker Invoker, cfg config.PipelineConfig) *Pipeline {
	if cfg.IdentityDomain == "" {
		cfg.IdentityDomain = defaultIdentityDomain
	}
	return &Pipeline{invoker: invoker, cfg: cfg}
}

// Run verifies the subject then researches opportunities. Verification always
// runs and its record, or the unverified fallback, always seeds research. The
// returned error is a *Error.
func (p *Pipeline) Run(ctx context.Context, subject model.Subject) (*model.ResearchPayload, error) {
	log := zap.L().With(zap.String("company", subject.Company))
	log.Info("pipeline: starting lookup")

	var usage model.TokenUsage
	start := time.Now()
	rec := p.verify(ctx, subject, &usage)
	verifyDur := time.Since(start)

	researchStart := time.Now()
	payload, err := p.research(ctx, subject, rec, &usage)
	researchDur := time.Since(researchStart)

	if err != nil {
		log.Error("pipeline: lookup failed",
			zap.Stringer("kind", KindOf(err)),
			zap.Bool("verified", rec.Verified),
			zap.Int64("verify_ms", verifyDur.Milliseconds()),
			zap.Int64("research_ms", researchDur.Milliseconds()),
			zap.Int("input_tokens", usage.InputTokens),
			zap.Int("output_tokens", usage.OutputTokens),
			zap.Error(err),
		)
		return nil, err
	}

	log.Info("pipeline: lookup complete",
		zap.Bool("verified", rec.Verified),
		zap.Int("opportunities", len(payload.Opportunities)),
		zap.Int64("verify_ms", verifyDur.Milliseconds()),
		zap.Int64("research_ms", researchDur.Milliseconds()),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
	)
	return payload, nil
}

func (p *Pipeline) verifyTimeout() time.Duration {
	if p.cfg.VerifyTimeoutSecs > 0 {
		return time.Duration(p.cfg.VerifyTimeoutSecs) * time.Second
	}
	return defaultVerifyTimeout
}

func (p *Pipeline) researchTimeout() time.Duration {
	if p.cfg.ResearchTimeoutSecs > 0 {
		return time.Duration(p.cfg.ResearchTimeoutSecs) * time.Second
	}
	return defaultResearchTimeout
}

func (p *Pipeline) logUsage(phase string, res *reasoning.Result, total *model.TokenUsage) {
	total.Add(res.Usage)
	zap.L().Debug("pipeline: phase usage",
		zap.String("phase", phase),
		zap.String("provider", res.Provider),
		zap.Duration("duration", res.Duration),
		zap.Int("input_tokens", res.Usage.InputTokens),
		zap.Int("output_tokens", res.Usage.OutputTokens),
	)
}
