package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/internal/reasoning"
)

const phaseResearch = "research"

// ResearchOpportunities runs the research phase seeded with rec. Every failure
// is returned as a *Error; there is no fallback payload.
func (p *Pipeline) ResearchOpportunities(ctx context.Context, subject model.Subject, rec model.VerificationRecord) (*model.ResearchPayload, error) {
	return p.research(ctx, subject, rec, &model.TokenUsage{})
}

func (p *Pipeline) research(ctx context.Context, subject model.Subject, rec model.VerificationRecord, total *model.TokenUsage) (*model.ResearchPayload, error) {
	log := zap.L().With(zap.String("phase", phaseResearch), zap.String("company", subject.Company))

	tool := reasoning.Unrestricted()
	tool.MaxUses = p.cfg.ResearchMaxSearches

	prompt := buildResearchPrompt(subject, rec, p.cfg.IdentityDomain)
	res, err := p.invoker.Invoke(ctx, prompt, tool, p.researchTimeout(), phaseResearch)
	if err != nil {
		return nil, upstreamError(phaseResearch, err)
	}
	p.logUsage(phaseResearch, res, total)

	payload, err := ValidatePayload(Sanitize(res.Text))
	if err != nil {
		var pe *Error
		if errors.As(err, &pe) {
			pe.Phase = phaseResearch
			log.Warn("pipeline: research payload rejected",
				zap.Stringer("kind", pe.Kind),
				zap.String("rule", pe.Rule),
				zap.Error(pe.Err),
			)
		}
		return nil, err
	}

	log.Info("pipeline: research complete", zap.Int("opportunities", len(payload.Opportunities)))
	return payload, nil
}
