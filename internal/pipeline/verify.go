package pipeline

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/internal/reasoning"
)

const phaseVerify = "verify"

// VerifyIdentity runs the identity verification phase. It never fails: any
// problem yields model.UnverifiedRecord so research can still proceed.
func (p *Pipeline) VerifyIdentity(ctx context.Context, subject model.Subject) model.VerificationRecord {
	return p.verify(ctx, subject, &model.TokenUsage{})
}

func (p *Pipeline) verify(ctx context.Context, subject model.Subject, total *model.TokenUsage) model.VerificationRecord {
	log := zap.L().With(zap.String("phase", phaseVerify), zap.String("company", subject.Company))

	tool := reasoning.RestrictedTo(p.cfg.IdentityDomain)
	tool.MaxUses = p.cfg.VerifyMaxSearches

	res, err := p.invoker.Invoke(ctx, buildVerifyPrompt(subject, p.cfg.IdentityDomain), tool, p.verifyTimeout(), phaseVerify)
	if err != nil {
		log.Warn("pipeline: identity verification unavailable, continuing unverified", zap.Error(err))
		return model.UnverifiedRecord(unverifiedNote(err))
	}
	p.logUsage(phaseVerify, res, total)

	rec, err := parseVerification(Sanitize(res.Text))
	if err != nil {
		log.Warn("pipeline: identity verification unreadable, continuing unverified", zap.Error(err))
		return model.UnverifiedRecord("Identity verification returned an unreadable result.")
	}

	log.Info("pipeline: identity verification complete", zap.Bool("verified", rec.Verified))
	return rec
}

// parseVerification decodes a record and requires the keys that carry the
// verification outcome.
func parseVerification(text string) (model.VerificationRecord, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &keys); err != nil {
		return model.VerificationRecord{}, eris.Wrap(err, "verify: decode")
	}
	for _, k := range []string{"verified", "evidence"} {
		if _, ok := keys[k]; !ok {
			return model.VerificationRecord{}, eris.Errorf("verify: missing key %q", k)
		}
	}

	var rec model.VerificationRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return model.VerificationRecord{}, eris.Wrap(err, "verify: decode record")
	}
	if rec.Evidence == nil {
		rec.Evidence = []string{}
	}
	return rec, nil
}

func unverifiedNote(err error) string {
	switch upstreamError(phaseVerify, err).Kind {
	case KindUpstreamTimeout:
		return "Identity verification timed out."
	case KindMalformedResponse:
		return "Identity verification returned an unreadable result."
	default:
		return "Identity verification service was unavailable."
	}
}
