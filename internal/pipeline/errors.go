package pipeline

import (
	"errors"
	"fmt"

	"github.com/sells-group/opportunity-research/internal/reasoning"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is any error not produced by the pipeline.
	KindUnknown Kind = iota
	// KindUpstreamTimeout means the reasoning call exceeded its budget.
	KindUpstreamTimeout
	// KindUpstreamServiceError means the reasoning service failed or was unreachable.
	KindUpstreamServiceError
	// KindMalformedResponse means the reply was not a readable JSON object.
	KindMalformedResponse
	// KindSchemaViolation means the reply parsed but broke the payload contract.
	KindSchemaViolation
)

func (k Kind) String() string {
	switch k {
	case KindUpstreamTimeout:
		return "upstream_timeout"
	case KindUpstreamServiceError:
		return "upstream_service_error"
	case KindMalformedResponse:
		return "malformed_response"
	case KindSchemaViolation:
		return "schema_violation"
	default:
		return "unknown"
	}
}

// Schema rule identifiers, in evaluation order.
const (
	RuleParse                 = "parse"
	RuleRequiredKeys          = "required_keys"
	RuleOpportunitiesNonEmpty = "opportunities_non_empty"
	RuleOpportunityFields     = "opportunity_fields"
	RuleResearchFields        = "research_fields"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind  Kind
	Phase string
	// Rule is the first violated schema rule for KindMalformedResponse and
	// KindSchemaViolation.
	Rule string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pipeline: %s", e.Kind)
	if e.Phase != "" {
		msg += " in " + e.Phase
	}
	if e.Rule != "" {
		msg += " (" + e.Rule + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// upstreamError classifies a reasoning adapter failure.
func upstreamError(phase string, err error) *Error {
	kind := KindUpstreamServiceError
	switch {
	case errors.Is(err, reasoning.ErrTimeout):
		kind = KindUpstreamTimeout
	case errors.Is(err, reasoning.ErrUnrecognizedShape):
		kind = KindMalformedResponse
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}
