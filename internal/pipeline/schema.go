package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-research/internal/model"
)

// ValidatePayload parses text as a ResearchPayload and checks it against the
// payload contract. Rules are checked in order and the first violation is
// returned; nothing is defaulted or repaired.
func ValidatePayload(text string) (*model.ResearchPayload, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil, malformed(eris.Wrap(err, "decode payload"))
	}
	if root == nil {
		return nil, malformed(eris.New("payload is null"))
	}

	rawResearch, hasResearch := root["research"]
	rawOpps, hasOpps := root["opportunities"]
	if !hasResearch || !hasOpps {
		var missing []string
		if !hasResearch {
			missing = append(missing, "research")
		}
		if !hasOpps {
			missing = append(missing, "opportunities")
		}
		return nil, violation(RuleRequiredKeys, "missing keys: %s", strings.Join(missing, ", "))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawOpps, &items); err != nil {
		return nil, violation(RuleOpportunitiesNonEmpty, "opportunities is not an array")
	}
	if len(items) == 0 {
		return nil, violation(RuleOpportunitiesNonEmpty, "opportunities is empty")
	}

	opps := make([]model.Opportunity, 0, len(items))
	for i, raw := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			return nil, violation(RuleOpportunityFields, "opportunities[%d] is not an object", i)
		}
		title, ok := nonEmptyString(obj, "title")
		if !ok {
			return nil, violation(RuleOpportunityFields, "opportunities[%d].title is missing or empty", i)
		}
		desc, ok := nonEmptyString(obj, "description")
		if !ok {
			return nil, violation(RuleOpportunityFields, "opportunities[%d].description is missing or empty", i)
		}
		opps = append(opps, model.Opportunity{Title: title, Description: desc})
	}

	var research map[string]json.RawMessage
	if err := json.Unmarshal(rawResearch, &research); err != nil || research == nil {
		return nil, violation(RuleResearchFields, "research is not an object")
	}
	var fields [3]string
	for i, key := range []string{"person", "role", "company"} {
		v, ok := nonEmptyString(research, key)
		if !ok {
			return nil, violation(RuleResearchFields, "research.%s is missing or empty", key)
		}
		fields[i] = v
	}

	return &model.ResearchPayload{
		Research: model.Research{
			Person:  fields[0],
			Role:    fields[1],
			Company: fields[2],
		},
		Opportunities: opps,
	}, nil
}

func nonEmptyString(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func malformed(err error) *Error {
	return &Error{Kind: KindMalformedResponse, Rule: RuleParse, Err: err}
}

func violation(rule, format string, args ...any) *Error {
	return &Error{Kind: KindSchemaViolation, Rule: rule, Err: eris.New(fmt.Sprintf(format, args...))}
}
