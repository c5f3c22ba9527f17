package model

import (
	"encoding/json"
)

// Subject identifies the person being researched. All fields arrive trimmed
// and length-checked from the request handler.
type Subject struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// VerificationRecord is the outcome of the identity verification phase.
type VerificationRecord struct {
	Verified         bool     `json:"verified"`
	LinkedInURL      *string  `json:"linkedinUrl"`
	ConfirmedName    *string  `json:"confirmedName"`
	ConfirmedTitle   *string  `json:"confirmedTitle"`
	ConfirmedCompany *string  `json:"confirmedCompany"`
	Evidence         []string `json:"evidence"`
	Notes            string   `json:"notes"`
}

// UnverifiedRecord returns the canonical record used whenever identity
// verification could not be obtained.
func UnverifiedRecord(note string) VerificationRecord {
	if note == "" {
		note = "Identity verification was unavailable."
	}
	return VerificationRecord{
		Verified: false,
		Evidence: []string{},
		Notes:    note,
	}
}

// JSON renders the record exactly as it is embedded in the research
// instruction.
func (r VerificationRecord) JSON() string {
	if r.Evidence == nil {
		r.Evidence = []string{}
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Research is the narrative part of a ResearchPayload.
type Research struct {
	Person  string `json:"person"`
	Role    string `json:"role"`
	Company string `json:"company"`
}

// Opportunity is a single tailored automation opportunity.
type Opportunity struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ResearchPayload is the validated result released to callers.
type ResearchPayload struct {
	Research      Research      `json:"research"`
	Opportunities []Opportunity `json:"opportunities"`
}

// TokenUsage tracks token consumption for one reasoning call.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}
