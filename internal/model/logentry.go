package model

import (
	"fmt"
	"strings"
	"time"
)

// LogEntry is the flattened record handed to logging sinks after a
// successful lookup.
type LogEntry struct {
	ID                string    `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Name              string    `json:"name"`
	Title             string    `json:"title"`
	Company           string    `json:"company"`
	ResearchText      string    `json:"research_text"`
	OpportunitiesText string    `json:"opportunities_text"`
}

// NewLogEntry flattens a validated payload into a LogEntry.
func NewLogEntry(id string, ts time.Time, subject Subject, payload ResearchPayload) LogEntry {
	return LogEntry{
		ID:                id,
		Timestamp:         ts.UTC(),
		Name:              subject.Name,
		Title:             subject.Title,
		Company:           subject.Company,
		ResearchText:      RenderResearch(payload.Research),
		OpportunitiesText: RenderOpportunities(payload.Opportunities),
	}
}

// RenderResearch renders the research paragraphs as labelled blocks.
func RenderResearch(r Research) string {
	return fmt.Sprintf("Person: %s\n\nRole: %s\n\nCompany: %s", r.Person, r.Role, r.Company)
}

// RenderOpportunities renders opportunities as numbered title/description
// blocks separated by blank lines.
func RenderOpportunities(opps []Opportunity) string {
	blocks := make([]string, 0, len(opps))
	for i, o := range opps {
		blocks = append(blocks, fmt.Sprintf("%d. %s\n%s", i+1, o.Title, o.Description))
	}
	return strings.Join(blocks, "\n\n")
}
