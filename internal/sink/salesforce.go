package sink

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/pkg/salesforce"
)

// Salesforce long text areas hold at most this many characters.
const sfDescriptionLimit = 32000

// Salesforce inserts a Lead-style record per entry.
type Salesforce struct {
	client  salesforce.Client
	sObject string
}

// NewSalesforce returns a Salesforce sink. sObject defaults to "Lead".
func NewSalesforce(client salesforce.Client, sObject string) *Salesforce {
	if sObject == "" {
		sObject = "Lead"
	}
	return &Salesforce{client: client, sObject: sObject}
}

func (s *Salesforce) Name() string { return "salesforce" }

func (s *Salesforce) Append(ctx context.Context, e model.LogEntry) error {
	if _, err := s.client.InsertOne(ctx, s.sObject, leadRecord(e)); err != nil {
		return eris.Wrapf(err, "salesforce: append lookup %s", e.ID)
	}
	return nil
}

func (s *Salesforce) Close() error { return nil }

func leadRecord(e model.LogEntry) map[string]any {
	first, last := splitName(e.Name)
	record := map[string]any{
		"LastName":    last,
		"Title":       e.Title,
		"Company":     e.Company,
		"LeadSource":  "Opportunity Research",
		"Description": truncateRunes(e.ResearchText+"\n\n"+e.OpportunitiesText, sfDescriptionLimit),
	}
	if first != "" {
		record["FirstName"] = first
	}
	return record
}

// splitName treats the final word as the last name.
func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
