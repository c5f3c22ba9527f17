package server

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/opportunity-research/internal/model"
)

// Field length limits, in characters.
const (
	MaxNameLen    = 100
	MaxTitleLen   = 150
	MaxCompanyLen = 150
)

// SubjectRequest is the inbound lookup body.
type SubjectRequest struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

var injectionPattern = regexp.MustCompile(
	`(?i)<\s*/?\s*(script|iframe|object|embed|svg|img)\b|javascript\s*:|\bon[a-z]+\s*=|\$\{|\{\{|--\s*$|;\s*(drop|delete|insert|update)\s|\bunion\s+select\b`,
)

// ValidateSubject normalizes req and checks every field. It returns the
// cleaned Subject and the list of violated rules, empty when valid.
func ValidateSubject(req SubjectRequest) (model.Subject, []string) {
	s := model.Subject{
		Name:    clean(req.Name),
		Title:   clean(req.Title),
		Company: clean(req.Company),
	}

	var details []string
	details = append(details, checkField("name", s.Name, MaxNameLen)...)
	details = append(details, checkField("title", s.Title, MaxTitleLen)...)
	details = append(details, checkField("company", s.Company, MaxCompanyLen)...)
	return s, details
}

func checkField(field, value string, limit int) []string {
	if value == "" {
		return []string{fmt.Sprintf("%s is required", field)}
	}
	var out []string
	if utf8.RuneCountInString(value) > limit {
		out = append(out, fmt.Sprintf("%s must be at most %d characters", field, limit))
	}
	if injectionPattern.MatchString(value) {
		out = append(out, fmt.Sprintf("%s contains disallowed content", field))
	}
	return out
}

// clean applies NFC normalization, drops control characters and trims.
func clean(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.Predicate(unicode.IsControl)))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}
