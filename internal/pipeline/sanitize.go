package pipeline

import "strings"

const fence = "```"

// Sanitize strips markdown code fences a model may wrap around JSON and trims
// surrounding whitespace. It never fails and Sanitize(Sanitize(x)) equals
// Sanitize(x).
func Sanitize(text string) string {
	for {
		next := strings.TrimSpace(text)
		next = stripLeadingFence(next)
		next = strings.TrimSpace(next)
		next = strings.TrimSuffix(next, fence)
		next = strings.TrimSpace(next)
		if next == text {
			return next
		}
		text = next
	}
}

// stripLeadingFence removes an opening fence and its optional language tag.
// An unknown tag glued to the payload is kept, since it may be payload.
func stripLeadingFence(s string) string {
	if !strings.HasPrefix(s, fence) {
		return s
	}
	rest := s[len(fence):]

	i := 0
	for i < len(rest) && isTagByte(rest[i]) {
		i++
	}
	if i == len(rest) || isSpace(rest[i]) || payloadTags[strings.ToLower(rest[:i])] {
		return rest[i:]
	}
	return rest
}

// payloadTags are language tags stripped even when the payload follows with no
// separating whitespace.
var payloadTags = map[string]bool{
	"json":       true,
	"json5":      true,
	"jsonc":      true,
	"javascript": true,
	"js":         true,
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '-' || b == '_' || b == '+'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
