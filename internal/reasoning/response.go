package reasoning

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnrecognizedShape is returned when a provider response carries no text
// where its shape says text should be.
var ErrUnrecognizedShape = eris.New("reasoning: unrecognized response shape")

// Response is the set of response shapes returned by known providers. The
// variants are closed; Extract rejects anything else.
type Response interface {
	variant() string
}

// OutputText is a response that already carries a single aggregated text
// field.
type OutputText struct {
	Text string
}

// OutputItems is an ordered list of output items, of which "message" items
// carry content parts.
type OutputItems struct {
	Items []OutputItem
}

// OutputItem is one entry of OutputItems.
type OutputItem struct {
	Type    string
	Content []ContentPart
}

// ContentPart is one content block of a message item.
type ContentPart struct {
	Type string
	Text string
}

// ContentBlocks is a list of typed blocks where tool activity is interleaved
// with text.
type ContentBlocks struct {
	Blocks []ContentPart
}

// Choices is a chat-completion style list of alternative messages.
type Choices struct {
	Messages []string
}

func (OutputText) variant() string    { return "output_text" }
func (OutputItems) variant() string   { return "output_items" }
func (ContentBlocks) variant() string { return "content_blocks" }
func (Choices) variant() string       { return "choices" }

const (
	itemTypeMessage       = "message"
	partTypeOutputText    = "output_text"
	blockTypeText         = "text"
	blockTypeSearchResult = "web_search_tool_result"
)

// Extract returns the single text payload of resp.
//
// OutputItems: first message item, first output_text part.
// ContentBlocks: text blocks after the last search result block,
// concatenated; every text block when no search ran.
// Choices: the first message.
func Extract(resp Response) (string, error) {
	var text string
	switch r := resp.(type) {
	case OutputText:
		text = r.Text
	case OutputItems:
		text = firstMessageText(r.Items)
	case ContentBlocks:
		text = finalBlockText(r.Blocks)
	case Choices:
		if len(r.Messages) > 0 {
			text = r.Messages[0]
		}
	default:
		return "", eris.Wrapf(ErrUnrecognizedShape, "variant %T", resp)
	}

	if strings.TrimSpace(text) == "" {
		return "", eris.Wrapf(ErrUnrecognizedShape, "no text in %s response", resp.variant())
	}
	return text, nil
}

func firstMessageText(items []OutputItem) string {
	for _, item := range items {
		if item.Type != itemTypeMessage {
			continue
		}
		for _, part := range item.Content {
			if part.Type == partTypeOutputText {
				return part.Text
			}
		}
		return ""
	}
	return ""
}

func finalBlockText(blocks []ContentPart) string {
	start := 0
	for i, b := range blocks {
		if b.Type == blockTypeSearchResult {
			start = i + 1
		}
	}

	var sb strings.Builder
	for _, b := range blocks[start:] {
		if b.Type == blockTypeText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}
