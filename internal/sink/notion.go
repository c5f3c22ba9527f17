package sink

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/pkg/notion"
)

// Notion rejects rich text objects longer than this many characters.
const notionTextLimit = 2000

// Notion creates one page per entry in a Notion database.
type Notion struct {
	client     notion.Client
	databaseID string
}

// NewNotion returns a Notion sink writing to databaseID.
func NewNotion(client notion.Client, databaseID string) *Notion {
	return &Notion{client: client, databaseID: databaseID}
}

func (n *Notion) Name() string { return "notion" }

func (n *Notion) Append(ctx context.Context, e model.LogEntry) error {
	if _, err := n.client.CreatePage(ctx, notionPage(n.databaseID, e)); err != nil {
		return eris.Wrapf(err, "notion: append lookup %s", e.ID)
	}
	return nil
}

func (n *Notion) Close() error { return nil }

func notionPage(databaseID string, e model.LogEntry) *notionapi.PageCreateRequest {
	ts := notionapi.Date(e.Timestamp.UTC().Truncate(time.Second))
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: notionapi.Properties{
			"Name": notionapi.TitleProperty{
				Type:  notionapi.PropertyTypeTitle,
				Title: richText(e.Name),
			},
			"Title": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(e.Title),
			},
			"Company": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(e.Company),
			},
			"Lookup ID": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(e.ID),
			},
			"Research": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(e.ResearchText),
			},
			"Opportunities": notionapi.RichTextProperty{
				Type:     notionapi.PropertyTypeRichText,
				RichText: richText(e.OpportunitiesText),
			},
			"Looked Up": notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &ts},
			},
		},
	}
}

// richText splits s into text objects no longer than notionTextLimit runes.
func richText(s string) []notionapi.RichText {
	runes := []rune(s)
	out := make([]notionapi.RichText, 0, len(runes)/notionTextLimit+1)
	for len(runes) > 0 {
		n := min(len(runes), notionTextLimit)
		out = append(out, notionapi.RichText{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: string(runes[:n])},
		})
		runes = runes[n:]
	}
	if len(out) == 0 {
		out = append(out, notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{}})
	}
	return out
}
