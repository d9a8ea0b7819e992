// Package notion publishes meeting records to a Notion database.
package notion

import (
	"context"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/summarize"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
)

// Database property names and fixed values, matching the workspace schema.
const (
	propTitle = "이름"
	propDate  = "이벤트 시간"
	propType  = "유형"

	meetingType    = "팀 주간 회의"
	transcriptName = "전체 회의 내용"

	headingInfo        = "회의 정보"
	headingAgenda      = "주요 안건"
	headingDiscussion  = "논의 내용"
	headingDecisions   = "주요 결정사항"
	headingActionItems = "후속 조치"

	pageURLPrefix = "https://notion.so/"

	// Notion rejects rich text runs longer than 2000 characters.
	maxRichTextLen = 2000
)

// Record is one finished meeting ready for publication.
type Record struct {
	Title      string
	Date       time.Time
	Location   string
	Attendees  []string
	Summary    *summarize.Summary
	Transcript string
}

type pageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Publisher creates structured meeting pages in a single database.
type Publisher struct {
	pages      pageCreator
	databaseID string
}

// NewPublisher connects to the Notion API with an integration token.
func NewPublisher(token, databaseID string) *Publisher {
	client := notionapi.NewClient(notionapi.Token(token))
	return &Publisher{pages: client.Page, databaseID: databaseID}
}

// CreateRecord publishes rec and returns the page URL.
func (p *Publisher) CreateRecord(ctx context.Context, rec Record) (string, error) {
	ctx, span := trace.StartSpan(ctx, "notion.create_record")
	defer span.End()
	span.SetAttr("title", rec.Title)

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.databaseID),
		},
		Properties: p.properties(rec),
		Children:   buildBlocks(rec),
	}

	page, err := p.pages.Create(ctx, req)
	if err != nil {
		return "", meeterr.Wrap(err, meeterr.CodePublish, "create Notion page")
	}

	return PageURL(string(page.ID)), nil
}

// PageURL converts a page ID into its canonical short URL.
func PageURL(pageID string) string {
	return pageURLPrefix + strings.ReplaceAll(pageID, "-", "")
}

func (p *Publisher) properties(rec Record) notionapi.Properties {
	start := notionapi.Date(rec.Date)
	return notionapi.Properties{
		propTitle: notionapi.TitleProperty{
			Title: richText(rec.Title),
		},
		propDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &start},
		},
		propType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: meetingType},
		},
	}
}

// buildBlocks renders the meeting info section, the four summary sections
// as headings with body paragraphs, and the full transcript inside a toggle.
func buildBlocks(rec Record) []notionapi.Block {
	blocks := []notionapi.Block{
		heading(headingInfo),
		paragraph("채널: " + rec.Location),
	}
	if len(rec.Attendees) > 0 {
		blocks = append(blocks, paragraph("참석자: "+strings.Join(rec.Attendees, ", ")))
	}

	summary := rec.Summary
	if summary == nil {
		summary = &summarize.Summary{
			Agenda:      summarize.NoContent,
			Discussion:  summarize.NoContent,
			Decisions:   summarize.NoContent,
			ActionItems: summarize.NoContent,
		}
	}

	sections := []struct {
		label string
		body  string
	}{
		{headingAgenda, summary.Agenda},
		{headingDiscussion, summary.Discussion},
		{headingDecisions, summary.Decisions},
		{headingActionItems, summary.ActionItems},
	}
	for _, s := range sections {
		blocks = append(blocks, heading(s.label))
		for _, chunk := range chunkText(s.body) {
			blocks = append(blocks, paragraph(chunk))
		}
	}

	blocks = append(blocks, transcriptToggle(rec.Transcript))
	return blocks
}

func transcriptToggle(transcript string) notionapi.Block {
	if strings.TrimSpace(transcript) == "" {
		transcript = summarize.NoContent
	}

	var children []notionapi.Block
	for _, chunk := range chunkText(transcript) {
		children = append(children, paragraph(chunk))
	}

	return notionapi.ToggleBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeToggle,
		},
		Toggle: notionapi.Toggle{
			RichText: richText(transcriptName),
			Children: children,
		},
	}
}

func heading(text string) notionapi.Block {
	return notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(text)},
	}
}

func paragraph(text string) notionapi.Block {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(text)},
	}
}

func richText(text string) []notionapi.RichText {
	return []notionapi.RichText{
		{Text: &notionapi.Text{Content: text}},
	}
}

// chunkText splits text into rune-safe pieces under the rich text limit.
func chunkText(text string) []string {
	runes := []rune(text)
	if len(runes) <= maxRichTextLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		n := min(len(runes), maxRichTextLen)
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
