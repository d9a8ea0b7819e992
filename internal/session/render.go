package session

import (
	"strings"
	"text/template"
	"time"

	"github.com/ovthemoon/AutoMeetingNote/internal/summarize"
)

// minutesTemplate is the chat-facing meeting minutes layout. Next meeting
// fields stay blank until someone schedules one.
const minutesTemplate = `# {{.Title}}

## 회의 정보
- 날짜: {{.Date}}
- 시간: {{.Time}}
- 참석자: {{.Attendees}}
- 장소: {{.Location}}

## 주요 안건
{{.Agenda}}

## 논의 내용
{{.Discussion}}

## 주요 결정사항
{{.Decisions}}

## 후속 조치
{{.ActionItems}}

## 다음 회의
- 날짜: {{.NextMeetingDate}}
- 안건: {{.NextMeetingAgenda}}
`

var minutesTmpl = template.Must(template.New("minutes").Parse(minutesTemplate))

type minutesData struct {
	Title             string
	Date              string
	Time              string
	Attendees         string
	Location          string
	Agenda            string
	Discussion        string
	Decisions         string
	ActionItems       string
	NextMeetingDate   string
	NextMeetingAgenda string
}

// RenderMinutes formats a summary as shareable meeting minutes.
func RenderMinutes(sess Session, summary *summarize.Summary) string {
	if summary == nil {
		summary = &summarize.Summary{
			Agenda:      summarize.NoContent,
			Discussion:  summarize.NoContent,
			Decisions:   summarize.NoContent,
			ActionItems: summarize.NoContent,
		}
	}

	started := sess.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	data := minutesData{
		Title:       sess.Title,
		Date:        started.Format("2006-01-02"),
		Time:        started.Format("15:04"),
		Attendees:   strings.Join(sess.Attendees, ", "),
		Location:    sess.Location,
		Agenda:      summary.Agenda,
		Discussion:  summary.Discussion,
		Decisions:   summary.Decisions,
		ActionItems: summary.ActionItems,
	}

	var sb strings.Builder
	if err := minutesTmpl.Execute(&sb, data); err != nil {
		// The template is static; execution only fails on a bad data type.
		return ""
	}
	return sb.String()
}
