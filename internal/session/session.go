// Package session coordinates the meeting pipeline from capture to publication.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/ovthemoon/AutoMeetingNote/internal/summarize"
)

// State is a meeting's position in the pipeline.
type State int

const (
	Idle State = iota
	Recording
	Draining
	Transcribing
	Summarizing
	Publishing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Draining:
		return "draining"
	case Transcribing:
		return "transcribing"
	case Summarizing:
		return "summarizing"
	case Publishing:
		return "publishing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is one meeting's identity and lifecycle.
type Session struct {
	ID            uuid.UUID     `json:"id"`
	Title         string        `json:"title"`
	Location      string        `json:"location"`
	Attendees     []string      `json:"attendees"`
	StartedAt     time.Time     `json:"started_at"`
	DurationLimit time.Duration `json:"duration_limit"`
	State         State         `json:"-"`
}

// StartRequest describes a meeting to begin recording.
type StartRequest struct {
	Title         string        `json:"title"`
	Location      string        `json:"location"`
	Attendees     []string      `json:"attendees"`
	DurationLimit time.Duration `json:"-"`
}

// Result is the outcome of a completed or failed pipeline run.
// Transcript and Summary survive a publish failure so nothing is lost.
type Result struct {
	Session    Session            `json:"session"`
	Transcript string             `json:"transcript"`
	Summary    *summarize.Summary `json:"summary,omitempty"`
	PageURL    string             `json:"page_url,omitempty"`
	Rendered   string             `json:"rendered,omitempty"`
	Err        error              `json:"-"`
}
