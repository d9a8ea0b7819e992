// Package summarize condenses a meeting transcript into a fixed four-section summary
package summarize

import (
	"context"
	"strings"
	"sync"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/syncx"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
)

// Condenser invokes the language-condensation service once.
type Condenser interface {
	Condense(ctx context.Context, instruction, text string) (string, error)
}

// Summary is the terminal four-section artifact. Fields are never empty:
// a section the model did not produce holds the NoContent sentinel.
type Summary struct {
	Agenda      string
	Discussion  string
	Decisions   string
	ActionItems string
}

// Summarizer runs a map-reduce condensation over bounded text windows.
type Summarizer struct {
	cond        Condenser
	windowChars int
	sem         *syncx.Semaphore
}

// New creates a summarizer. maxParallel bounds concurrent window calls.
func New(cond Condenser, windowChars, maxParallel int) *Summarizer {
	if windowChars < 1 {
		windowChars = DefaultWindowChars
	}
	return &Summarizer{
		cond:        cond,
		windowChars: windowChars,
		sem:         syncx.NewSemaphore(maxParallel),
	}
}

// Summarize condenses the transcript. An empty transcript yields an
// all-sentinel summary. Any condensation-service failure on either pass
// aborts the whole summarization with no partial result.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (*Summary, error) {
	ctx, span := trace.StartSpan(ctx, "summarize")
	defer span.End()

	if transcript == "" {
		return &Summary{
			Agenda:      NoContent,
			Discussion:  NoContent,
			Decisions:   NoContent,
			ActionItems: NoContent,
		}, nil
	}

	windows := splitWindows(transcript, s.windowChars)
	span.SetAttr("windows", len(windows))

	outputs := make([]string, len(windows))
	errs := make([]error, len(windows))
	var wg sync.WaitGroup
	for i, win := range windows {
		if err := s.sem.Acquire(ctx); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(i int, win string) {
			defer wg.Done()
			defer s.sem.Release()
			outputs[i], errs[i] = s.cond.Condense(ctx, windowInstruction, win)
		}(i, win)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, meeterr.Wrapf(err, meeterr.CodeCondensation, "condense window %d", i)
		}
	}

	final := outputs[0]
	if len(outputs) > 1 {
		merged, err := s.cond.Condense(ctx, mergeInstruction, strings.Join(outputs, "\n\n"))
		if err != nil {
			return nil, meeterr.Wrap(err, meeterr.CodeCondensation, "merge window summaries")
		}
		final = merged
	}

	return parseSummary(final), nil
}

// splitWindows slices text into contiguous windows of at most windowChars
// characters, preserving order. The final window may be shorter. Windows
// are cut on rune boundaries; a byte cut would split multibyte Korean
// text mid-character.
func splitWindows(text string, windowChars int) []string {
	runes := []rune(text)
	var windows []string
	for off := 0; off < len(runes); off += windowChars {
		end := off + windowChars
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[off:end]))
	}
	return windows
}
