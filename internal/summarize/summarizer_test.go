package summarize

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

// recordingCondenser scripts one response per call and records requests.
type recordingCondenser struct {
	mu        sync.Mutex
	responses map[string]string // instruction -> response
	mapCalls  int
	mergeCall int
	mergeText string
	err       error
}

func (c *recordingCondenser) Condense(_ context.Context, instruction, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return "", c.err
	}
	if instruction == mergeInstruction {
		c.mergeCall++
		c.mergeText = text
	} else {
		c.mapCalls++
	}
	return c.responses[instruction], nil
}

const wellFormed = `1. 주요 안건:
신규 기능 출시 일정

2. 논의 내용:
배포 절차와 담당자를 정리했다

3. 주요 결정사항:
다음 주 수요일 배포

4. 후속 조치:
QA 계획서 공유`

func TestSummarizeSingleWindow(t *testing.T) {
	cond := &recordingCondenser{responses: map[string]string{windowInstruction: wellFormed}}
	s := New(cond, 4000, 2)

	got, err := s.Summarize(context.Background(), strings.Repeat("회", 1000)) // fits in one window
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if cond.mapCalls != 1 {
		t.Errorf("map calls = %d, want 1", cond.mapCalls)
	}
	if cond.mergeCall != 0 {
		t.Errorf("merge calls = %d, want 0 for single window", cond.mergeCall)
	}

	if got.Agenda != "신규 기능 출시 일정" {
		t.Errorf("Agenda = %q", got.Agenda)
	}
	if got.Discussion != "배포 절차와 담당자를 정리했다" {
		t.Errorf("Discussion = %q", got.Discussion)
	}
	if got.Decisions != "다음 주 수요일 배포" {
		t.Errorf("Decisions = %q", got.Decisions)
	}
	if got.ActionItems != "QA 계획서 공유" {
		t.Errorf("ActionItems = %q", got.ActionItems)
	}
}

func TestSummarizeThreeWindows(t *testing.T) {
	cond := &recordingCondenser{responses: map[string]string{
		windowInstruction: wellFormed,
		mergeInstruction:  wellFormed,
	}}
	s := New(cond, 4000, 2)

	transcript := strings.Repeat("a", 9000)
	if _, err := s.Summarize(context.Background(), transcript); err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if cond.mapCalls != 3 {
		t.Errorf("map calls = %d, want 3", cond.mapCalls)
	}
	if cond.mergeCall != 1 {
		t.Errorf("merge calls = %d, want 1", cond.mergeCall)
	}

	// Reduce input is the window outputs joined with double newlines, in order.
	if got, want := cond.mergeText, strings.Join([]string{wellFormed, wellFormed, wellFormed}, "\n\n"); got != want {
		t.Error("merge input should be double-newline joined window outputs")
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	cond := &recordingCondenser{}
	s := New(cond, 4000, 2)

	got, err := s.Summarize(context.Background(), "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	for name, section := range map[string]string{
		"Agenda": got.Agenda, "Discussion": got.Discussion,
		"Decisions": got.Decisions, "ActionItems": got.ActionItems,
	} {
		if section != NoContent {
			t.Errorf("%s = %q, want sentinel", name, section)
		}
	}
	if cond.mapCalls != 0 || cond.mergeCall != 0 {
		t.Error("no service calls expected for empty transcript")
	}
}

func TestSummarizeServiceFailure(t *testing.T) {
	cond := &recordingCondenser{err: errors.New("quota exceeded")}
	s := New(cond, 4000, 2)

	got, err := s.Summarize(context.Background(), "회의 내용")
	if err == nil {
		t.Fatal("expected failure when condensation service errors")
	}
	if got != nil {
		t.Error("no partial summary should be produced on failure")
	}
}

func TestSummarizeSingleWindowEqualsMerged(t *testing.T) {
	// Reduce idempotence: for one window the single-pass result must equal
	// what merging that lone output would parse to.
	cond := &recordingCondenser{responses: map[string]string{
		windowInstruction: wellFormed,
		mergeInstruction:  wellFormed,
	}}
	s := New(cond, 4000, 2)

	single, err := s.Summarize(context.Background(), "짧은 회의")
	if err != nil {
		t.Fatal(err)
	}
	merged := parseSummary(wellFormed)
	if *single != *merged {
		t.Errorf("single-window summary %+v != merged %+v", *single, *merged)
	}
}

func TestParseSummaryMissingSections(t *testing.T) {
	partial := "1. 주요 안건:\n예산 검토\n\n잡담 블록\n\n4. 후속 조치:\n보고서 작성"
	got := parseSummary(partial)

	if got.Agenda != "예산 검토" {
		t.Errorf("Agenda = %q", got.Agenda)
	}
	if got.Discussion != NoContent {
		t.Errorf("Discussion = %q, want sentinel", got.Discussion)
	}
	if got.Decisions != NoContent {
		t.Errorf("Decisions = %q, want sentinel", got.Decisions)
	}
	if got.ActionItems != "보고서 작성" {
		t.Errorf("ActionItems = %q", got.ActionItems)
	}
}

func TestParseSummaryNeverEmpty(t *testing.T) {
	inputs := []string{
		"",
		"아무 레이블 없는 텍스트",
		"1. 주요 안건:\n\n\n2. 논의 내용:", // labels with no content
		wellFormed,
	}
	for _, in := range inputs {
		got := parseSummary(in)
		for _, section := range []string{got.Agenda, got.Discussion, got.Decisions, got.ActionItems} {
			if section == "" {
				t.Errorf("parseSummary(%q) produced an empty section", in)
			}
		}
	}
}

func TestSplitWindows(t *testing.T) {
	tests := []struct {
		name    string
		textLen int
		size    int
		want    int
	}{
		{"empty", 0, 4000, 0},
		{"under one window", 3500, 4000, 1},
		{"exact boundary", 8000, 4000, 2},
		{"three windows", 9000, 4000, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wins := splitWindows(strings.Repeat("x", tt.textLen), tt.size)
			if len(wins) != tt.want {
				t.Fatalf("windows = %d, want %d", len(wins), tt.want)
			}
			total := 0
			for _, w := range wins {
				if len(w) > tt.size {
					t.Errorf("window exceeds %d chars", tt.size)
				}
				total += len(w)
			}
			if total != tt.textLen {
				t.Errorf("window lengths sum to %d, want %d", total, tt.textLen)
			}
		})
	}
}

func TestSplitWindowsKoreanBoundaries(t *testing.T) {
	// Korean text is three bytes per character. Every window boundary must
	// land between characters, never inside one.
	text := strings.Repeat("가나다라", 750) // 3000 characters
	wins := splitWindows(text, 1000)

	if len(wins) != 3 {
		t.Fatalf("windows = %d, want 3", len(wins))
	}
	for i, w := range wins {
		if !utf8.ValidString(w) {
			t.Errorf("window %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(w); n != 1000 {
			t.Errorf("window %d has %d characters, want 1000", i, n)
		}
	}
	if strings.Join(wins, "") != text {
		t.Error("windows do not reassemble into the original text")
	}
}
