package gemini

import (
	"errors"
	"testing"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/transcribe"
)

func TestNewRequiresKeys(t *testing.T) {
	_, err := New(nil, "gemini-2.5-flash")
	if meeterr.CodeOf(err) != meeterr.CodeInvalidRequest {
		t.Errorf("New(nil) code = %v, want invalid_request", meeterr.CodeOf(err))
	}

	c, err := New([]string{"key-a"}, "gemini-2.5-flash")
	if err != nil {
		t.Fatalf("New() = %v, want nil", err)
	}
	if c.model != "gemini-2.5-flash" {
		t.Errorf("model = %q", c.model)
	}
}

func TestRotateKeyWrapsAround(t *testing.T) {
	c, err := New([]string{"a", "b", "c"}, "m")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b", "c", "a"}
	for i, w := range want {
		key, idx := c.currentKey()
		if key != w {
			t.Errorf("rotation %d: key = %q, want %q (index %d)", i, key, w, idx)
		}
		c.rotateKey()
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("googleapi: Error 429: rate limit"), true},
		{errors.New("quota exceeded for project"), true},
		{errors.New("rpc error: code = RESOURCE_EXHAUSTED"), true},
		{errors.New("invalid argument"), false},
		{errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		if got := isQuotaError(tt.err); got != tt.want {
			t.Errorf("isQuotaError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsNoSpeech(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   \n ", true},
		{"[NO_SPEECH]", true},
		{"  [NO_SPEECH]  ", true},
		{"회의를 시작하겠습니다", false},
	}

	for _, tt := range tests {
		if got := isNoSpeech(tt.text); got != tt.want {
			t.Errorf("isNoSpeech(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRecognizeOutputEmptyIsNoSpeech(t *testing.T) {
	// An empty model reply on a recognition call means silence, not a
	// service fault. It must surface as ErrNoSpeech so the segment is
	// skipped instead of retried.
	tests := []struct {
		text     string
		want     string
		noSpeech bool
	}{
		{"", "", true},
		{"  \n ", "", true},
		{"[NO_SPEECH]", "", true},
		{"회의를 시작하겠습니다", "회의를 시작하겠습니다", false},
	}

	for _, tt := range tests {
		got, err := recognizeOutput(tt.text)
		if tt.noSpeech {
			if !errors.Is(err, transcribe.ErrNoSpeech) {
				t.Errorf("recognizeOutput(%q) err = %v, want ErrNoSpeech", tt.text, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("recognizeOutput(%q) = (%q, %v), want (%q, nil)", tt.text, got, err, tt.want)
		}
	}
}

func TestCondenseOutputEmptyIsUnavailable(t *testing.T) {
	if _, err := condenseOutput(""); meeterr.CodeOf(err) != meeterr.CodeUnavailable {
		t.Errorf("condenseOutput(\"\") code = %v, want unavailable", meeterr.CodeOf(err))
	}
	if _, err := condenseOutput("  \n"); meeterr.CodeOf(err) != meeterr.CodeUnavailable {
		t.Errorf("condenseOutput(blank) code = %v, want unavailable", meeterr.CodeOf(err))
	}

	got, err := condenseOutput("요약 결과")
	if err != nil || got != "요약 결과" {
		t.Errorf("condenseOutput = (%q, %v), want text through unchanged", got, err)
	}
}

func TestExtractTextNilSafe(t *testing.T) {
	if got := extractText(nil); got != "" {
		t.Errorf("extractText(nil) = %q, want empty", got)
	}
}
