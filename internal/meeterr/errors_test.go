package meeterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeAudioDecode, "corrupt header")
	want := "[audio_decode] corrupt header"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUnavailable, "recognition service unreachable")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match cause via errors.Is")
	}
	if CodeOf(err) != CodeUnavailable {
		t.Errorf("CodeOf = %q, want %q", CodeOf(err), CodeUnavailable)
	}
}

func TestCodeOfNested(t *testing.T) {
	inner := New(CodeRateLimited, "quota exceeded")
	outer := fmt.Errorf("segment 3: %w", inner)

	if CodeOf(outer) != CodeRateLimited {
		t.Errorf("CodeOf nested = %q, want %q", CodeOf(outer), CodeRateLimited)
	}
}

func TestCodeOfPlainError(t *testing.T) {
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Error("plain error should map to CodeUnknown")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", New(CodeRateLimited, "429"), true},
		{"unavailable", New(CodeUnavailable, "503"), true},
		{"decode", New(CodeAudioDecode, "bad wav"), false},
		{"invalid request", New(CodeInvalidRequest, "no title"), false},
		{"plain", errors.New("x"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeSegmentRecognition, "segment failed").WithMetadata("segment", "2")
	if err.Metadata["segment"] != "2" {
		t.Error("metadata not set")
	}
	if !IsCode(err, CodeSegmentRecognition) {
		t.Error("IsCode should match")
	}
}
