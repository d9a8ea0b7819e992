// Package transcribe turns a serialized audio artifact into normalized text
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ovthemoon/AutoMeetingNote/internal/audio"
	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/syncx"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
)

// ErrNoSpeech is the recognizer's sentinel for a segment with no detectable
// speech. It contributes empty text and is not treated as a failure.
var ErrNoSpeech = errors.New("no speech detected")

// Recognizer converts one WAV-serialized audio segment to text.
// Outcomes: recognized text, ErrNoSpeech, or a service/transport error.
type Recognizer interface {
	Recognize(ctx context.Context, wav []byte, language string) (string, error)
}

// segment is one bounded-duration slice of the artifact, indexed to keep
// order stable under parallel recognition.
type segment struct {
	index int
	text  string
	err   error
}

// Transcriber splits an audio artifact into fixed-duration segments,
// recognizes each independently, and joins the results in order.
type Transcriber struct {
	rec            Recognizer
	language       string
	segmentSeconds int
	sem            *syncx.Semaphore
}

// New creates a transcriber. maxParallel bounds concurrent recognition calls.
func New(rec Recognizer, language string, segmentSeconds, maxParallel int) *Transcriber {
	if segmentSeconds < 1 {
		segmentSeconds = DefaultSegmentSeconds
	}
	return &Transcriber{
		rec:            rec,
		language:       language,
		segmentSeconds: segmentSeconds,
		sem:            syncx.NewSemaphore(maxParallel),
	}
}

// Transcribe decodes the artifact at path, recognizes its segments, and
// returns the normalized transcript. Per-segment recognition failures are
// absorbed; a decode failure aborts with an audio_decode error and no
// partial result.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "transcribe")
	defer span.End()
	log := trace.Logger(ctx)

	format, pcm, err := audio.ReadFile(path)
	if err != nil {
		return "", err
	}

	segments := splitPCM(pcm, format, t.segmentSeconds)
	span.SetAttr("segments", len(segments))
	if len(segments) == 0 {
		return "", nil
	}

	results := make([]segment, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		if err := t.sem.Acquire(ctx); err != nil {
			return "", err
		}
		wg.Add(1)
		go func(i int, data []byte) {
			defer wg.Done()
			defer t.sem.Release()

			var buf bytes.Buffer
			if err := audio.Encode(&buf, format, [][]byte{data}); err != nil {
				results[i] = segment{index: i, err: err}
				return
			}
			text, err := t.rec.Recognize(ctx, buf.Bytes(), t.language)
			results[i] = segment{index: i, text: text, err: err}
		}(i, seg)
	}
	wg.Wait()

	parts := make([]string, 0, len(results))
	for _, r := range results {
		switch {
		case r.err == nil:
			if r.text != "" {
				parts = append(parts, r.text)
			}
		case errors.Is(r.err, ErrNoSpeech):
			log.Debug("no speech in segment", "segment", r.index)
		default:
			log.Warn("segment recognition failed",
				"segment", r.index,
				"error", meeterr.Wrap(r.err, meeterr.CodeSegmentRecognition, "recognize segment"))
		}
	}

	return Normalize(strings.Join(parts, " ")), nil
}

// splitPCM slices raw sample data into contiguous segments of at most
// segmentSeconds, aligned to whole sample frames. The final segment may be
// shorter; order is preserved.
func splitPCM(pcm []byte, format audio.Format, segmentSeconds int) [][]byte {
	if len(pcm) == 0 {
		return nil
	}

	frameBytes := format.Channels * audio.BytesPerSample
	segBytes := format.BytesPerSecond() * segmentSeconds
	segBytes -= segBytes % frameBytes
	if segBytes <= 0 {
		segBytes = frameBytes
	}

	var segments [][]byte
	for off := 0; off < len(pcm); off += segBytes {
		end := off + segBytes
		if end > len(pcm) {
			end = len(pcm)
		}
		segments = append(segments, pcm[off:end])
	}
	return segments
}
