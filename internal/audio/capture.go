// Package audio handles microphone capture and WAV serialization
package audio

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
)

// Format describes the fixed capture format: 16-bit signed PCM.
type Format struct {
	SampleRate   int
	Channels     int
	FramesPerBuf int
}

// DefaultFormat returns the stereo 44.1kHz capture format.
func DefaultFormat() Format {
	return Format{
		SampleRate:   DefaultSampleRate,
		Channels:     DefaultChannels,
		FramesPerBuf: DefaultFramesPerBuf,
	}
}

// FrameBytes returns the byte length of one captured frame.
func (f Format) FrameBytes() int {
	return f.FramesPerBuf * f.Channels * BytesPerSample
}

// BytesPerSecond returns the PCM data rate for this format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * BytesPerSample
}

// Recorder captures audio from the default input device into an owned,
// append-only frame buffer. The capture loop runs on its own goroutine;
// the buffer is handed out read-only only after Stop has joined the loop.
type Recorder struct {
	format Format

	mu        sync.Mutex
	capturing bool
	frames    [][]byte
	stream    *portaudio.Stream
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRecorder creates a recorder for the given format.
func NewRecorder(format Format) *Recorder {
	return &Recorder{format: format}
}

// Format returns the capture format.
func (r *Recorder) Format() Format { return r.format }

// Start opens the default input stream and begins the capture loop.
// It is a no-op if capture is already running.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capturing {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return meeterr.Wrap(err, meeterr.CodeCaptureFailed, "initialize audio host")
	}

	buf := make([]int16, r.format.FramesPerBuf*r.format.Channels)
	stream, err := portaudio.OpenDefaultStream(
		r.format.Channels, 0, float64(r.format.SampleRate), r.format.FramesPerBuf, buf)
	if err != nil {
		_ = portaudio.Terminate()
		return meeterr.Wrap(err, meeterr.CodeCaptureFailed, "open input stream")
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return meeterr.Wrap(err, meeterr.CodeCaptureFailed, "start input stream")
	}

	loopCtx, cancel := loopContext(ctx)
	r.capturing = true
	r.frames = nil
	r.stream = stream
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.captureLoop(loopCtx, stream, buf)

	slog.Info("audio capture started",
		"sample_rate", r.format.SampleRate, "channels", r.format.Channels)
	return nil
}

// loopContext derives the capture loop's context. The loop's lifetime is
// owned by the recorder: only Stop ends it. The caller's context (often a
// request context that is cancelled when the handler returns) contributes
// values only, never cancelation.
func loopContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(ctx))
}

// captureLoop reads fixed-size frames until cancelled. A read error ends
// the loop early; frames captured so far stay usable.
func (r *Recorder) captureLoop(ctx context.Context, stream *portaudio.Stream, buf []int16) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			slog.Warn("audio read error, ending capture", "error", err)
			return
		}

		frame := make([]byte, len(buf)*BytesPerSample)
		for i, s := range buf {
			binary.LittleEndian.PutUint16(frame[i*2:], uint16(s))
		}

		r.mu.Lock()
		r.frames = append(r.frames, frame)
		r.mu.Unlock()
	}
}

// Stop signals the capture loop to end and blocks until it has exited and
// the stream is released. It is a no-op if capture is not running.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if !r.capturing {
		r.mu.Unlock()
		return
	}
	r.capturing = false
	cancel, done, stream := r.cancel, r.done, r.stream
	r.cancel, r.done, r.stream = nil, nil, nil
	r.mu.Unlock()

	cancel()
	<-done

	_ = stream.Stop()
	_ = stream.Close()
	_ = portaudio.Terminate()

	r.mu.Lock()
	n := len(r.frames)
	r.mu.Unlock()
	slog.Info("audio capture stopped", "frames", n)
}

// Frames returns the accumulated frame buffer. Call only after Stop; the
// returned slices must be treated as read-only.
func (r *Recorder) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}
