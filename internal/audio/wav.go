package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
)

const wavHeaderLen = 44

// ErrEmptyBuffer is returned when serializing a capture that produced no frames.
var ErrEmptyBuffer = errors.New("audio buffer is empty")

// Encode writes a canonical PCM WAV container: a 44-byte header tagged with
// the capture format followed by all frames in order.
func Encode(w io.Writer, format Format, frames [][]byte) error {
	if len(frames) == 0 {
		return ErrEmptyBuffer
	}

	dataLen := 0
	for _, f := range frames {
		dataLen += len(f)
	}

	header := make([]byte, wavHeaderLen)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataLen))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(format.BytesPerSecond()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(format.Channels*BytesPerSample))
	binary.LittleEndian.PutUint16(header[34:36], 8*BytesPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataLen))

	if _, err := w.Write(header); err != nil {
		return err
	}
	for _, f := range frames {
		if _, err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile serializes the frame buffer to path. Callers must check the
// error; retry policy belongs to them.
func WriteFile(path string, format Format, frames [][]byte) error {
	if len(frames) == 0 {
		return ErrEmptyBuffer
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(f, format, frames); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Decode parses a PCM WAV container, returning the embedded format and the
// raw sample data. A corrupt or non-PCM container yields an audio_decode error.
func Decode(r io.Reader) (Format, []byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Format{}, nil, meeterr.Wrap(err, meeterr.CodeAudioDecode, "read container")
	}
	if len(raw) < wavHeaderLen ||
		!bytes.Equal(raw[0:4], []byte("RIFF")) || !bytes.Equal(raw[8:12], []byte("WAVE")) {
		return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "not a RIFF/WAVE container")
	}

	var format Format
	var data []byte
	sawFmt := false

	// Walk chunks; fmt and data may be preceded by others.
	off := 12
	for off+8 <= len(raw) {
		id := string(raw[off : off+4])
		size := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := off + 8
		if body+size > len(raw) {
			return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "truncated chunk")
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "short fmt chunk")
			}
			if binary.LittleEndian.Uint16(raw[body:body+2]) != 1 {
				return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "not PCM encoded")
			}
			if binary.LittleEndian.Uint16(raw[body+14:body+16]) != 8*BytesPerSample {
				return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "unsupported bit depth")
			}
			format.Channels = int(binary.LittleEndian.Uint16(raw[body+2 : body+4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(raw[body+4 : body+8]))
			sawFmt = true
		case "data":
			data = raw[body : body+size]
		}

		// Chunks are word aligned.
		off = body + size + size%2
	}

	if !sawFmt || data == nil {
		return Format{}, nil, meeterr.New(meeterr.CodeAudioDecode, "missing fmt or data chunk")
	}
	return format, data, nil
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return Format{}, nil, meeterr.Wrap(err, meeterr.CodeAudioDecode, "open container")
	}
	defer f.Close()
	return Decode(f)
}
