package audio

// Capture format constants. The pipeline records at a single fixed format;
// downstream segmenting and serialization assume it.
const (
	DefaultSampleRate   = 44100
	DefaultChannels     = 2
	DefaultFramesPerBuf = 1024

	// BytesPerSample is fixed: 16-bit signed PCM.
	BytesPerSample = 2
)
