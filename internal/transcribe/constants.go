package transcribe

// DefaultSegmentSeconds bounds the duration of each recognition request.
const DefaultSegmentSeconds = 30
