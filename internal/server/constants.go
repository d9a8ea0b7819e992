// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Per-connection WebSocket rate limiting
	RateLimitMessages = 10          // Max inbound messages per window
	RateLimitWindow   = time.Second // Sliding window duration

	// Status events returned to a freshly connected client
	RecentEventCount = 20
)
