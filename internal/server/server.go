// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/session"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

type ProgressMessage struct {
	Type  string                `json:"type"`
	Event session.ProgressEvent `json:"event"`
}

type StatusMessage struct {
	Type    string                  `json:"type"`
	Active  bool                    `json:"active"`
	Session *session.Session        `json:"session,omitempty"`
	State   string                  `json:"state,omitempty"`
	Events  []session.ProgressEvent `json:"events"`
}

type RateLimitedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ResultMessage carries a finished run to WebSocket clients, so consumers
// that never called stop (auto-stop) still receive the minutes.
type ResultMessage struct {
	Type     string          `json:"type"`
	Session  session.Session `json:"session"`
	State    string          `json:"state"`
	PageURL  string          `json:"page_url,omitempty"`
	Rendered string          `json:"rendered,omitempty"`
	Error    string          `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// startPayload is the JSON body for POST /api/session/start.
type startPayload struct {
	Title           string   `json:"title"`
	Location        string   `json:"location"`
	Attendees       []string `json:"attendees"`
	DurationMinutes int      `json:"duration_minutes"`
}

// resultResponse is the stop response; partial fields survive a failed run.
type resultResponse struct {
	Session    session.Session `json:"session"`
	State      string          `json:"state"`
	Transcript string          `json:"transcript,omitempty"`
	Summary    any             `json:"summary,omitempty"`
	PageURL    string          `json:"page_url,omitempty"`
	Rendered   string          `json:"rendered,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Pipeline is the meeting lifecycle the server fronts.
type Pipeline interface {
	Start(ctx context.Context, req session.StartRequest) (session.Session, error)
	Stop(ctx context.Context) (*session.Result, error)
	Status() (session.Session, bool)
	Progress() *session.ProgressStore
	Results() <-chan *session.Result
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	pipeline   Pipeline
	started    time.Time
	mu         sync.RWMutex
	conns      map[*websocket.Conn]struct{}
	rateLimits map[*websocket.Conn]*rateLimiter
}

// New creates a new server and starts the broadcasters.
func New(pipeline Pipeline) *Server {
	s := &Server{
		pipeline:   pipeline,
		started:    time.Now(),
		conns:      make(map[*websocket.Conn]struct{}),
		rateLimits: make(map[*websocket.Conn]*rateLimiter),
	}

	go s.broadcastProgress()
	go s.broadcastResults()

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.handleWebSocket)

	// REST API
	mux.HandleFunc("POST /api/session/start", s.handleSessionStart)
	mux.HandleFunc("POST /api/session/stop", s.handleSessionStop)
	mux.HandleFunc("GET /api/session/status", s.handleSessionStatus)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var payload startPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, meeterr.Wrap(err, meeterr.CodeInvalidRequest, "decode start request"))
		return
	}

	req := session.StartRequest{
		Title:         payload.Title,
		Location:      payload.Location,
		Attendees:     payload.Attendees,
		DurationLimit: time.Duration(payload.DurationMinutes) * time.Minute,
	}

	sess, err := s.pipeline.Start(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sess)
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	result, err := s.pipeline.Stop(r.Context())
	if result == nil {
		writeError(w, err)
		return
	}

	resp := resultResponse{
		Session:    result.Session,
		State:      result.Session.State.String(),
		Transcript: result.Transcript,
		PageURL:    result.PageURL,
		Rendered:   result.Rendered,
	}
	if result.Summary != nil {
		resp.Summary = result.Summary
	}

	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(meeterr.CodeOf(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	msg := s.statusMessage()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(msg)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, active := s.pipeline.Status()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.started).String(),
		"meeting": active,
	})
}

func (s *Server) statusMessage() StatusMessage {
	msg := StatusMessage{
		Type:   "status",
		Events: s.pipeline.Progress().Recent(RecentEventCount),
	}
	if sess, ok := s.pipeline.Status(); ok {
		msg.Active = true
		msg.Session = &sess
		msg.State = sess.State.String()
	}
	return msg
}

func writeError(w http.ResponseWriter, err error) {
	code := meeterr.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(code))
	_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error(), Code: string(code)})
}

func statusFor(code meeterr.Code) int {
	switch code {
	case meeterr.CodeInvalidRequest:
		return http.StatusBadRequest
	case meeterr.CodeRateLimited:
		return http.StatusTooManyRequests
	case meeterr.CodeUnavailable, meeterr.CodePublish:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.rateLimits[conn] = &rateLimiter{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.rateLimits, conn)
		s.mu.Unlock()
	}()

	// Get trace context from HTTP upgrade request
	baseCtx := r.Context()
	log := trace.Logger(baseCtx)
	log.Info("websocket connected", "remote", r.RemoteAddr)

	for {
		var msg json.RawMessage
		if err := wsjson.Read(baseCtx, conn, &msg); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		// Check rate limit
		s.mu.RLock()
		rl := s.rateLimits[conn]
		s.mu.RUnlock()

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", r.RemoteAddr)
			_ = wsjson.Write(baseCtx, conn, RateLimitedMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var base Message
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}

		switch base.Type {
		case "status":
			_ = wsjson.Write(baseCtx, conn, s.statusMessage())
		}
	}
}

// broadcastProgress fans pipeline events out to every connected client.
func (s *Server) broadcastProgress() {
	for evt := range s.pipeline.Progress().Events() {
		s.broadcast(ProgressMessage{Type: "progress", Event: evt})
	}
}

// broadcastResults pushes each finished run's minutes to every client.
func (s *Server) broadcastResults() {
	for result := range s.pipeline.Results() {
		msg := ResultMessage{
			Type:     "result",
			Session:  result.Session,
			State:    result.Session.State.String(),
			PageURL:  result.PageURL,
			Rendered: result.Rendered,
		}
		if result.Err != nil {
			msg.Error = result.Err.Error()
		}
		s.broadcast(msg)
	}
}

func (s *Server) broadcast(msg any) {
	s.mu.RLock()
	for conn := range s.conns {
		go func(c *websocket.Conn) {
			_ = wsjson.Write(context.Background(), c, msg)
		}(conn)
	}
	s.mu.RUnlock()
}
