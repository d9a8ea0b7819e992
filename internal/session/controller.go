package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/ovthemoon/AutoMeetingNote/internal/audio"
	"github.com/ovthemoon/AutoMeetingNote/internal/meeterr"
	"github.com/ovthemoon/AutoMeetingNote/internal/notion"
	"github.com/ovthemoon/AutoMeetingNote/internal/summarize"
	"github.com/ovthemoon/AutoMeetingNote/internal/syncx"
	"github.com/ovthemoon/AutoMeetingNote/internal/trace"
)

const DefaultDurationLimit = 60 * time.Minute

// Recorder captures audio frames between Start and Stop.
type Recorder interface {
	Start(ctx context.Context) error
	Stop()
	Format() audio.Format
	Frames() [][]byte
}

// Transcriber turns a saved recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Summarizer condenses a transcript into structured sections.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*summarize.Summary, error)
}

// Publisher persists a finished meeting record externally.
type Publisher interface {
	CreateRecord(ctx context.Context, rec notion.Record) (string, error)
}

// Options configures a Controller.
type Options struct {
	TempDir         string
	DefaultDuration time.Duration
}

// slot is the single active meeting plus its auto-stop timer.
type slot struct {
	sess  *Session
	timer *time.Timer
}

// Controller runs one meeting at a time through the full pipeline.
type Controller struct {
	rec      Recorder
	tr       Transcriber
	sum      Summarizer
	pub      Publisher
	progress *ProgressStore

	tempDir         string
	defaultDuration time.Duration

	active  *syncx.RWGuard[slot]
	results chan *Result
}

func NewController(rec Recorder, tr Transcriber, sum Summarizer, pub Publisher, opts Options) *Controller {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultDurationLimit
	}
	return &Controller{
		rec:             rec,
		tr:              tr,
		sum:             sum,
		pub:             pub,
		progress:        NewProgressStore(),
		tempDir:         opts.TempDir,
		defaultDuration: opts.DefaultDuration,
		active:          syncx.NewGuard(slot{}),
		results:         make(chan *Result, 4),
	}
}

// Results delivers each finished or failed pipeline run exactly once.
func (c *Controller) Results() <-chan *Result {
	return c.results
}

// Progress exposes the pipeline event store.
func (c *Controller) Progress() *ProgressStore {
	return c.progress
}

// Status returns a snapshot of the active session, if any. The snapshot is
// taken under the guard because the pipeline mutates session state in place.
func (c *Controller) Status() (Session, bool) {
	res := c.active.Read(func(s slot) any {
		if s.sess == nil {
			return nil
		}
		return *s.sess
	})
	if res == nil {
		return Session{}, false
	}
	return res.(Session), true
}

// Start validates the request, begins capture, and arms the auto-stop timer.
func (c *Controller) Start(ctx context.Context, req StartRequest) (Session, error) {
	if strings.TrimSpace(req.Title) == "" {
		return Session{}, meeterr.New(meeterr.CodeInvalidRequest, "meeting title required")
	}
	if strings.TrimSpace(req.Location) == "" {
		return Session{}, meeterr.New(meeterr.CodeInvalidRequest, "meeting location required")
	}

	limit := req.DurationLimit
	if limit <= 0 {
		limit = c.defaultDuration
	}

	sess := &Session{
		ID:            uuid.New(),
		Title:         req.Title,
		Location:      req.Location,
		Attendees:     req.Attendees,
		StartedAt:     time.Now(),
		DurationLimit: limit,
		State:         Recording,
	}

	var snap Session
	res := c.active.Update(func(s *slot) any {
		if s.sess != nil {
			if s.sess.State == Recording {
				return meeterr.New(meeterr.CodeInvalidRequest, "meeting already in progress")
			}
			return meeterr.New(meeterr.CodeInvalidRequest, "previous meeting is still being processed")
		}
		if err := c.rec.Start(ctx); err != nil {
			return meeterr.Wrap(err, meeterr.CodeCaptureFailed, "start audio capture")
		}
		s.sess = sess
		s.timer = time.AfterFunc(limit, func() { c.autoStop(sess.ID) })
		snap = *sess
		return nil
	})
	if res != nil {
		return Session{}, res.(error)
	}

	trace.Logger(ctx).Info("meeting started",
		"session", sess.ID, "title", sess.Title, "location", sess.Location, "limit", limit)
	c.emit(snap, PercentDraining, fmt.Sprintf("'%s' 회의 녹음을 시작합니다", sess.Title))
	return snap, nil
}

// autoStop fires when the duration limit elapses. The stop claim verifies
// the session ID, so a stale timer never touches a newer meeting.
func (c *Controller) autoStop(id uuid.UUID) {
	ctx := context.Background()
	_, err := c.stop(ctx, id)
	switch {
	case err == nil:
		trace.Logger(ctx).Info("duration limit reached, meeting stopped", "session", id)
	case meeterr.IsCode(err, meeterr.CodeInvalidRequest):
		// Session was already stopped or replaced; nothing to do.
	default:
		trace.Logger(ctx).Error("auto-stop pipeline failed", "session", id, "error", err)
	}
}

// Stop ends capture and runs the rest of the pipeline synchronously. The
// slot stays occupied until the pipeline reaches a terminal state, so no
// new meeting can reset the recorder while frames are still being drained.
func (c *Controller) Stop(ctx context.Context) (*Result, error) {
	return c.stop(ctx, uuid.Nil)
}

// stop claims the active session for processing. A non-nil id claims only
// that specific session.
func (c *Controller) stop(ctx context.Context, only uuid.UUID) (*Result, error) {
	var sess *Session
	var timer *time.Timer

	res := c.active.Update(func(s *slot) any {
		if s.sess == nil {
			return meeterr.New(meeterr.CodeInvalidRequest, "no active meeting")
		}
		if only != uuid.Nil && s.sess.ID != only {
			return meeterr.New(meeterr.CodeInvalidRequest, "meeting already stopped")
		}
		if s.sess.State != Recording {
			return meeterr.New(meeterr.CodeInvalidRequest, "meeting is already being processed")
		}
		sess, timer = s.sess, s.timer
		s.timer = nil
		s.sess.State = Draining
		return nil
	})
	if res != nil {
		return nil, res.(error)
	}
	if timer != nil {
		timer.Stop()
	}

	defer c.release(sess)
	return c.runPipeline(ctx, sess)
}

// release frees the slot once the session has reached a terminal state.
func (c *Controller) release(sess *Session) {
	c.active.Update(func(s *slot) any {
		if s.sess == sess {
			s.sess, s.timer = nil, nil
		}
		return nil
	})
}

// transition moves the session to the next state under the guard and
// returns a consistent snapshot.
func (c *Controller) transition(sess *Session, st State) Session {
	var snap Session
	c.active.Update(func(*slot) any {
		sess.State = st
		snap = *sess
		return nil
	})
	return snap
}

func (c *Controller) runPipeline(ctx context.Context, sess *Session) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline")
	defer span.End()
	span.SetAttr("session", sess.ID.String())

	c.emit(c.transition(sess, Draining), PercentDraining, "녹음을 종료하고 파일을 저장하는 중입니다")
	c.rec.Stop()

	path := filepath.Join(c.tempDir, fmt.Sprintf("meeting_%s_%s.wav", sanitizeName(sess.Location), sess.ID))
	if err := audio.WriteFile(path, c.rec.Format(), c.rec.Frames()); err != nil {
		return c.fail(ctx, sess, &Result{}, PercentDraining,
			meeterr.Wrap(err, meeterr.CodeSaveFailed, "save recording"))
	}
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			trace.Logger(ctx).Warn("remove temp recording", "path", path, "error", err)
		}
	}()

	c.emit(c.transition(sess, Transcribing), PercentTranscribing, "음성을 텍스트로 변환하는 중입니다")
	transcript, err := c.tr.Transcribe(ctx, path)
	if err != nil {
		return c.fail(ctx, sess, &Result{}, PercentTranscribing, err)
	}

	c.emit(c.transition(sess, Summarizing), PercentSummarizing, "회의 내용을 요약하는 중입니다")
	summary, err := c.sum.Summarize(ctx, transcript)
	if err != nil {
		return c.fail(ctx, sess, &Result{Transcript: transcript}, PercentSummarizing, err)
	}

	snap := c.transition(sess, Publishing)
	c.emit(snap, PercentRendering, "회의록을 구성하는 중입니다")
	rendered := RenderMinutes(snap, summary)
	result := &Result{
		Transcript: transcript,
		Summary:    summary,
		Rendered:   rendered,
	}

	c.emit(snap, PercentPublishing, "Notion에 회의록을 저장하는 중입니다")
	url, err := c.pub.CreateRecord(ctx, notion.Record{
		Title:      sess.Title,
		Date:       sess.StartedAt,
		Location:   sess.Location,
		Attendees:  sess.Attendees,
		Summary:    summary,
		Transcript: transcript,
	})
	if err != nil {
		return c.fail(ctx, sess, result, PercentPublishing, err)
	}

	done := c.transition(sess, Done)
	result.Session = done
	result.PageURL = url
	c.emit(done, PercentDone, "회의록이 Notion에 저장되었습니다: "+url)
	trace.Logger(ctx).Info("meeting pipeline complete", "session", sess.ID, "url", url)
	c.deliver(result)
	return result, nil
}

// Abort discards a recording meeting without running the pipeline. A
// session already past Recording belongs to its pipeline and is left
// alone. Reports whether a meeting was discarded.
func (c *Controller) Abort() bool {
	var sess *Session
	var timer *time.Timer

	res := c.active.Update(func(s *slot) any {
		if s.sess == nil || s.sess.State != Recording {
			return false
		}
		sess, timer = s.sess, s.timer
		s.sess, s.timer = nil, nil
		return true
	})
	if !res.(bool) {
		return false
	}
	if timer != nil {
		timer.Stop()
	}

	c.rec.Stop()
	sess.State = Failed
	c.emit(*sess, PercentDraining, "회의가 중단되었습니다")
	return true
}

// fail marks the session failed, preserving whatever the pipeline produced.
func (c *Controller) fail(ctx context.Context, sess *Session, partial *Result, percent int, err error) (*Result, error) {
	snap := c.transition(sess, Failed)
	partial.Session = snap
	partial.Err = err

	trace.Logger(ctx).Error("meeting pipeline failed",
		"session", sess.ID, "code", meeterr.CodeOf(err), "error", err)
	c.emit(snap, percent, err.Error())
	c.deliver(partial)
	return partial, err
}

// deliver hands the result to subscribers without blocking the pipeline.
func (c *Controller) deliver(result *Result) {
	select {
	case c.results <- result:
	default:
	}
}

func (c *Controller) emit(sess Session, percent int, msg string) {
	c.progress.Emit(ProgressEvent{
		SessionID: sess.ID.String(),
		State:     sess.State.String(),
		Percent:   percent,
		Message:   msg,
	})
}

// sanitizeName keeps the location recognizable in the recording's file
// name while blocking path traversal through user input.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
}
