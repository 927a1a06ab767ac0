package scraper

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/models"
	"tweetsync/pkg/request"
)

// Engine is the browser automation capability a session runs on
type Engine interface {
	Login(ctx context.Context) error
	Scrape(ctx context.Context, req *request.ScrapeRequest) (PostStream, error)
	Close() error
}

// PostStream yields posts lazily. Next returns io.EOF once the timeline is
// exhausted.
type PostStream interface {
	Next(ctx context.Context) (models.Post, error)
}

// Flusher is implemented by streams that buffer posts already read off the
// page. The driver drains it when a run stops early.
type Flusher interface {
	Flush() []models.Post
}

// Persister writes a finished session. *storage.Manager satisfies it.
type Persister interface {
	Write(posts []models.Post, includePosterDetails bool) (string, error)
}

// State is a step of the session lifecycle
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateScraping
	StateCompleted
	StateInterrupted
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateScraping:
		return "scraping"
	case StateCompleted:
		return "completed"
	case StateInterrupted:
		return "interrupted"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes a finished session
type Result struct {
	Posts       []models.Post
	Interrupted bool
	// Dropped counts posts discarded for a missing timestamp or content.
	Dropped int
	// Path is the persisted record set; empty when nothing was persisted.
	Path string
	// CollectionErr is the engine failure that ended the scrape early.
	// The collected posts were still persisted.
	CollectionErr error
	Duration      time.Duration
}

// Collected is the number of posts kept by the session
func (r *Result) Collected() int {
	return len(r.Posts)
}

// Options tune a Driver
type Options struct {
	// ProgressInterval logs progress every N posts; 0 disables it.
	ProgressInterval int
	// OnProgress is called after every kept post.
	OnProgress func(collected int, limit request.Limit)
	Logger     logger.Logger
}

// Driver runs one session. It is not reusable.
type Driver struct {
	engine Engine
	store  Persister
	opts   Options
	log    logger.Logger

	mu    sync.RWMutex
	state State
}

// New creates a driver in the Idle state
func New(engine Engine, store Persister, opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	return &Driver{
		engine: engine,
		store:  store,
		opts:   opts,
		log:    log.WithField("component", "session"),
	}
}

// State returns the current lifecycle state
func (d *Driver) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Driver) setState(s State) {
	d.mu.Lock()
	prev := d.state
	d.state = s
	d.mu.Unlock()

	d.log.DebugWithFields("Session state changed", map[string]interface{}{
		"from": prev.String(),
		"to":   s.String(),
	})
}

// Run executes the session. Cancelling ctx is the interrupt signal: posts
// collected so far are persisted and the engine is left alone.
//
// Returned errors are typed: authentication failures end the session
// before anything is written, persistence failures after. Engine failures
// during the scrape are not returned; see Result.CollectionErr.
func (d *Driver) Run(ctx context.Context, req *request.ScrapeRequest) (*Result, error) {
	start := time.Now()
	result := &Result{}

	logger.LogComponentStart("session", map[string]interface{}{
		"target":         req.Describe(),
		"order":          req.Order.String(),
		"limit":          req.Limit.String(),
		"poster_details": req.PosterDetails,
		"headless":       req.Headless.Enabled(),
	})

	d.setState(StateAuthenticating)
	if err := d.engine.Login(ctx); err != nil {
		if ctx.Err() != nil {
			d.setState(StateInterrupted)
			result.Interrupted = true
			result.Duration = time.Since(start)
			logger.LogComponentStop("session", "interrupted during login")
			return result, nil
		}

		d.release()
		d.setState(StateFailed)
		logger.LogComponentStop("session", "authentication failed")
		var typed *apperrors.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, apperrors.Authentication(err, "login as %s failed", req.Credentials.Username)
	}

	d.setState(StateScraping)
	d.collect(ctx, req, result)

	if result.Interrupted {
		d.setState(StateInterrupted)
	} else {
		d.setState(StateCompleted)
	}

	d.setState(StateFinalizing)
	path, err := d.store.Write(result.Posts, req.PosterDetails)
	if !result.Interrupted {
		d.release()
	}
	result.Duration = time.Since(start)
	if err != nil {
		d.setState(StateFailed)
		logger.LogComponentStop("session", "persistence failed")
		if apperrors.IsType(err, apperrors.ErrorTypePersistence) {
			return result, err
		}
		return result, apperrors.Persistence(err, "failed to persist %d posts", len(result.Posts))
	}
	result.Path = path

	d.setState(StateDone)
	d.log.InfoWithFields("Session finished", map[string]interface{}{
		"target":      req.Describe(),
		"collected":   len(result.Posts),
		"dropped":     result.Dropped,
		"interrupted": result.Interrupted,
		"path":        path,
		"duration_ms": result.Duration.Milliseconds(),
	})
	logger.LogComponentStop("session", "done")
	return result, nil
}

// collect runs the scrape loop until the limit, exhaustion, an interrupt
// or an engine failure
func (d *Driver) collect(ctx context.Context, req *request.ScrapeRequest, result *Result) {
	stream, err := d.engine.Scrape(ctx, req)
	if err != nil {
		d.noteStop(ctx, result, err)
		return
	}

	for !req.Limit.Reached(len(result.Posts)) {
		if ctx.Err() != nil {
			result.Interrupted = true
			d.flush(stream, req, result)
			return
		}

		post, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			d.log.Debug("Timeline exhausted")
			return
		}
		if err != nil {
			d.noteStop(ctx, result, err)
			d.flush(stream, req, result)
			return
		}

		d.accept(req, result, post)
	}
}

// flush keeps whatever the stream had buffered when the run stopped
func (d *Driver) flush(stream PostStream, req *request.ScrapeRequest, result *Result) {
	f, ok := stream.(Flusher)
	if !ok {
		return
	}
	for _, post := range f.Flush() {
		if req.Limit.Reached(len(result.Posts)) {
			return
		}
		d.accept(req, result, post)
	}
}

func (d *Driver) accept(req *request.ScrapeRequest, result *Result, post models.Post) {
	if !post.Valid() {
		result.Dropped++
		d.log.WithField("id", post.ID).Debug("Dropping post without timestamp or content")
		return
	}
	result.Posts = append(result.Posts, post)
	d.progress(req, len(result.Posts))
}

func (d *Driver) noteStop(ctx context.Context, result *Result, err error) {
	if ctx.Err() != nil {
		result.Interrupted = true
		return
	}
	result.CollectionErr = apperrors.Collection(err, "scrape stopped after %d posts", len(result.Posts))
	d.log.WithError(err).WithField("collected", len(result.Posts)).Warn("Scrape ended early, keeping collected posts")
}

func (d *Driver) progress(req *request.ScrapeRequest, collected int) {
	if d.opts.OnProgress != nil {
		d.opts.OnProgress(collected, req.Limit)
	}
	if n := d.opts.ProgressInterval; n > 0 && collected%n == 0 {
		limit, _ := req.Limit.Max()
		logger.LogScrapeProgress(req.Describe(), collected, limit)
	}
}

func (d *Driver) release() {
	if err := d.engine.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close browser session")
	}
}
