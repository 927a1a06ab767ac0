package twitter

import (
	"context"
	"io"
	"time"

	"github.com/chromedp/chromedp"

	"tweetsync/pkg/models"
	"tweetsync/pkg/retry"
)

const scrollScript = `window.scrollBy(0, Math.max(document.documentElement.clientHeight, 800) * 2)`

// pageSource is what the stream needs from a browser tab
type pageSource interface {
	// timelineHTML returns the current outer HTML of the feed container.
	timelineHTML(ctx context.Context) (string, error)
	scroll(ctx context.Context) error
	posterStats(ctx context.Context, handle string) (ProfileStats, error)
}

// timelineStream scrolls a timeline and serves each tweet once
type timelineStream struct {
	page          pageSource
	base          string
	posterDetails bool
	scrollDelay   time.Duration
	maxIdle       int

	pending []models.Post
	// deferred is a scroll failure held back until pending drains
	deferred error
	seen     map[string]struct{}
	posters  map[string]*models.PosterDetails
	idle     int
}

func newTimelineStream(e *Engine, posterDetails bool) *timelineStream {
	return newStream(enginePage{e}, e.base, posterDetails, e.scrape.ScrollDelay, e.scrape.MaxIdleScrolls)
}

func newStream(page pageSource, base string, posterDetails bool, delay time.Duration, maxIdle int) *timelineStream {
	if maxIdle <= 0 {
		maxIdle = 5
	}
	return &timelineStream{
		page:          page,
		base:          base,
		posterDetails: posterDetails,
		scrollDelay:   delay,
		maxIdle:       maxIdle,
		seen:          make(map[string]struct{}),
		posters:       make(map[string]*models.PosterDetails),
	}
}

// Next returns the next unseen post. io.EOF means maxIdle scrolls in a row
// brought nothing new.
func (s *timelineStream) Next(ctx context.Context) (models.Post, error) {
	for len(s.pending) == 0 {
		if err := s.deferred; err != nil {
			s.deferred = nil
			return models.Post{}, err
		}
		if s.idle >= s.maxIdle {
			return models.Post{}, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return models.Post{}, err
		}
		if err := s.fill(ctx); err != nil {
			return models.Post{}, err
		}
	}

	post := s.pending[0]
	s.pending = s.pending[1:]
	return post, nil
}

// fill extracts the visible tweets, queues the unseen ones and scrolls on
func (s *timelineStream) fill(ctx context.Context) error {
	html, err := s.page.timelineHTML(ctx)
	if err != nil {
		return err
	}
	posts, err := ParseTimeline(html, s.base)
	if err != nil {
		return err
	}

	fresh := 0
	for _, p := range posts {
		key := dedupKey(p)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}

		if s.posterDetails {
			p.Poster = s.poster(ctx, p.Handle)
		}
		s.pending = append(s.pending, p)
		fresh++
	}

	if fresh == 0 {
		s.idle++
	} else {
		s.idle = 0
	}

	err = s.page.scroll(ctx)
	if err == nil {
		err = retry.Wait(ctx, s.scrollDelay)
	}
	if err != nil && len(s.pending) > 0 {
		s.deferred = err
		return nil
	}
	return err
}

// Flush hands over the posts already extracted but not yet served
func (s *timelineStream) Flush() []models.Post {
	posts := s.pending
	s.pending = nil
	return posts
}

// poster looks a handle up once; failed lookups are cached as empty
func (s *timelineStream) poster(ctx context.Context, handle string) *models.PosterDetails {
	if handle == "" {
		return &models.PosterDetails{}
	}
	if d, ok := s.posters[handle]; ok {
		return d
	}

	d := &models.PosterDetails{}
	stats, err := s.page.posterStats(ctx, handle)
	if err == nil {
		d.UserID = stats.UserID
		d.Following = stats.Following
		d.Followers = stats.Followers
	}
	s.posters[handle] = d
	return d
}

func dedupKey(p models.Post) string {
	if p.ID != "" {
		return p.ID
	}
	return p.Handle + "|" + p.Timestamp + "|" + p.Content
}

// enginePage adapts the engine's main tab
type enginePage struct {
	e *Engine
}

func (p enginePage) timelineHTML(ctx context.Context) (string, error) {
	var html string
	err := p.e.run(ctx, chromedp.OuterHTML(FeedContainer, &html, chromedp.ByQuery))
	return html, err
}

func (p enginePage) scroll(ctx context.Context) error {
	return p.e.run(ctx, chromedp.Evaluate(scrollScript, nil))
}

func (p enginePage) posterStats(ctx context.Context, handle string) (ProfileStats, error) {
	stats, err := p.e.fetchProfile(ctx, handle)
	if err != nil {
		p.e.log.WithError(err).WithField("handle", handle).Warn("Poster details unavailable")
	}
	return stats, err
}
