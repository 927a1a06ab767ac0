// Package twitter drives a real browser through x.com with chromedp: it
// signs in, opens the requested timeline and turns the rendered tweets into
// posts.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/pquerna/otp/totp"

	"tweetsync/pkg/config"
	apperrors "tweetsync/pkg/errors"
	"tweetsync/pkg/logger"
	"tweetsync/pkg/request"
	"tweetsync/pkg/retry"
	"tweetsync/pkg/scraper"
)

const pollInterval = 500 * time.Millisecond

var _ scraper.Engine = (*Engine)(nil)

// Engine is a chromedp-backed scraper.Engine. It owns one browser with a
// main tab; poster lookups open short-lived extra tabs.
type Engine struct {
	base   string
	scrape config.ScrapeConfig
	creds  request.Credentials
	log    logger.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	startOnce sync.Once
	startErr  error
	closeOnce sync.Once
}

// NewEngine prepares a browser for req. Chrome is launched lazily by the
// first Login or Scrape call.
func NewEngine(cfg *config.Config, req *request.ScrapeRequest, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}

	userAgent := cfg.Twitter.UserAgent
	if userAgent == "" {
		userAgent = config.DefaultConfig().Twitter.UserAgent
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1280, 1800),
		chromedp.Flag("headless", req.Headless.Enabled()),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	return &Engine{
		base:        normalizeBase(cfg.Twitter.BaseURL),
		scrape:      cfg.Scrape,
		creds:       req.Credentials,
		log:         log.WithField("component", "browser"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}
}

// start launches Chrome on the long-lived tab context so that cancelling a
// single step never tears the browser down.
func (e *Engine) start() error {
	e.startOnce.Do(func() {
		e.log.InfoWithFields("Starting browser", map[string]interface{}{"base_url": e.base})
		e.startErr = chromedp.Run(e.tabCtx,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		)
	})
	if e.startErr != nil {
		return apperrors.Wrap(apperrors.ErrorTypeNetwork, e.startErr, "failed to start browser")
	}
	return nil
}

// run executes actions on the main tab, bounded by the page timeout and
// by ctx.
func (e *Engine) run(ctx context.Context, actions ...chromedp.Action) error {
	return e.runOn(ctx, e.tabCtx, actions...)
}

func (e *Engine) runOn(ctx, tab context.Context, actions ...chromedp.Action) error {
	timeout := e.scrape.PageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	stepCtx, cancel := context.WithTimeout(tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(stepCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (e *Engine) retryConfig(ctx context.Context) *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.Context = ctx
	cfg.Logger = e.log
	cfg.RetryIf = retry.StepRetryIf(ctx)
	if e.scrape.NavigateAttempts > 0 {
		cfg.MaxAttempts = e.scrape.NavigateAttempts
	}
	return cfg
}

// navigate opens url and waits for ready, retrying transient failures
func (e *Engine) navigate(ctx context.Context, url, ready string) error {
	return retry.Do(func() error {
		return e.run(ctx,
			chromedp.Navigate(url),
			chromedp.WaitVisible(ready, chromedp.ByQuery),
		)
	}, e.retryConfig(ctx))
}

// waitForAny polls until one of selectors is present and returns its index
func (e *Engine) waitForAny(ctx context.Context, selectors ...string) (int, error) {
	list, err := json.Marshal(selectors)
	if err != nil {
		return -1, err
	}
	script := fmt.Sprintf(`(() => {
		const s = %s;
		for (let i = 0; i < s.length; i++) {
			if (document.querySelector(s[i])) return i;
		}
		return -1;
	})()`, list)

	timeout := e.scrape.PageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		idx := -1
		if err := e.run(ctx, chromedp.Evaluate(script, &idx)); err != nil {
			return -1, err
		}
		if idx >= 0 {
			return idx, nil
		}
		if time.Now().After(deadline) {
			return -1, fmt.Errorf("none of %v appeared within %s", selectors, timeout)
		}
		if err := retry.Wait(ctx, pollInterval); err != nil {
			return -1, err
		}
	}
}

func (e *Engine) typeInto(ctx context.Context, selector, value string) error {
	return e.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value+kb.Enter, chromedp.ByQuery),
	)
}

// Login signs in through the interactive flow. The site may ask to
// confirm the account with the mail address and, for 2FA accounts, for a
// TOTP code.
func (e *Engine) Login(ctx context.Context) error {
	if err := e.start(); err != nil {
		return err
	}
	if e.creds.Username == "" || e.creds.Password == "" {
		return apperrors.Authentication(nil, "username and password are required")
	}

	log := e.log.WithField("username", e.creds.Username)
	log.Info("Signing in")

	if err := e.navigate(ctx, LoginURL(e.base), UsernameInput); err != nil {
		return e.loginStepErr(ctx, err, "open login page")
	}
	if err := e.typeInto(ctx, UsernameInput, e.creds.Username); err != nil {
		return e.loginStepErr(ctx, err, "enter username")
	}

	step, err := e.waitForAny(ctx, PasswordInput, ChallengeInput, LoginAlert)
	if err != nil {
		return e.loginStepErr(ctx, err, "wait for password prompt")
	}
	switch step {
	case 1:
		identity := e.creds.Mail
		if identity == "" {
			return apperrors.Authentication(nil, "x.com asked to confirm the account but no mail is configured (set --mail or TWITTER_MAIL)")
		}
		log.Debug("Confirming account identity")
		if err := e.typeInto(ctx, ChallengeInput, identity); err != nil {
			return e.loginStepErr(ctx, err, "confirm identity")
		}
	case 2:
		return apperrors.Authentication(nil, "x.com rejected username %s", e.creds.Username)
	}

	if err := e.typeInto(ctx, PasswordInput, e.creds.Password); err != nil {
		return e.loginStepErr(ctx, err, "enter password")
	}

	step, err = e.waitForAny(ctx, HomeIndicator, ChallengeInput, LoginAlert)
	if err != nil {
		return e.loginStepErr(ctx, err, "wait for home timeline")
	}
	switch step {
	case 1:
		if err := e.submitTOTP(ctx); err != nil {
			return err
		}
		step, err = e.waitForAny(ctx, HomeIndicator, LoginAlert)
		if err != nil {
			return e.loginStepErr(ctx, err, "wait for home timeline")
		}
		if step != 0 {
			return apperrors.Authentication(nil, "x.com rejected the verification code")
		}
	case 2:
		return apperrors.Authentication(nil, "x.com rejected the password for %s", e.creds.Username)
	}

	log.Info("Signed in")
	return nil
}

func (e *Engine) submitTOTP(ctx context.Context) error {
	if e.creds.TOTPSecret == "" {
		return apperrors.Authentication(nil, "x.com asked for a verification code but no TOTP secret is configured (TWITTER_TOTP_SECRET)")
	}
	code, err := totp.GenerateCode(e.creds.TOTPSecret, time.Now())
	if err != nil {
		return apperrors.Authentication(err, "failed to generate verification code")
	}
	e.log.Debug("Submitting verification code")
	if err := e.typeInto(ctx, ChallengeInput, code); err != nil {
		return e.loginStepErr(ctx, err, "enter verification code")
	}
	return nil
}

// loginStepErr keeps cancellation recognisable and types everything else
// as an authentication failure
func (e *Engine) loginStepErr(ctx context.Context, err error, step string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Authentication(err, "login step %q timed out", step)
	}
	return apperrors.Authentication(err, "login step %q failed", step)
}

// Scrape opens the target timeline and returns a stream over it
func (e *Engine) Scrape(ctx context.Context, req *request.ScrapeRequest) (scraper.PostStream, error) {
	if err := e.start(); err != nil {
		return nil, err
	}

	target, err := TargetURL(e.base, req)
	if err != nil {
		return nil, err
	}

	e.log.InfoWithFields("Opening timeline", map[string]interface{}{
		"target": req.Describe(),
		"url":    target,
	})
	if err := e.navigate(ctx, target, FeedContainer); err != nil {
		return nil, fmt.Errorf("open %s: %w", target, err)
	}

	return newTimelineStream(e, req.PosterDetails), nil
}

// fetchProfile opens handle's profile in a separate tab and reads its
// counters
func (e *Engine) fetchProfile(ctx context.Context, handle string) (ProfileStats, error) {
	tab, cancel := chromedp.NewContext(e.tabCtx)
	defer cancel()

	if err := chromedp.Run(tab); err != nil {
		return ProfileStats{}, fmt.Errorf("open tab: %w", err)
	}

	var html string
	err := e.runOn(ctx, tab,
		chromedp.Navigate(ProfileURL(e.base, handle)),
		chromedp.WaitVisible(FollowingLink, chromedp.ByQuery),
		chromedp.OuterHTML("body", &html, chromedp.ByQuery),
	)
	if err != nil {
		return ProfileStats{}, err
	}
	return ParseProfileStats(html)
}

// Close shuts the browser down. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.log.Debug("Closing browser")
		e.tabCancel()
		e.allocCancel()
	})
	return nil
}
