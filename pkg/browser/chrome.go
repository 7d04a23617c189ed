package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"imgharvest/pkg/config"
	"imgharvest/pkg/cookies"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/logger"
)

const collectImagesJS = `Array.from(document.images).map(img => img.currentSrc || img.src).filter(Boolean)`

// ChromeLauncher starts a dedicated headless Chrome per session via chromedp
type ChromeLauncher struct {
	cfg config.BrowserConfig
	log logger.Logger
}

// NewChromeLauncher creates a launcher from browser settings
func NewChromeLauncher(cfg config.BrowserConfig, log logger.Logger) *ChromeLauncher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &ChromeLauncher{cfg: cfg, log: log.WithField("component", "chrome")}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", l.cfg.NoSandbox),
		chromedp.Flag("disable-setuid-sandbox", l.cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	return opts
}

// OpenSession launches Chrome and sizes the viewport. Failures are resource
// errors.
func (l *ChromeLauncher) OpenSession(ctx context.Context, opts SessionOptions) (Session, error) {
	// The browser lives until Close, independent of the caller's deadline.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), l.allocatorOptions()...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	session := &chromeSession{
		ctx:    browserCtx,
		cancel: func() { cancelBrowser(); cancelAlloc() },
	}

	// The first Run allocates the browser and must use the session context
	// itself, otherwise the browser dies with the derived one.
	stop := context.AfterFunc(ctx, session.cancel)
	err := chromedp.Run(session.ctx)
	stop()
	if err == nil {
		err = session.run(ctx, chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight)))
	}
	if err != nil {
		session.cancel()
		return nil, errs.Resource(err, "launch browser")
	}

	l.log.DebugWithFields("browser session opened", map[string]interface{}{
		"viewport": fmt.Sprintf("%dx%d", opts.ViewportWidth, opts.ViewportHeight),
		"headless": l.cfg.Headless,
	})
	return session, nil
}

// cookieParams converts records to CDP cookie parameters. Records without a
// name or a domain are skipped since Chrome rejects the whole batch for them.
func cookieParams(records []cookies.Record) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(records))
	for _, r := range records {
		if r.Name == "" || r.Domain == "" {
			continue
		}
		p := &network.CookieParam{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
		}
		if !r.Session() {
			exp := cdp.TimeSinceEpoch(r.ExpiresAt())
			p.Expires = &exp
		}
		switch ss := network.CookieSameSite(r.SameSite); ss {
		case network.CookieSameSiteStrict, network.CookieSameSiteLax, network.CookieSameSiteNone:
			p.SameSite = ss
		}
		params = append(params, p)
	}
	return params
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the browser context, bounded by ctx
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) SetCookies(ctx context.Context, records []cookies.Record) error {
	params := cookieParams(records)
	if len(params) == 0 {
		return nil
	}
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return errs.Automation(err, "set %d cookies", len(params))
	}
	return nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return errs.Automation(err, "navigate to %s", url)
	}
	return nil
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return errs.Automation(err, "encode selector")
	}
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); if (!el) return false; el.click(); return true; })()`, quoted)

	var clicked bool
	if err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, &clicked),
	); err != nil {
		return errs.Automation(err, "click %s", selector)
	}
	if !clicked {
		return errs.Automation(nil, "click %s: element vanished", selector)
	}
	return nil
}

func (s *chromeSession) Collect(ctx context.Context) ([]string, error) {
	var srcs []string
	if err := s.run(ctx, chromedp.Evaluate(collectImagesJS, &srcs)); err != nil {
		return nil, errs.Automation(err, "collect image sources")
	}
	return srcs, nil
}

func (s *chromeSession) HasNext(ctx context.Context, selector string) (bool, error) {
	err := s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded):
		return false, nil
	default:
		return false, errs.Automation(err, "wait for %s", selector)
	}
}

func (s *chromeSession) Close() error {
	s.cancel()
	return nil
}
