// Package gallery walks a listing's photo gallery in a headless browser and
// collects the CDN image URLs it shows.
package gallery

import (
	"context"
	"strings"
	"time"

	"imgharvest/pkg/browser"
	"imgharvest/pkg/cookies"
	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/listing"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/retry"
)

// Options configure a Crawler
type Options struct {
	ViewportWidth  int
	ViewportHeight int

	GallerySelector string
	NextSelector    string
	CDNMarker       string

	// MaxAttempts is the number of consecutive iterations without new
	// images after which the crawl stops
	MaxAttempts int
	// MaxSteps bounds the number of iterations regardless of progress
	MaxSteps int

	NavigateTimeout time.Duration
	WaitTimeout     time.Duration
	SettleDelay     time.Duration
	StepDelay       time.Duration

	Logger logger.Logger
}

// DefaultOptions mirrors the defaults of config.InteractiveConfig
func DefaultOptions() Options {
	return Options{
		ViewportWidth:   1920,
		ViewportHeight:  1080,
		GallerySelector: "img",
		NextSelector:    `div[aria-label="Siguiente"], div[aria-label="Next"]`,
		CDNMarker:       "scontent",
		MaxAttempts:     10,
		MaxSteps:        50,
		NavigateTimeout: 20 * time.Second,
		WaitTimeout:     10 * time.Second,
		SettleDelay:     3 * time.Second,
		StepDelay:       time.Second,
	}
}

// Crawler drives one browser session per Crawl call
type Crawler struct {
	launcher browser.Launcher
	opts     Options
	log      logger.Logger
}

// New creates a Crawler. Zero selectors, counts, viewport and timeouts take
// their defaults; zero delays stay zero.
func New(launcher browser.Launcher, opts Options) *Crawler {
	def := DefaultOptions()
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = def.ViewportWidth, def.ViewportHeight
	}
	if opts.GallerySelector == "" {
		opts.GallerySelector = def.GallerySelector
	}
	if opts.NextSelector == "" {
		opts.NextSelector = def.NextSelector
	}
	if opts.CDNMarker == "" {
		opts.CDNMarker = def.CDNMarker
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = def.MaxSteps
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = def.NavigateTimeout
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = def.WaitTimeout
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Crawler{launcher: launcher, opts: opts, log: log.WithField("component", "gallery")}
}

// Crawl opens pageURL, enters its photo gallery and pages through it. The
// returned URLs are unresolved and in discovery order. Only a failure to open
// the browser session is returned as an error; every later failure ends the
// walk with what was collected so far.
func (c *Crawler) Crawl(ctx context.Context, pageURL string, seed []cookies.Record) ([]string, error) {
	log := c.log.WithField("url", pageURL)
	start := time.Now()

	if len(seed) == 0 {
		log.Warn("no session cookies supplied, the gallery may be hidden")
	}

	session, err := c.launcher.OpenSession(ctx, browser.SessionOptions{
		ViewportWidth:  c.opts.ViewportWidth,
		ViewportHeight: c.opts.ViewportHeight,
	})
	if err != nil {
		if errs.TypeOf(err) != errs.ErrorTypeResource {
			err = errs.Resource(err, "open browser session")
		}
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.WithError(cerr).Debug("closing browser session")
		}
	}()

	c.seedCookies(ctx, session, seed, log)
	c.navigate(ctx, session, pageURL, log)
	c.openGallery(ctx, session, log)

	found := &listing.OrderedSet{}
	stable, steps := 0, 0
	reason := "step budget spent"

	for ; steps < c.opts.MaxSteps; steps++ {
		if ctx.Err() != nil {
			reason = "context done"
			break
		}

		if c.collect(ctx, session, found, log) == 0 {
			stable++
		} else {
			stable = 0
		}
		if stable >= c.opts.MaxAttempts {
			reason = "no new images"
			break
		}

		if !c.advance(ctx, session, log) {
			reason = "no next control"
			break
		}
		if err := retry.Wait(ctx, c.opts.StepDelay); err != nil {
			reason = "context done"
			break
		}
	}

	images := found.Items()
	log.InfoWithFields("gallery crawl finished", map[string]interface{}{
		"images":   len(images),
		"steps":    steps,
		"reason":   reason,
		"duration": time.Since(start),
	})
	return images, nil
}

// seedCookies installs the session cookies. A rejected batch leaves the
// session anonymous.
func (c *Crawler) seedCookies(ctx context.Context, s browser.Session, seed []cookies.Record, log logger.Logger) {
	if len(seed) == 0 {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, c.opts.WaitTimeout)
	defer cancel()
	if err := s.SetCookies(cctx, seed); err != nil {
		log.WithError(err).WarnWithFields("session cookies rejected, continuing without them", map[string]interface{}{
			"cookies": len(seed),
		})
	}
}

func (c *Crawler) navigate(ctx context.Context, s browser.Session, pageURL string, log logger.Logger) {
	navCtx, cancel := context.WithTimeout(ctx, c.opts.NavigateTimeout)
	defer cancel()

	if err := s.Navigate(navCtx, pageURL); err != nil {
		log.WithError(err).WarnWithFields("navigation incomplete, continuing with rendered page", map[string]interface{}{
			"error_type": errs.TypeOf(err),
		})
	}
}

func (c *Crawler) openGallery(ctx context.Context, s browser.Session, log logger.Logger) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.WaitTimeout)
	defer cancel()

	if err := s.Click(waitCtx, c.opts.GallerySelector); err != nil {
		log.WithError(err).Debug("could not open photo gallery")
		return
	}
	if err := retry.Wait(ctx, c.opts.SettleDelay); err != nil {
		log.WithError(err).Debug("interrupted while gallery settled")
	}
}

// collect adds every CDN-marked image source to found and returns how many were new
func (c *Crawler) collect(ctx context.Context, s browser.Session, found *listing.OrderedSet, log logger.Logger) int {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.WaitTimeout)
	defer cancel()

	srcs, err := s.Collect(waitCtx)
	if err != nil {
		log.WithError(err).Debug("collecting image sources failed")
		return 0
	}

	added := 0
	for _, src := range srcs {
		if strings.Contains(src, c.opts.CDNMarker) {
			added += found.Add(src)
		}
	}
	if added > 0 {
		log.DebugWithFields("new gallery images", map[string]interface{}{
			"added": added,
			"total": found.Len(),
		})
	}
	return added
}

// advance clicks the next control, reporting false when it is absent or the click fails
func (c *Crawler) advance(ctx context.Context, s browser.Session, log logger.Logger) bool {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.WaitTimeout)
	defer cancel()

	ok, err := s.HasNext(waitCtx, c.opts.NextSelector)
	if err != nil {
		log.WithError(err).Debug("looking for next control failed")
		return false
	}
	if !ok {
		return false
	}
	if err := s.Click(waitCtx, c.opts.NextSelector); err != nil {
		log.WithError(err).Debug("clicking next control failed")
		return false
	}
	return true
}
