// Package pipeline routes a listing URL to the matching extraction strategy
// and returns the uniform result record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"imgharvest/internal/prober"
	"imgharvest/pkg/browser"
	"imgharvest/pkg/config"
	"imgharvest/pkg/cookies"
	"imgharvest/pkg/dimfilter"
	"imgharvest/pkg/gallery"
	"imgharvest/pkg/headers"
	"imgharvest/pkg/listing"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
	"imgharvest/pkg/static"
)

// ErrInvalidRequest is returned for requests that cannot be run at all
var ErrInvalidRequest = errors.New("invalid request")

// Request is the input of one discovery run. Zero fields take the values of
// the Pipeline's configuration.
type Request struct {
	URL  string
	Kind listing.Kind

	// static path
	MaxRetries int
	BaseDelay  time.Duration

	// interactive path
	MinDim      int
	MaxDim      int
	MaxAttempts int
	Cookies     []cookies.Record
}

// Pipeline holds the long-lived collaborators shared by runs
type Pipeline struct {
	cfg      *config.Config
	launcher browser.Launcher
	client   *http.Client
	rotator  *headers.Rotator
	cookies  cookies.Source
	cache    *dimfilter.Cache
	prober   prober.DimensionProber
	log      logger.Logger
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithLauncher replaces the Chrome launcher
func WithLauncher(l browser.Launcher) Option {
	return func(p *Pipeline) { p.launcher = l }
}

// WithHTTPClient sets the client used for listing page fetches
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pipeline) { p.client = c }
}

// WithHeaders sets the header rotator
func WithHeaders(r *headers.Rotator) Option {
	return func(p *Pipeline) { p.rotator = r }
}

// WithCookieSource supplies cookies for interactive requests that carry none
func WithCookieSource(src cookies.Source) Option {
	return func(p *Pipeline) { p.cookies = src }
}

// WithProber replaces the HTTP dimension prober
func WithProber(pr prober.DimensionProber) Option {
	return func(p *Pipeline) { p.prober = pr }
}

// New creates a Pipeline from configuration
func New(cfg *config.Config, opts ...Option) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}

	if p.log == nil {
		p.log = logger.NewNopLogger()
	}
	if p.launcher == nil {
		p.launcher = browser.NewChromeLauncher(cfg.Browser, p.log)
	}
	if p.rotator == nil {
		p.rotator = headers.NewRotator(nil)
	}
	if p.cookies == nil {
		p.cookies = sourceFromConfig(cfg.Cookies)
	}
	if cfg.Filter.CacheTTL > 0 {
		p.cache = dimfilter.NewCache(cfg.Filter.CacheTTL)
	}
	return p
}

func sourceFromConfig(cfg config.CookiesConfig) cookies.Source {
	switch {
	case cfg.KeyringAccount != "":
		return cookies.KeyringSource{Account: cfg.KeyringAccount}
	case cfg.Vault != "":
		return cookies.VaultSource{Path: cfg.Vault, Passphrase: cfg.Passphrase}
	case cfg.File != "":
		return cookies.FileSource{Path: cfg.File}
	}
	return nil
}

// Run executes one discovery. Exhaustion is reported through the result's
// status; only invalid requests and resource failures return an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*listing.Result, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("%w: URL is required", ErrInvalidRequest)
	}
	u, err := url.Parse(req.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: malformed URL %q", ErrInvalidRequest, req.URL)
	}

	kind := req.Kind
	if kind == "" {
		if kind, err = listing.DetectKind(req.URL); err != nil {
			return nil, err
		}
	}

	log := p.log.WithFields(map[string]interface{}{"url": req.URL, "kind": string(kind)})
	start := time.Now()

	var result listing.Result
	switch kind {
	case listing.KindStatic:
		result = p.runStatic(ctx, req, log)
	case listing.KindInteractive:
		result, err = p.runInteractive(ctx, req, log)
		if err != nil {
			log.WithError(err).Error("interactive extraction failed")
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidRequest, kind)
	}

	logger.LogMetrics(log, "extract", map[string]interface{}{
		"status":   string(result.Status),
		"images":   result.Total,
		"duration": time.Since(start),
	})
	return &result, nil
}

func (p *Pipeline) runStatic(ctx context.Context, req Request, log logger.Logger) listing.Result {
	sc := p.cfg.Static
	opts := static.Options{
		MaxRetries:     firstPositive(req.MaxRetries, sc.MaxRetries),
		BaseDelay:      sc.BaseDelay,
		RequestTimeout: sc.RequestTimeout,
		PhotoClass:     sc.PhotoClass,
		LazyAttribute:  sc.LazyAttribute,
		ZoomAttribute:  sc.ZoomAttribute,
		Client:         p.client,
		Headers:        p.rotator,
		Logger:         log,
	}
	if req.BaseDelay > 0 {
		opts.BaseDelay = req.BaseDelay
	}
	return static.New(opts).Extract(ctx, req.URL)
}

func (p *Pipeline) runInteractive(ctx context.Context, req Request, log logger.Logger) (listing.Result, error) {
	ic := p.cfg.Interactive
	band := dimfilter.Band{
		Min: firstPositive(req.MinDim, ic.MinDim),
		Max: firstPositive(req.MaxDim, ic.MaxDim),
	}
	if band.Min > band.Max {
		return listing.Result{}, fmt.Errorf("%w: min dimension %d exceeds max %d", ErrInvalidRequest, band.Min, band.Max)
	}

	crawler := gallery.New(p.launcher, gallery.Options{
		ViewportWidth:   p.cfg.Browser.ViewportWidth,
		ViewportHeight:  p.cfg.Browser.ViewportHeight,
		GallerySelector: ic.GallerySelector,
		NextSelector:    ic.NextSelector,
		CDNMarker:       ic.CDNMarker,
		MaxAttempts:     firstPositive(req.MaxAttempts, ic.MaxAttempts),
		MaxSteps:        ic.MaxSteps,
		NavigateTimeout: ic.NavigateTimeout,
		WaitTimeout:     ic.WaitTimeout,
		SettleDelay:     ic.SettleDelay,
		StepDelay:       ic.StepDelay,
		Logger:          log,
	})

	raws, err := crawler.Crawl(ctx, req.URL, p.sessionCookies(req, log))
	if err != nil {
		return listing.Result{}, err
	}

	fc := p.cfg.Filter
	filter := dimfilter.New(dimfilter.Options{
		PoolSize:  fc.PoolSize,
		Timeout:   fc.RequestTimeout,
		Limiter:   ratelimit.ForRate(fc.RequestsPerSecond, fc.PoolSize),
		Cache:     p.cache,
		UserAgent: p.cfg.Browser.UserAgent,
		Logger:    log,
		Prober:    p.prober,
	})
	kept := filter.Filter(ctx, listing.ResolveAll(req.URL, raws), band)

	return listing.Assemble(listing.URLs(kept)), nil
}

// sessionCookies returns the request's cookies, falling back to the
// configured source. Expired records are dropped and load failures degrade
// to an anonymous session.
func (p *Pipeline) sessionCookies(req Request, log logger.Logger) []cookies.Record {
	records := req.Cookies
	if len(records) == 0 && p.cookies != nil {
		loaded, err := p.cookies.Load()
		if err != nil {
			log.WithError(err).Warn("could not load session cookies")
			return nil
		}
		records = loaded
	}
	return cookies.DropExpired(records, time.Now())
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
