// Package static extracts listing photos from server-rendered HTML and the
// JSON documents embedded in it.
package static

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	errs "imgharvest/pkg/errors"
	"imgharvest/pkg/headers"
	"imgharvest/pkg/listing"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/retry"
)

// errNoImages marks an attempt that fetched the page but found nothing
var errNoImages = errors.New("no images found on page")

// Options configure an Extractor
type Options struct {
	MaxRetries     int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
	PhotoClass     string
	LazyAttribute  string
	ZoomAttribute  string

	Client  *http.Client
	Headers *headers.Rotator
	Logger  logger.Logger
}

// DefaultOptions mirrors the defaults of config.StaticConfig
func DefaultOptions() Options {
	return Options{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		RequestTimeout: 30 * time.Second,
		PhotoClass:     "ui-pdp-image",
		LazyAttribute:  "data-src",
		ZoomAttribute:  "data-zoom",
	}
}

// Extractor fetches a listing page and runs the tag, JSON and zoom heuristics
type Extractor struct {
	opts    Options
	client  *http.Client
	headers *headers.Rotator
	log     logger.Logger

	// transport is set when the Extractor built its own client
	transport *http.Transport
}

// New creates an Extractor. Zero fields in opts take their defaults.
func New(opts Options) *Extractor {
	def := DefaultOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.BaseDelay < 0 {
		opts.BaseDelay = def.BaseDelay
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = def.RequestTimeout
	}
	if opts.PhotoClass == "" {
		opts.PhotoClass = def.PhotoClass
	}
	if opts.LazyAttribute == "" {
		opts.LazyAttribute = def.LazyAttribute
	}
	if opts.ZoomAttribute == "" {
		opts.ZoomAttribute = def.ZoomAttribute
	}

	e := &Extractor{opts: opts, client: opts.Client, headers: opts.Headers, log: opts.Logger}
	if e.client == nil {
		e.transport = http.DefaultTransport.(*http.Transport).Clone()
		e.client = &http.Client{Transport: e.transport, Timeout: opts.RequestTimeout}
	}
	if e.headers == nil {
		e.headers = headers.NewRotator(nil)
	}
	if e.log == nil {
		e.log = logger.NewNopLogger()
	}
	e.log = e.log.WithField("component", "static")
	return e
}

// Extract returns the listing photos found at pageURL. Exhausting every
// attempt is not an error: the result simply carries status "error".
func (e *Extractor) Extract(ctx context.Context, pageURL string) listing.Result {
	if e.transport != nil {
		defer e.transport.CloseIdleConnections()
	}
	log := e.log.WithField("url", pageURL)
	start := time.Now()

	cfg := &retry.Config{
		MaxAttempts: e.opts.MaxRetries,
		Backoff:     retry.Proportional(e.opts.BaseDelay),
		RetryIf: func(err error) bool {
			return errors.Is(err, errNoImages) || retry.DefaultRetryIf(err)
		},
		Logger: log,
	}

	raws, err := retry.DoWithResult(ctx, cfg, func(ctx context.Context, attempt int) ([]string, error) {
		log.DebugWithFields("fetching listing page", map[string]interface{}{"attempt": attempt})
		return e.attempt(ctx, pageURL, log)
	})
	if err != nil {
		log.WithError(err).WarnWithFields("static extraction gave up", map[string]interface{}{
			"error_type": errs.ErrorTypeExhaustion,
			"cause_type": errs.TypeOf(err),
		})
	}

	result := listing.Assemble(listing.ResolveAll(pageURL, raws))
	log.InfoWithFields("static extraction finished", map[string]interface{}{
		"status":   result.Status,
		"images":   result.Total,
		"duration": time.Since(start),
	})
	return result
}

// attempt performs one fetch and scan. It returns errNoImages when the page
// was read but every heuristic came up empty.
func (e *Extractor) attempt(ctx context.Context, pageURL string, log logger.Logger) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, errs.Parse(err, "build request for %s", pageURL)
	}
	e.headers.Apply(req)

	sent := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Transport(0, err, "fetch %s", pageURL)
	}
	defer resp.Body.Close()
	logger.LogRequest(log, req.Method, pageURL, resp.StatusCode, time.Since(sent))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errs.Transport(resp.StatusCode, nil, "fetch %s", pageURL)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, errs.Parse(err, "decode body of %s", pageURL)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, errs.Transport(0, err, "read %s", pageURL)
	}

	candidates := e.scan(doc, log)
	if len(candidates) == 0 {
		return nil, errNoImages
	}

	set := &listing.OrderedSet{}
	for _, c := range candidates {
		set.Add(c.Raw)
	}
	return set.Items(), nil
}

// scan runs the three heuristics independently, in tag, json, zoom order
func (e *Extractor) scan(doc *goquery.Document, log logger.Logger) []listing.Candidate {
	tags := tagScan(doc, e.opts.PhotoClass, e.opts.LazyAttribute)
	jsonFound, parseErrors := jsonScan(doc)
	zooms := zoomScan(doc, e.opts.ZoomAttribute)

	if parseErrors > 0 {
		log.DebugWithFields("skipped malformed JSON blocks", map[string]interface{}{
			"error_type": errs.ErrorTypeParse,
			"blocks":     parseErrors,
		})
	}
	out := make([]listing.Candidate, 0, len(tags)+len(jsonFound)+len(zooms))
	out = append(out, tags...)
	out = append(out, jsonFound...)
	out = append(out, zooms...)

	log.DebugWithFields("heuristics finished", countByMethod(out))
	return out
}

// countByMethod tallies candidates per heuristic, every method included
func countByMethod(cands []listing.Candidate) map[string]interface{} {
	counts := map[string]interface{}{
		string(listing.MethodTag):  0,
		string(listing.MethodJSON): 0,
		string(listing.MethodZoom): 0,
	}
	for _, c := range cands {
		n, _ := counts[string(c.Method)].(int)
		counts[string(c.Method)] = n + 1
	}
	return counts
}
