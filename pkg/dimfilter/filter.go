// Package dimfilter keeps the gallery candidates whose pixel dimensions fall
// inside a target band.
package dimfilter

import (
	"context"
	"net/http"
	"time"

	"imgharvest/internal/prober"
	"imgharvest/pkg/listing"
	"imgharvest/pkg/logger"
	"imgharvest/pkg/ratelimit"
)

const (
	DefaultPoolSize = 100
	DefaultTimeout  = 5 * time.Second
)

// Band is an inclusive pixel range
type Band struct {
	Min int
	Max int
}

// Contains reports whether either axis falls inside the band
func (b Band) Contains(width, height int) bool {
	in := func(v int) bool { return b.Min <= v && v <= b.Max }
	return in(width) || in(height)
}

// Options configure a Filter
type Options struct {
	// PoolSize is both the worker count and the per-host connection cap
	PoolSize int
	// Timeout bounds each image request
	Timeout time.Duration
	// Limiter paces requests within one call; nil means unlimited
	Limiter ratelimit.Limiter
	// Cache is consulted before probing; nil disables caching
	Cache     *Cache
	UserAgent string
	Logger    logger.Logger

	// Prober replaces the HTTP prober, mainly for tests
	Prober prober.DimensionProber
}

// Filter measures candidate images concurrently
type Filter struct {
	opts Options
	log  logger.Logger
}

// New creates a Filter, filling unset options with defaults
func New(opts Options) *Filter {
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Filter{opts: opts, log: log.WithField("component", "dimfilter")}
}

// Filter probes every candidate and returns those inside band, in input order.
// It returns once every probe has reported. Failed probes are dropped.
func (f *Filter) Filter(ctx context.Context, candidates []string, band Band) []listing.ResolvedImage {
	urls := listing.NewOrderedSet(candidates...).Items()
	if len(urls) == 0 {
		return []listing.ResolvedImage{}
	}

	probe := f.opts.Prober
	if probe == nil {
		transport := newTransport(f.opts.PoolSize)
		defer transport.CloseIdleConnections()
		probe = &HTTPProber{
			Client:    &http.Client{Transport: transport, Timeout: f.opts.Timeout},
			UserAgent: f.opts.UserAgent,
		}
	}
	if f.opts.Cache != nil {
		probe = cachingProber{cache: f.opts.Cache, next: probe}
	}

	start := time.Now()
	results := prober.Run(ctx, urls, f.opts.PoolSize, f.opts.Timeout, probe, f.opts.Limiter, f.log)

	kept := make([]listing.ResolvedImage, 0, len(results))
	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			continue
		}
		inBand := band.Contains(res.Width, res.Height)
		f.log.DebugWithFields("measured image", map[string]interface{}{
			"url":     res.Job.URL,
			"size":    describe(res.Width, res.Height),
			"in_band": inBand,
		})
		if inBand {
			kept = append(kept, listing.ResolvedImage{URL: res.Job.URL, Width: res.Width, Height: res.Height})
		}
	}

	logger.LogMetrics(f.log, "dimension_filter", map[string]interface{}{
		"candidates": len(urls),
		"kept":       len(kept),
		"failed":     failed,
		"duration":   time.Since(start),
	})
	return kept
}
