// Package browser abstracts the headless browser used to walk photo galleries.
package browser

import (
	"context"

	"imgharvest/pkg/cookies"
)

// SessionOptions configure a new browser session
type SessionOptions struct {
	ViewportWidth  int
	ViewportHeight int
}

// Launcher opens browser sessions
type Launcher interface {
	OpenSession(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session is one page in a running browser. Every blocking call honours the
// deadline of the context passed to it.
type Session interface {
	// SetCookies seeds the browser's cookie jar
	SetCookies(ctx context.Context, records []cookies.Record) error
	// Navigate loads url and waits for the DOM to be ready
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching selector once it is visible
	Click(ctx context.Context, selector string) error
	// Collect returns the source of every rendered image, in document order
	Collect(ctx context.Context) ([]string, error)
	// HasNext reports whether selector becomes visible before ctx ends
	HasNext(ctx context.Context, selector string) (bool, error)
	// Close releases the page and its browser
	Close() error
}
