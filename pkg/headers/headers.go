// Package headers builds the outbound request identity used for listing page
// fetches.
package headers

import (
	"math/rand"
	"net/http"
	"sync"
)

// DefaultUserAgents is the pool a Rotator draws from
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

const (
	accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguage = "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3"
	acceptEncoding = "gzip, deflate, br"
)

// Rotator picks a user agent per request from an injected random source.
// It is safe for concurrent use.
type Rotator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	agents []string
}

// NewRotator creates a Rotator over DefaultUserAgents. A nil rng is seeded
// from the global source.
func NewRotator(rng *rand.Rand) *Rotator {
	return NewRotatorWithAgents(rng, DefaultUserAgents)
}

// NewRotatorWithAgents creates a Rotator over a custom agent pool
func NewRotatorWithAgents(rng *rand.Rand, agents []string) *Rotator {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	return &Rotator{rng: rng, agents: append([]string(nil), agents...)}
}

// UserAgent returns the next user agent
func (r *Rotator) UserAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agents[r.rng.Intn(len(r.agents))]
}

// Headers returns a fresh header set for one attempt
func (r *Rotator) Headers() http.Header {
	h := make(http.Header)
	h.Set("User-Agent", r.UserAgent())
	h.Set("Accept", accept)
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Accept-Encoding", acceptEncoding)
	h.Set("Connection", "keep-alive")
	return h
}

// Apply copies a fresh header set onto req
func (r *Rotator) Apply(req *http.Request) {
	for k, v := range r.Headers() {
		req.Header[k] = v
	}
}
