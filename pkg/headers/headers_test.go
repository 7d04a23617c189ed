package headers

import (
	"math/rand"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	r := NewRotator(rand.New(rand.NewSource(1)))
	h := r.Headers()

	assert.Contains(t, DefaultUserAgents, h.Get("User-Agent"))
	assert.Equal(t, "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3", h.Get("Accept-Language"))
	assert.Equal(t, "keep-alive", h.Get("Connection"))
	assert.Contains(t, h.Get("Accept"), "text/html")
	assert.Contains(t, h.Get("Accept-Encoding"), "br")
}

func TestRotatorIsDeterministicForSeed(t *testing.T) {
	a := NewRotator(rand.New(rand.NewSource(42)))
	b := NewRotator(rand.New(rand.NewSource(42)))

	for i := 0; i < 20; i++ {
		assert.Equal(t, a.UserAgent(), b.UserAgent())
	}
}

func TestRotatorCoversPool(t *testing.T) {
	r := NewRotator(rand.New(rand.NewSource(7)))
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[r.UserAgent()] = true
	}
	assert.Len(t, seen, len(DefaultUserAgents))
}

func TestCustomAgents(t *testing.T) {
	r := NewRotatorWithAgents(nil, []string{"only-agent"})
	assert.Equal(t, "only-agent", r.UserAgent())

	r = NewRotatorWithAgents(nil, nil)
	assert.Contains(t, DefaultUserAgents, r.UserAgent())
}

func TestApply(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.com", nil)
	require.NoError(t, err)
	req.Header.Set("X-Keep", "1")

	NewRotator(nil).Apply(req)

	assert.Equal(t, "1", req.Header.Get("X-Keep"))
	assert.NotEmpty(t, req.Header.Get("User-Agent"))
}
