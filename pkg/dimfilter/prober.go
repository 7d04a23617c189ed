package dimfilter

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	_ "golang.org/x/image/webp"

	errs "imgharvest/pkg/errors"
)

// decodeLimit bounds how much of a body is read to find the image header
const decodeLimit = 256 * 1024

// HTTPProber fetches an image and decodes only its header
type HTTPProber struct {
	Client    *http.Client
	UserAgent string
}

// Probe returns the pixel dimensions of the image at url
func (p *HTTPProber) Probe(ctx context.Context, url string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, errs.Parse(err, "invalid image URL %q", url)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return 0, 0, errs.Transport(0, err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, 0, errs.Transport(resp.StatusCode, nil, "fetch %s", url)
	}

	cfg, format, err := image.DecodeConfig(io.LimitReader(resp.Body, decodeLimit))
	if err != nil {
		return 0, 0, errs.Parse(err, "decode header of %s", url)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, errs.Parse(nil, "%s image %s reports %dx%d", format, url, cfg.Width, cfg.Height)
	}
	return cfg.Width, cfg.Height, nil
}

// newTransport builds a connection pool sized for one Filter call
func newTransport(poolSize int) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxConnsPerHost = poolSize
	t.MaxIdleConnsPerHost = poolSize
	t.MaxIdleConns = poolSize
	return t
}

func describe(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
