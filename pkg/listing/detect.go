package listing

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrUnsupportedSource is returned by DetectKind for hosts with no known strategy
var ErrUnsupportedSource = errors.New("unsupported listing source")

// DetectKind picks the extraction strategy from the listing host
func DetectKind(rawURL string) (Kind, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing URL %q: %w", rawURL, err)
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case host == "facebook.com" || strings.HasSuffix(host, ".facebook.com"):
		return KindInteractive, nil
	case strings.Contains(host, "mercadolibre.") || strings.Contains(host, "meli"):
		return KindStatic, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, host)
}
