// Package cookies loads the externally provisioned browser session cookies
// that seed an interactive crawl.
package cookies

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNotFound is returned when a source holds no cookie blob
var ErrNotFound = errors.New("cookies not found")

// Record is one browser cookie. It accepts the export shapes of Playwright
// (expires), Selenium (expiry) and browser extensions (expirationDate).
type Record struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var raw struct {
		plain
		Expiry         *float64 `json:"expiry"`
		ExpirationDate *float64 `json:"expirationDate"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = Record(raw.plain)
	switch {
	case r.Expires != 0:
	case raw.Expiry != nil:
		r.Expires = *raw.Expiry
	case raw.ExpirationDate != nil:
		r.Expires = *raw.ExpirationDate
	}
	return nil
}

// Session reports whether the cookie lives only for the browser session
func (r Record) Session() bool {
	return r.Expires <= 0
}

// ExpiresAt returns the expiry as a time, zero for session cookies
func (r Record) ExpiresAt() time.Time {
	if r.Session() {
		return time.Time{}
	}
	sec := int64(r.Expires)
	nsec := int64((r.Expires - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Expired reports whether a persistent cookie is past its expiry at now
func (r Record) Expired(now time.Time) bool {
	return !r.Session() && r.ExpiresAt().Before(now)
}

// Parse decodes a cookie blob: either a JSON array of records or a
// Playwright storage state object with a "cookies" array.
func Parse(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '{' {
		var state struct {
			Cookies []Record `json:"cookies"`
		}
		if err := json.Unmarshal(trimmed, &state); err != nil {
			return nil, fmt.Errorf("failed to parse storage state: %w", err)
		}
		return state.Cookies, nil
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to parse cookie list: %w", err)
	}
	return records, nil
}

// Source yields the cookie records for a crawl
type Source interface {
	Load() ([]Record, error)
}

// FileSource reads cookies from a JSON file
type FileSource struct {
	Path string
}

// Load reads and parses the file
func (f FileSource) Load() ([]Record, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, f.Path)
		}
		return nil, fmt.Errorf("failed to read cookie file: %w", err)
	}
	return Parse(data)
}

// DropExpired returns the records still valid at now, preserving order
func DropExpired(records []Record, now time.Time) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.Expired(now) {
			out = append(out, r)
		}
	}
	return out
}
