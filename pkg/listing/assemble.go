package listing

import (
	"net/url"
	"strings"
)

// Assemble normalizes an ordered URL sequence into a Result: duplicates are
// dropped, the first MaxImages survive and the status follows emptiness.
func Assemble(urls []string) Result {
	set := &OrderedSet{}
	for _, u := range urls {
		if set.Len() == MaxImages {
			break
		}
		set.Add(u)
	}

	images := set.Items()
	status := StatusSuccess
	if len(images) == 0 {
		status = StatusError
	}
	return Result{Status: status, Total: len(images), Images: images}
}

// Resolve joins raw against base. Empty strings, data: URIs and strings that
// fail to parse are rejected.
func Resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if base == nil {
		if !ref.IsAbs() {
			return "", false
		}
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}

// ResolveAll resolves every raw candidate against pageURL, keeping order and
// dropping rejects. An unparseable pageURL only admits absolute candidates.
func ResolveAll(pageURL string, raws []string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		if resolved, ok := Resolve(base, raw); ok {
			out = append(out, resolved)
		}
	}
	return out
}
