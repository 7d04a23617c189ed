// Package listing holds the data model shared by every stage of image
// discovery: the input source, raw candidates, resolved images and the final
// result record.
package listing

import "encoding/json"

// MaxImages is the upper bound on URLs carried by a Result
const MaxImages = 20

// Kind selects the extraction strategy for a listing page
type Kind string

const (
	KindStatic      Kind = "static"
	KindInteractive Kind = "interactive"
)

// ParseKind converts a user supplied kind name
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindStatic, KindInteractive:
		return Kind(s), true
	}
	return "", false
}

// Method records which heuristic produced a candidate
type Method string

const (
	MethodTag  Method = "tag"
	MethodJSON Method = "json"
	MethodZoom Method = "zoom"
)

// Candidate is a raw, unvalidated string captured during extraction
type Candidate struct {
	Raw    string
	Method Method
}

// ResolvedImage is an absolute image URL, optionally with measured dimensions
type ResolvedImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Status of a Result
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the uniform output record of a discovery run
type Result struct {
	Status Status   `json:"status"`
	Total  int      `json:"total_images"`
	Images []string `json:"images"`
}

// MarshalJSON keeps "images" an array even on a zero Result.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	if r.Images == nil {
		r.Images = []string{}
	}
	return json.Marshal(plain(r))
}

// URLs returns the image URLs of resolved images, in order
func URLs(images []ResolvedImage) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		out = append(out, img.URL)
	}
	return out
}
