package static

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"imgharvest/pkg/listing"
)

// jsonPaths are probed in order inside every application/json script block
var jsonPaths = [][]string{
	{"props", "pageProps", "initialData", "pictures"},
	{"props", "pageProps", "images"},
	{"images"},
	{"pictures"},
}

// tagScan collects photo sources from img elements carrying the marker class
func tagScan(doc *goquery.Document, photoClass, lazyAttr string) []listing.Candidate {
	var out []listing.Candidate
	doc.Find("img." + photoClass).Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if strings.TrimSpace(src) == "" {
			src, _ = s.Attr(lazyAttr)
		}
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		out = append(out, listing.Candidate{Raw: src, Method: listing.MethodTag})
	})
	return out
}

// jsonScan reads embedded JSON documents. Blocks that fail to parse are
// skipped, reported through parseErrors.
func jsonScan(doc *goquery.Document) (out []listing.Candidate, parseErrors int) {
	doc.Find(`script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var data interface{}
		if err := json.Unmarshal([]byte(text), &data); err != nil {
			parseErrors++
			return
		}
		for _, raw := range imagesFromJSON(data) {
			out = append(out, listing.Candidate{Raw: raw, Method: listing.MethodJSON})
		}
	})
	return out, parseErrors
}

// imagesFromJSON walks each known path and pulls url (or src) from every
// object in the list found there.
func imagesFromJSON(data interface{}) []string {
	var out []string
	for _, path := range jsonPaths {
		list, ok := lookup(data, path).([]interface{})
		if !ok {
			continue
		}
		for _, item := range list {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if u, ok := obj["url"].(string); ok && u != "" {
				out = append(out, u)
			} else if u, ok := obj["src"].(string); ok && u != "" {
				out = append(out, u)
			}
		}
	}
	return out
}

func lookup(data interface{}, path []string) interface{} {
	cur := data
	for _, key := range path {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = obj[key]
	}
	return cur
}

// zoomScan collects the high resolution sources of zoomable elements
func zoomScan(doc *goquery.Document, zoomAttr string) []listing.Candidate {
	var out []listing.Candidate
	doc.Find("[" + zoomAttr + "]").Each(func(_ int, s *goquery.Selection) {
		if v := strings.TrimSpace(s.AttrOr(zoomAttr, "")); v != "" {
			out = append(out, listing.Candidate{Raw: v, Method: listing.MethodZoom})
		}
	})
	return out
}
