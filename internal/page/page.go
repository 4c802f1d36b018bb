// Package page models the read-only host-page boundary: the URL, the
// embedded global data object, page metadata tags, and the rendered content
// tree. Detection and extraction consult it; nothing here mutates the page.
package page

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Document is a parsed snapshot of the host page at one point in time.
type Document struct {
	url *url.URL
	doc *goquery.Document

	embedded     json.RawMessage
	embeddedOnce bool
}

// Parse builds a Document from the page URL and its rendered HTML.
func Parse(rawURL string, html io.Reader) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	return &Document{url: u, doc: doc}, nil
}

// URL returns the full page URL.
func (d *Document) URL() string { return d.url.String() }

// Hostname returns the page host without port.
func (d *Document) Hostname() string { return d.url.Hostname() }

// Path returns the URL path component.
func (d *Document) Path() string { return d.url.Path }

// Find runs a selector over the content tree.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Meta returns the content of the first meta tag whose property or name
// attribute matches key.
func (d *Document) Meta(key string) (string, bool) {
	sel := d.doc.Find(fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key))
	if sel.Length() == 0 {
		return "", false
	}
	content, ok := sel.First().Attr("content")
	return content, ok && content != ""
}

// EmbeddedData returns the page's embedded global data object (the
// window.runParams blob on AliExpress pages) as raw JSON. The object is
// located once by scanning script tags and cached for later lookups.
func (d *Document) EmbeddedData() (json.RawMessage, bool) {
	if !d.embeddedOnce {
		d.embeddedOnce = true
		d.embedded = locateRunParams(d.doc)
	}
	return d.embedded, d.embedded != nil
}

// EmbeddedPath walks the embedded data object along the given keys and
// returns the raw value found there.
func (d *Document) EmbeddedPath(keys ...string) (json.RawMessage, bool) {
	raw, ok := d.EmbeddedData()
	if !ok {
		return nil, false
	}
	for _, key := range keys {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		raw, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return raw, true
}

// EmbeddedString is EmbeddedPath for leaf values that may be a JSON string
// or number; either is returned as its string form.
func (d *Document) EmbeddedString(keys ...string) (string, bool) {
	raw, ok := d.EmbeddedPath(keys...)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

const runParamsMarker = "window.runParams"

// locateRunParams scans script tags for the runParams assignment and slices
// out the balanced JSON object that follows it.
func locateRunParams(doc *goquery.Document) json.RawMessage {
	var found json.RawMessage
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		idx := strings.Index(text, runParamsMarker)
		if idx < 0 {
			return true
		}
		rest := text[idx+len(runParamsMarker):]
		eq := strings.Index(rest, "=")
		if eq < 0 {
			return true
		}
		obj := balancedObject(rest[eq+1:])
		if obj == "" || !json.Valid([]byte(obj)) {
			return true
		}
		found = json.RawMessage(obj)
		return false
	})
	return found
}

// balancedObject returns the first {...} group in s with balanced braces,
// honouring string literals so braces inside values do not miscount.
func balancedObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
