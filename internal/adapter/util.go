package adapter

import (
	"bytes"
	"encoding/json"
	"html"
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first (CareerJet and most feeds send escaped
// markup), then tags are stripped and whitespace collapsed.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

var jsonNull = json.RawMessage("null")

// opaque returns raw unchanged, or JSON null when raw is empty.
func opaque(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return jsonNull
	}
	out := make(json.RawMessage, len(trimmed))
	copy(out, trimmed)
	return out
}

// queryTerms splits a free-text query into lowercase terms of at least three
// runes; shorter tokens ("i", "på") carry no signal for substring matching.
func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(f)) >= 3 {
			terms = append(terms, f)
		}
	}
	return terms
}
