package filter

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"

	"github.com/amishk599/jobfeed/internal/model"
)

// KeywordFilter matches listings whose headline contains any of the headline
// keywords and whose location contains any of the location keywords.
// Matching is case-insensitive. Empty keyword lists are treated as "match all".
type KeywordFilter struct {
	headlineKeywords []string
	locations        []string
}

// NewKeywordFilter returns a filter that requires both a headline keyword
// match and a location keyword match (case-insensitive substring).
func NewKeywordFilter(headlineKeywords, locations []string) *KeywordFilter {
	return &KeywordFilter{
		headlineKeywords: lowerAll(headlineKeywords),
		locations:        lowerAll(locations),
	}
}

// Match reports whether l passes both keyword lists. Location keywords are
// matched against the string values of the location object, so "stockholm"
// matches {"municipality": "Stockholm"} but "municipality" does not.
func (f *KeywordFilter) Match(l model.Listing) bool {
	if !containsAny(strings.ToLower(l.Headline), f.headlineKeywords) {
		return false
	}
	if len(f.locations) > 0 && !containsAny(strings.ToLower(LocationText(l.Location)), f.locations) {
		return false
	}
	return true
}

// Apply returns the listings that match, in their original order.
func (f *KeywordFilter) Apply(listings []model.Listing) []model.Listing {
	out := make([]model.Listing, 0, len(listings))
	for _, l := range listings {
		if f.Match(l) {
			out = append(out, l)
		}
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, strings.ToLower(s))
		}
	}
	return out
}

// LocationText joins every string value in a location document, visiting
// object keys in sorted order. Input that is not JSON is returned as is.
func LocationText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	var parts []string
	collectStrings(v, &parts)
	return strings.Join(parts, " ")
}

func collectStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		*out = append(*out, t)
	case []any:
		for _, e := range t {
			collectStrings(e, out)
		}
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(t)) {
			collectStrings(t[k], out)
		}
	}
}
