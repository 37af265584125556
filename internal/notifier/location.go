package notifier

import (
	"encoding/json"
	"strings"
)

// locationText renders the opaque location object for humans. Only the
// well-known place keys are used; anything else yields "".
func locationText(raw json.RawMessage) string {
	var loc map[string]any
	if err := json.Unmarshal(raw, &loc); err != nil || loc == nil {
		return ""
	}
	var parts []string
	for _, key := range []string{"city", "municipality", "region", "country"} {
		if s, ok := loc[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
