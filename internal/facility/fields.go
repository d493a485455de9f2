package facility

import (
	"fmt"
	"strings"
)

// FieldCandidates is an ordered list of field paths tried until one yields a
// non-empty value. A path may descend into nested objects with dots, e.g.
// "displayName.text".
type FieldCandidates []string

var (
	phoneFields   = FieldCandidates{"formatted_phone_number", "phone", "international_phone", "international_phone_number", "internationalPhoneNumber"}
	websiteFields = FieldCandidates{"website", "websiteUri"}
	addressFields = FieldCandidates{"formatted_address", "formattedAddress", "vicinity"}

	osmPhoneTags   = FieldCandidates{"contact:phone", "contact_phone", "phone"}
	osmWebsiteTags = FieldCandidates{"contact:website", "contact_website", "website"}
	osmEmailTags   = FieldCandidates{"contact:email", "contact_email", "email"}
)

// Resolve returns the first candidate present in obj as a non-empty scalar.
func (fc FieldCandidates) Resolve(obj map[string]any) (string, bool) {
	for _, path := range fc {
		if v, ok := lookup(obj, path); ok {
			return v, true
		}
	}
	return "", false
}

// ResolveTags is Resolve over a flat string map such as OSM tags.
func (fc FieldCandidates) ResolveTags(tags map[string]string) (string, bool) {
	for _, key := range fc {
		if v := strings.TrimSpace(tags[key]); v != "" {
			return v, true
		}
	}
	return "", false
}

// Or resolves obj and falls back to def.
func (fc FieldCandidates) Or(obj map[string]any, def string) string {
	if v, ok := fc.Resolve(obj); ok {
		return v
	}
	return def
}

func lookup(obj map[string]any, path string) (string, bool) {
	var cur any = obj
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}

	switch v := cur.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return fmt.Sprintf("%g", v), true
	default:
		return "", false
	}
}
