package provider

import (
	"encoding/json"
	"strings"
)

// Extractor is a pure function from a decoded status response to an
// optional result. Each generation kind declares an ordered list; the
// first extractor to return ok wins. This replaces ad hoc field probing
// with something declarative and testable in isolation.
type Extractor func(data map[string]any) (string, bool)

func lookup(data map[string]any, path ...string) (any, bool) {
	var cur any = data
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// PathString extracts a non-empty string at the given key path.
func PathString(path ...string) Extractor {
	return func(data map[string]any) (string, bool) {
		v, ok := lookup(data, path...)
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
}

// PathURL is PathString restricted to http(s) values. Used where a bare
// string at the same location could be a status word rather than a result.
func PathURL(path ...string) Extractor {
	inner := PathString(path...)
	return func(data map[string]any) (string, bool) {
		s, ok := inner(data)
		if !ok || !strings.HasPrefix(s, "http") {
			return "", false
		}
		return s, true
	}
}

// FirstOfList extracts the first string element of a list at the key path.
func FirstOfList(path ...string) Extractor {
	return func(data map[string]any) (string, bool) {
		v, ok := lookup(data, path...)
		if !ok {
			return "", false
		}
		list, ok := v.([]any)
		if !ok || len(list) == 0 {
			return "", false
		}
		if s, ok := list[0].(string); ok && s != "" {
			return s, true
		}
		if m, ok := list[0].(map[string]any); ok {
			for _, key := range []string{"url", "video_url", "image_url", "image", "video"} {
				if s, ok := m[key].(string); ok && s != "" {
					return s, true
				}
			}
		}
		return "", false
	}
}

// EmbeddedJSONList handles responses where the result payload is itself a
// JSON string: the value at path is decoded and listField's first element
// is returned. Matches the kie.ai resultJson shape.
func EmbeddedJSONList(listField string, path ...string) Extractor {
	return func(data map[string]any) (string, bool) {
		v, ok := lookup(data, path...)
		if !ok {
			return "", false
		}
		raw, ok := v.(string)
		if !ok || raw == "" {
			return "", false
		}
		var decoded map[string]any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			return "", false
		}
		list, ok := decoded[listField].([]any)
		if !ok || len(list) == 0 {
			return "", false
		}
		s, ok := list[0].(string)
		return s, ok && s != ""
	}
}
