package extractor

import "fmt"

// Accessors over the untyped field map an Understander returns. JSON numbers
// arrive as float64; every accessor reports whether the key held a usable
// value.

func asString(m map[string]any, key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok && v != ""
}

func asFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

func asInt(m map[string]any, key string) (int, bool) {
	v, ok := m[key].(float64)
	return int(v), ok
}

func asBool(m map[string]any, key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

func asMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key].(map[string]any)
	return v, ok
}

func asStringSlice(m map[string]any, key string) ([]string, bool) {
	raw, ok := m[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// asValueList accepts either a JSON array of strings or a bare string, the
// two shapes extraction emits for biomarker values.
func asValueList(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

func asBiomarkerMap(m map[string]any, key string) (map[string][]string, bool) {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(raw))
	for name, values := range raw {
		out[name] = asValueList(values)
	}
	return out, true
}

// asIntPtr returns a pointer for an optional numeric field, nil when absent
// or null.
func asIntPtr(m map[string]any, key string) *int {
	if v, ok := asInt(m, key); ok {
		return &v
	}
	return nil
}

func asFloatPtr(m map[string]any, key string) *float64 {
	if v, ok := asFloat(m, key); ok {
		return &v
	}
	return nil
}

// noteUnplaced formats a note for a value that could not be mapped onto the
// target struct.
func noteUnplaced(field string, value any) string {
	return fmt.Sprintf("unrecognized %s value: %v", field, value)
}
