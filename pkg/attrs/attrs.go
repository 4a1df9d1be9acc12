// Package attrs provides helpers over slog-style key-value attribute slices.
package attrs

import "fmt"

// ExtractString extracts a string value from a key-value attribute slice.
// The slice should be formatted as [key1, value1, key2, value2, ...].
// Returns empty string if the key is not found or the value is not a string.
func ExtractString(attrs []any, key string) string {
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		if k == key {
			if v, ok := attrs[i+1].(string); ok {
				return v
			}
		}
	}
	return ""
}

// Map converts a key-value attribute slice into a map. Non-string keys are
// skipped; a trailing key without a value is dropped. Values are kept as-is so
// the result stays JSON-serializable for structured detail blobs.
func Map(attrs []any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs)/2)
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok {
			continue
		}
		switch v := attrs[i+1].(type) {
		case fmt.Stringer:
			out[k] = v.String()
		case error:
			out[k] = v.Error()
		default:
			out[k] = v
		}
	}
	return out
}
