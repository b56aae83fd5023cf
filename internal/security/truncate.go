package security

import "encoding/json"

// truncatedSentinel marks where array truncation dropped trailing elements.
var truncatedSentinel = json.RawMessage(`{"_truncated":true}`)

// Truncate serializes v to its canonical JSON form and, if the byte length
// exceeds limit, shortens it: for arrays, trailing elements are dropped and
// a {"_truncated":true} sentinel is appended; for objects/strings/numbers,
// the serialized form is truncated to limit bytes. The result's length never
// exceeds limit (for limit > 0).
func Truncate(v any, limit int) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`null`)
	}
	if limit <= 0 || len(data) <= limit {
		return data
	}

	var arr []json.RawMessage
	if json.Unmarshal(data, &arr) == nil {
		for n := len(arr); n >= 0; n-- {
			candidate := make([]json.RawMessage, n, n+1)
			copy(candidate, arr[:n])
			candidate = append(candidate, truncatedSentinel)
			out, err := json.Marshal(candidate)
			if err == nil && len(out) <= limit {
				return out
			}
		}
	}

	if limit > len(data) {
		limit = len(data)
	}
	return data[:limit]
}
