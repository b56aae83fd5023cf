// Package secret holds a string wrapper that keeps credentials and tokens
// out of logs, error messages, and JSON dumps by default.
package secret

import "encoding/json"

const redacted = "[REDACTED]"

// Value wraps a sensitive string so it never prints, logs, or marshals in
// the clear. The zero value is an empty secret.
type Value struct {
	raw string
}

// New wraps raw as a Value.
func New(raw string) Value {
	return Value{raw: raw}
}

// String implements fmt.Stringer. It never returns the underlying value.
func (v Value) String() string {
	if v.raw == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer so %#v formatting is also redacted.
func (v Value) GoString() string {
	return v.String()
}

// MarshalJSON redacts the value. Callers that need the raw secret on the
// wire must encode Expose() into a field of their own.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts a bare JSON string as the raw secret value.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.raw = raw
	return nil
}

// Expose returns the raw secret. Call sites must be explicit about needing
// the underlying value; everything else should move Values around unexposed.
func (v Value) Expose() string {
	return v.raw
}

// IsEmpty reports whether the wrapped secret is the empty string.
func (v Value) IsEmpty() bool {
	return v.raw == ""
}
