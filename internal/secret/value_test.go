package secret

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestValueRedactsByDefault(t *testing.T) {
	v := New("sk-ant-abc123")

	if got := v.String(); got != redacted {
		t.Fatalf("String() = %q, want %q", got, redacted)
	}
	if got := fmt.Sprintf("%v", v); got != redacted {
		t.Fatalf("%%v formatting = %q, want %q", got, redacted)
	}
	if got := fmt.Sprintf("%#v", v); got != redacted {
		t.Fatalf("%%#v formatting = %q, want %q", got, redacted)
	}
	if v.Expose() != "sk-ant-abc123" {
		t.Fatalf("Expose() did not return the raw value")
	}
}

func TestValueZeroValue(t *testing.T) {
	var v Value
	if !v.IsEmpty() {
		t.Fatalf("zero value should be empty")
	}
	if got := v.String(); got != "" {
		t.Fatalf("String() on zero value = %q, want empty", got)
	}
}

func TestValueMarshalJSON(t *testing.T) {
	v := New("top-secret")
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"`+redacted+`"` {
		t.Fatalf("Marshal(v) = %s, want %q", data, redacted)
	}

	type wrapper struct {
		Token Value `json:"token"`
	}
	data, err = json.Marshal(wrapper{Token: v})
	if err != nil {
		t.Fatalf("Marshal wrapper: %v", err)
	}
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["token"] != redacted {
		t.Fatalf("wrapper token = %q, want %q", decoded["token"], redacted)
	}
}

func TestValueUnmarshalJSON(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`"hunter2"`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.Expose() != "hunter2" {
		t.Fatalf("Expose() = %q, want %q", v.Expose(), "hunter2")
	}
	if v.String() != redacted {
		t.Fatalf("String() after unmarshal = %q, want %q", v.String(), redacted)
	}
}
