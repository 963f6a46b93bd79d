package domain

import (
	"encoding/json"
	"testing"
)

func TestFieldValueUnmarshalScalars(t *testing.T) {
	var data map[string]FieldValue
	raw := `{"name":"Ada","age":36,"subscribed":true}`
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if v := data["name"]; v.Kind != KindString || v.Str != "Ada" {
		t.Fatalf("unexpected name value: %+v", v)
	}
	if v := data["age"]; v.Kind != KindNumber || v.Num != 36 {
		t.Fatalf("unexpected age value: %+v", v)
	}
	if v := data["subscribed"]; v.Kind != KindBool || !v.Bool {
		t.Fatalf("unexpected subscribed value: %+v", v)
	}
}

func TestFieldValueUnmarshalRejectsNonScalars(t *testing.T) {
	for _, raw := range []string{`{"a":{}}`, `{"a":[1,2]}`, `{"a":null}`} {
		var data map[string]FieldValue
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestFieldValueMarshalRoundTrip(t *testing.T) {
	in := map[string]FieldValue{
		"name": StringValue("Ada"),
		"age":  NumberValue(36.5),
		"ok":   BoolValue(false),
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]FieldValue
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["name"] != in["name"] || out["age"] != in["age"] || out["ok"] != in["ok"] {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestFieldValueText(t *testing.T) {
	if got := StringValue("hello").Text(); got != "hello" {
		t.Fatalf("string text: %q", got)
	}
	if got := NumberValue(42).Text(); got != "42" {
		t.Fatalf("integer-valued number text: %q", got)
	}
	if got := NumberValue(3.14).Text(); got != "3.14" {
		t.Fatalf("fractional number text: %q", got)
	}
	if got := BoolValue(true).Text(); got != "true" {
		t.Fatalf("bool text: %q", got)
	}
}
