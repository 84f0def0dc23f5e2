package services

import (
	"encoding/json"
	"strings"
	"testing"

	"student-intake-platform/models"
)

func TestPrioritizeFieldsOrder(t *testing.T) {
	fields := models.FieldMap{
		"zipCode": "94110",
		"name":    "Jane",
		"salary":  "50000",
	}

	ordered := PrioritizeFields(fields)
	got := make([]string, 0, len(ordered))
	for _, f := range ordered {
		got = append(got, f.Key)
	}

	want := []string{"name", "zipCode", "salary"}
	if len(got) != len(want) {
		t.Fatalf("got %d fields, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestPrioritizeFieldsAlphabeticalTieBreak(t *testing.T) {
	fields := models.FieldMap{
		"unknownB": 1,
		"unknownA": 2,
		"unknownC": 3,
	}

	ordered := PrioritizeFields(fields)
	for i, want := range []string{"unknownA", "unknownB", "unknownC"} {
		if ordered[i].Key != want {
			t.Fatalf("position %d: got %q, want %q", i, ordered[i].Key, want)
		}
	}
}

func TestFieldPriorityOfUnknown(t *testing.T) {
	if p := FieldPriorityOf("definitelyNotAKnownField"); p != 999 {
		t.Fatalf("unknown field priority = %d, want 999", p)
	}
}

func TestFieldPriorityCaseInsensitive(t *testing.T) {
	if FieldPriorityOf("name") != FieldPriorityOf("Name") {
		t.Fatalf("priority lookup should be case-insensitive")
	}
}

func TestOrderedFieldsMarshalJSON(t *testing.T) {
	fields := models.FieldMap{
		"salary": "50000",
		"name":   "Jane",
	}

	data, err := json.Marshal(PrioritizeFields(fields))
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	s := string(data)
	if !strings.HasPrefix(s, "{") {
		t.Fatalf("expected JSON object, got %s", s)
	}
	if strings.Index(s, `"name"`) > strings.Index(s, `"salary"`) {
		t.Fatalf("name should come before salary in %s", s)
	}

	// The output must still be a parseable object.
	var back map[string]any
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if back["name"] != "Jane" {
		t.Fatalf("round-trip lost a value: %v", back)
	}
}

func TestFormatFieldName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"dateOfBirth", "Date Of Birth"},
		{"passport_number", "Passport number"},
		{"name", "Name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatFieldName(tt.in); got != tt.want {
			t.Fatalf("FormatFieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
