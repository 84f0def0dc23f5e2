package models

import (
	"encoding/json"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEscapeKeyRoundTrip(t *testing.T) {
	keys := []string{
		"Name",
		"passport.pdf",
		"$special",
		"$a.b.c",
		"plain_key",
	}
	for _, k := range keys {
		escaped := EscapeKey(k)
		if k != "plain_key" && k != "Name" && escaped == k {
			t.Fatalf("key %q was not escaped", k)
		}
		if got := UnescapeKey(escaped); got != k {
			t.Fatalf("round trip %q -> %q -> %q", k, escaped, got)
		}
	}
}

func TestEscapeKeyMongoSafe(t *testing.T) {
	escaped := EscapeKey("$a.b")
	if escaped[0] == '$' {
		t.Fatalf("escaped key still starts with $: %q", escaped)
	}
	for _, r := range escaped {
		if r == '.' {
			t.Fatalf("escaped key still contains a dot: %q", escaped)
		}
	}
}

func TestDocumentSetPreservesOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	set := DocumentSet{
		{Key: "zeta.pdf", Value: bson.D{{Key: "key", Value: "zeta.pdf"}, {Key: "uploaded_at", Value: now}}},
		{Key: "alpha.pdf", Value: bson.D{{Key: "key", Value: "alpha.pdf"}, {Key: "uploaded_at", Value: now}}},
	}

	records := set.Records()
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Key != "zeta.pdf" || records[1].Key != "alpha.pdf" {
		t.Fatalf("insertion order lost: %v", records)
	}
}

func TestDocumentSetMarshalsAsArray(t *testing.T) {
	set := DocumentSet{
		{Key: "a.pdf", Value: bson.D{{Key: "key", Value: "a.pdf"}, {Key: "name", Value: "a.pdf"}}},
	}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var arr []DocumentRecord
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Fatalf("output is not an array: %v (%s)", err, data)
	}
	if len(arr) != 1 || arr[0].Key != "a.pdf" {
		t.Fatalf("unexpected array: %v", arr)
	}
}

func TestNormalizeValue(t *testing.T) {
	v := NormalizeValue(primitive.D{
		{Key: "inner", Value: primitive.A{int32(1), "two"}},
	})
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("primitive.D should become a map, got %T", v)
	}
	arr, ok := m["inner"].([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("primitive.A should become a slice: %v", m["inner"])
	}
}

func TestNormalizedFieldsUnescapesKeys(t *testing.T) {
	s := &Student{Fields: FieldMap{
		EscapeKey("Passport.Number"): "AB123456",
		"Name":                       "Jane",
	}}

	fields := s.NormalizedFields()
	if fields["Passport.Number"] != "AB123456" {
		t.Fatalf("escaped key not restored: %v", fields)
	}
	if fields["Name"] != "Jane" {
		t.Fatalf("plain key lost: %v", fields)
	}
}

func TestNormalizedFieldsNil(t *testing.T) {
	s := &Student{}
	if fields := s.NormalizedFields(); fields == nil || len(fields) != 0 {
		t.Fatalf("nil fields should normalize to an empty map, got %v", fields)
	}
}
