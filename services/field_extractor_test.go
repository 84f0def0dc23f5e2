package services

import (
	"context"
	"errors"
	"testing"

	"student-intake-platform/internal/ai"
)

// fakeGenerator returns a canned response and records whether it was
// called.
type fakeGenerator struct {
	response string
	err      error
	calls    int
	parts    []ai.Part
}

func (g *fakeGenerator) Generate(ctx context.Context, instruction string, parts []ai.Part) (string, error) {
	g.calls++
	g.parts = parts
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func TestExtractFieldsStrictJSON(t *testing.T) {
	gen := &fakeGenerator{response: `{"Name":"Jane","DateOfBirth":"1999-04-01"}`}
	e := NewFieldExtractor(gen)

	fields := e.ExtractFields(context.Background(), "some document text here", nil)
	if fields["Name"] != "Jane" {
		t.Fatalf("Name = %v, want Jane", fields["Name"])
	}
	if fields["DateOfBirth"] != "1999-04-01" {
		t.Fatalf("DateOfBirth = %v", fields["DateOfBirth"])
	}
}

func TestExtractFieldsSubstringRecovery(t *testing.T) {
	gen := &fakeGenerator{response: "Here is the data: {\"Name\":\"Jane\"} Thanks!"}
	e := NewFieldExtractor(gen)

	fields := e.ExtractFields(context.Background(), "some document text here", nil)
	if len(fields) != 1 || fields["Name"] != "Jane" {
		t.Fatalf("substring recovery failed: %v", fields)
	}
}

func TestExtractFieldsNonObjectOutput(t *testing.T) {
	for _, response := range []string{"[1,2,3]", "null", `"just a string"`, "no json at all", ""} {
		gen := &fakeGenerator{response: response}
		e := NewFieldExtractor(gen)

		fields := e.ExtractFields(context.Background(), "some document text here", nil)
		if fields == nil {
			t.Fatalf("response %q: got nil map", response)
		}
		if len(fields) != 0 {
			t.Fatalf("response %q: got %v, want empty map", response, fields)
		}
	}
}

func TestExtractFieldsGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	e := NewFieldExtractor(gen)

	fields := e.ExtractFields(context.Background(), "some document text here", nil)
	if fields == nil || len(fields) != 0 {
		t.Fatalf("generator error should degrade to empty map, got %v", fields)
	}
}

func TestExtractFieldsNoPayloadSkipsCall(t *testing.T) {
	gen := &fakeGenerator{response: `{"Name":"Jane"}`}
	e := NewFieldExtractor(gen)

	fields := e.ExtractFields(context.Background(), "   ", nil)
	if gen.calls != 0 {
		t.Fatalf("expected no model call, got %d", gen.calls)
	}
	if len(fields) != 0 {
		t.Fatalf("expected empty map, got %v", fields)
	}
}

func TestExtractFieldsPageParts(t *testing.T) {
	gen := &fakeGenerator{response: `{}`}
	e := NewFieldExtractor(gen)

	page := encodeDataURI("image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	e.ExtractFields(context.Background(), "", []string{page, "not-a-data-uri"})

	if gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", gen.calls)
	}
	if len(gen.parts) != 1 {
		t.Fatalf("expected the one decodable page, got %d parts", len(gen.parts))
	}
	if gen.parts[0].MIMEType != "image/png" {
		t.Fatalf("mime type = %q", gen.parts[0].MIMEType)
	}
}
