package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"student-intake-platform/internal/ai"
	"student-intake-platform/models"
)

type fakeStorage struct {
	failFor string
	stored  []string
}

func (s *fakeStorage) Store(ctx context.Context, aiKey string, f UploadFile) (models.DocumentRecord, error) {
	if f.Name == s.failFor {
		return models.DocumentRecord{}, errors.New("storage unavailable")
	}
	s.stored = append(s.stored, f.Name)
	return models.DocumentRecord{Key: "stored-" + f.Name, Name: f.Name, MimeType: f.MimeType, Size: f.Size}, nil
}

type fakeProfiles struct {
	err       error
	aiKey     string
	fields    models.FieldMap
	documents []models.DocumentRecord
	ctxErr    error
}

func (p *fakeProfiles) UpsertStudent(ctx context.Context, aiKey string, fields models.FieldMap, documents []models.DocumentRecord) (*models.Student, error) {
	p.aiKey = aiKey
	p.fields = fields
	p.documents = documents
	p.ctxErr = ctx.Err()
	if p.err != nil {
		return nil, p.err
	}
	return &models.Student{AIKey: aiKey, Status: models.StudentStatusActive}, nil
}

func newTestPipeline(gen *fakeGenerator, storage Storage, profiles ProfileStore) *Pipeline {
	return NewPipeline(
		NewTextExtractor(),
		NewVisionConverter(40),
		NewFieldExtractor(gen),
		storage,
		profiles,
		50,
	)
}

func TestPipelineTextPath(t *testing.T) {
	gen := &fakeGenerator{response: `{"Name":"John Doe","Email":"john@x.com"}`}
	storage := &fakeStorage{}
	profiles := &fakeProfiles{}
	p := newTestPipeline(gen, storage, profiles)

	body := "Name: John Doe\nEmail: john@x.com\nProgram: Computer Science, Fall intake"
	result, err := p.Run(context.Background(), "student-1", []UploadFile{
		{Name: "profile.txt", MimeType: "text/plain", Size: int64(len(body)), Data: []byte(body)},
	})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", gen.calls)
	}
	if len(gen.parts) != 1 || gen.parts[0].Text == "" {
		t.Fatalf("text path should send a single text part: %+v", gen.parts)
	}
	if result.FieldCount != 2 {
		t.Fatalf("FieldCount = %d", result.FieldCount)
	}
	if profiles.fields["Name"] != "John Doe" {
		t.Fatalf("merged fields = %v", profiles.fields)
	}

	// Name outranks Email in the display order.
	ordered := PrioritizeFields(result.Fields)
	if ordered[0].Key != "Name" {
		t.Fatalf("expected Name first, got %q", ordered[0].Key)
	}

	if len(result.Documents) != 1 || result.Documents[0].Key != "stored-profile.txt" {
		t.Fatalf("documents = %v", result.Documents)
	}
}

func TestPipelineVisionPathWithImage(t *testing.T) {
	gen := &fakeGenerator{response: `{"PassportNumber":"AB123456"}`}
	profiles := &fakeProfiles{}
	p := newTestPipeline(gen, &fakeStorage{}, profiles)

	result, err := p.Run(context.Background(), "student-2", []UploadFile{
		{Name: "scan.png", MimeType: "image/png", Size: 4, Data: []byte{0x89, 0x50, 0x4e, 0x47}},
	})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", gen.calls)
	}
	if len(gen.parts) != 1 || gen.parts[0].MIMEType != "image/png" {
		t.Fatalf("vision path should send the page image: %+v", gen.parts)
	}
	if result.Fields["PassportNumber"] != "AB123456" {
		t.Fatalf("fields = %v", result.Fields)
	}
}

func TestPipelineNoPagesSkipsModelCall(t *testing.T) {
	gen := &fakeGenerator{response: `{"Name":"ignored"}`}
	profiles := &fakeProfiles{}
	p := newTestPipeline(gen, &fakeStorage{}, profiles)

	// Short text and nothing the vision path can render.
	result, err := p.Run(context.Background(), "student-3", []UploadFile{
		{Name: "note.txt", MimeType: "text/plain", Size: 5, Data: []byte("short")},
	})
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}

	if gen.calls != 0 {
		t.Fatalf("expected no model call, got %d", gen.calls)
	}
	if len(result.Fields) != 0 {
		t.Fatalf("expected empty fields, got %v", result.Fields)
	}
	// The document must still be stored and merged.
	if len(profiles.documents) != 1 {
		t.Fatalf("merge should still receive the document: %v", profiles.documents)
	}
}

func TestPipelineStorageFailureDegrades(t *testing.T) {
	gen := &fakeGenerator{response: `{}`}
	storage := &fakeStorage{failFor: "bad.txt"}
	profiles := &fakeProfiles{}
	p := newTestPipeline(gen, storage, profiles)

	long := strings.Repeat("Name: John Doe. ", 10)
	result, err := p.Run(context.Background(), "student-4", []UploadFile{
		{Name: "good.txt", MimeType: "text/plain", Size: int64(len(long)), Data: []byte(long)},
		{Name: "bad.txt", MimeType: "text/plain", Size: int64(len(long)), Data: []byte(long)},
	})
	if err != nil {
		t.Fatalf("storage failure must not fail the run: %v", err)
	}
	if len(result.Documents) != 1 || result.Documents[0].Name != "good.txt" {
		t.Fatalf("documents = %v", result.Documents)
	}
}

func TestPipelineMergeFailurePropagates(t *testing.T) {
	gen := &fakeGenerator{response: `{}`}
	profiles := &fakeProfiles{err: errors.New("mongo down")}
	p := newTestPipeline(gen, &fakeStorage{}, profiles)

	_, err := p.Run(context.Background(), "student-5", []UploadFile{
		{Name: "note.txt", MimeType: "text/plain", Size: 5, Data: []byte("short")},
	})
	if err == nil {
		t.Fatalf("merge failure must propagate")
	}
	if !strings.Contains(err.Error(), "profile merge failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

// stalledGenerator hangs until its context expires, like a model call
// that never answers.
type stalledGenerator struct {
	calls int
}

func (g *stalledGenerator) Generate(ctx context.Context, instruction string, parts []ai.Part) (string, error) {
	g.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPipelineModelTimeoutStillStoresAndMerges(t *testing.T) {
	gen := &stalledGenerator{}
	storage := &fakeStorage{}
	profiles := &fakeProfiles{}
	p := NewPipeline(NewTextExtractor(), NewVisionConverter(40), NewFieldExtractor(gen), storage, profiles, 50)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	long := strings.Repeat("Name: John Doe. ", 10)
	result, err := p.Run(ctx, "student-6", []UploadFile{
		{Name: "slow.txt", MimeType: "text/plain", Size: int64(len(long)), Data: []byte(long)},
	})
	if err != nil {
		t.Fatalf("a hung model call must not abort the batch: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", gen.calls)
	}
	if len(result.Fields) != 0 {
		t.Fatalf("expected empty fields after timeout, got %v", result.Fields)
	}
	if len(result.Documents) != 1 || len(storage.stored) != 1 {
		t.Fatalf("document must still be stored: %v", result.Documents)
	}
	if profiles.ctxErr != nil {
		t.Fatalf("merge must run on a live context, got %v", profiles.ctxErr)
	}
}

func TestPipelineRequiresAIKey(t *testing.T) {
	p := newTestPipeline(&fakeGenerator{}, &fakeStorage{}, &fakeProfiles{})
	if _, err := p.Run(context.Background(), "   ", nil); err == nil {
		t.Fatalf("blank aiKey must be rejected")
	}
}
