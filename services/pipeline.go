package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"student-intake-platform/models"
)

// UploadFile is one file of an intake batch, fully read into memory.
// The route layer enforces per-file size limits before building these.
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// Storage is the object-storage collaborator: it persists the bytes
// of one file and reports the resulting document metadata. The
// pipeline never touches storage internals, it only incorporates the
// returned record.
type Storage interface {
	Store(ctx context.Context, aiKey string, f UploadFile) (models.DocumentRecord, error)
}

// ProfileStore is the persistence collaborator for profile merges.
// *StudentService is the production implementation.
type ProfileStore interface {
	UpsertStudent(ctx context.Context, aiKey string, fields models.FieldMap, documents []models.DocumentRecord) (*models.Student, error)
}

// PipelineResult is what one intake run produces: the merged profile,
// the raw extraction independent of persisted state, and the stored
// document records.
type PipelineResult struct {
	Student    *models.Student
	Fields     models.FieldMap
	FieldCount int
	Documents  []models.DocumentRecord
}

// Pipeline sequences the document intake for one upload batch: text
// extraction, the vision fallback, one model call, storage and the
// profile merge. Failures before the merge degrade the extraction
// quality; only a merge failure propagates.
type Pipeline struct {
	texts         *TextExtractor
	vision        *VisionConverter
	fields        *FieldExtractor
	storage       Storage
	profiles      ProfileStore
	minTextLength int
}

func NewPipeline(texts *TextExtractor, vision *VisionConverter, fields *FieldExtractor, storage Storage, profiles ProfileStore, minTextLength int) *Pipeline {
	if minTextLength <= 0 {
		minTextLength = 50
	}
	return &Pipeline{
		texts:         texts,
		vision:        vision,
		fields:        fields,
		storage:       storage,
		profiles:      profiles,
		minTextLength: minTextLength,
	}
}

// Run processes one upload batch for one subject.
func (p *Pipeline) Run(ctx context.Context, aiKey string, files []UploadFile) (*PipelineResult, error) {
	if strings.TrimSpace(aiKey) == "" {
		return nil, fmt.Errorf("aiKey is required")
	}

	tracer := otel.Tracer("intake-pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("intake.ai_key", aiKey),
		attribute.Int("intake.files", len(files)),
	)

	// The model call runs on a bounded slice of the request budget so
	// a hung call cannot exhaust the deadline that storage and the
	// merge still need. A timed-out call degrades to an empty map.
	extractCtx := ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, time.Until(deadline)*2/3)
		defer cancel()
	}

	// Text extraction per file, accumulated across the batch.
	var combined strings.Builder
	for _, f := range files {
		text := p.texts.ExtractText(f)
		if strings.TrimSpace(text) != "" {
			combined.WriteString("\n")
			combined.WriteString(text)
		}
	}
	combinedText := combined.String()

	var extracted models.FieldMap
	if len(strings.TrimSpace(combinedText)) > p.minTextLength {
		span.SetAttributes(attribute.String("intake.mode", "text"))
		slog.Info("using text extraction", "ai_key", aiKey, "text_length", len(combinedText))
		extracted = p.fields.ExtractFields(extractCtx, combinedText, nil)
	} else {
		// Vision fallback: render pages for every file the path supports.
		var pages []string
		for _, f := range files {
			if !CanRender(f.MimeType) {
				continue
			}
			pages = append(pages, p.vision.RenderPages(f)...)
			if len(pages) >= p.vision.MaxPages() {
				pages = pages[:p.vision.MaxPages()]
				break
			}
		}
		span.SetAttributes(
			attribute.String("intake.mode", "vision"),
			attribute.Int("intake.pages", len(pages)),
		)
		if len(pages) == 0 {
			// Nothing to send; skip the model call entirely.
			slog.Info("no renderable pages, skipping extraction", "ai_key", aiKey)
			extracted = models.FieldMap{}
		} else {
			slog.Info("using vision extraction", "ai_key", aiKey, "pages", len(pages))
			extracted = p.fields.ExtractFields(extractCtx, "", pages)
		}
	}

	// Storage: incorporate whatever records the collaborator reports.
	// A storage failure for one file degrades to a missing record.
	var documents []models.DocumentRecord
	for _, f := range files {
		rec, err := p.storage.Store(ctx, aiKey, f)
		if err != nil {
			slog.Warn("storage failed for file, skipping its record",
				"ai_key", aiKey, "file", f.Name, "error", err)
			continue
		}
		documents = append(documents, rec)
	}

	// The merge is the only step whose failure reaches the caller: it
	// threatens durability, everything before it only degrades quality.
	student, err := p.profiles.UpsertStudent(ctx, aiKey, extracted, documents)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("profile merge failed: %w", err)
	}

	return &PipelineResult{
		Student:    student,
		Fields:     extracted,
		FieldCount: len(extracted),
		Documents:  documents,
	}, nil
}
