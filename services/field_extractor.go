package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"student-intake-platform/internal/ai"
	"student-intake-platform/models"
)

// extractionInstruction is the contract given to the model: one flat
// JSON object, short human-readable keys, ISO dates, omit anything
// uncertain.
const extractionInstruction = `You are a document intake assistant.
Return ONLY a single JSON object with key:value pairs of IMPORTANT fields you detect.
- Do NOT include explanations.
- Use short, human-readable keys (e.g., Name, DateOfBirth, UCI, ApplicationNumber, PassportNumber, Program, College, Country, etc.).
- Keep dates in ISO if possible (YYYY-MM-DD).
- If unsure, omit the key.`

// FieldExtractor asks the language model for structured fields from
// either concatenated text or rendered page images. It never returns
// an error and never returns anything but a flat map: every failure
// mode collapses to an empty FieldMap.
type FieldExtractor struct {
	generator ai.Generator
}

func NewFieldExtractor(generator ai.Generator) *FieldExtractor {
	return &FieldExtractor{generator: generator}
}

// ExtractFields performs one model invocation for the batch. Text and
// images are alternatives: the caller passes whichever path it chose.
// With no usable payload at all, no model call is made.
func (e *FieldExtractor) ExtractFields(ctx context.Context, text string, pages []string) models.FieldMap {
	parts := buildContentParts(text, pages)
	if len(parts) == 0 {
		return models.FieldMap{}
	}

	raw, err := e.generator.Generate(ctx, extractionInstruction, parts)
	if err != nil {
		slog.Warn("field extraction degraded to empty map", "error", err)
		return models.FieldMap{}
	}

	return parseFieldJSON(raw)
}

// buildContentParts assembles the user message: the text if any, then
// one image part per rendered page in original order.
func buildContentParts(text string, pages []string) []ai.Part {
	var parts []ai.Part
	if strings.TrimSpace(text) != "" {
		parts = append(parts, ai.Part{Text: text})
	}
	for _, page := range pages {
		mimeType, data, err := decodeDataURI(page)
		if err != nil {
			slog.Debug("skipping undecodable page image", "error", err)
			continue
		}
		parts = append(parts, ai.Part{MIMEType: mimeType, Data: data})
	}
	return parts
}

// parseFieldJSON recovers a flat object from the raw model output.
// Strict parse first; then the substring between the first '{' and the
// last '}'; anything else, including non-object JSON, yields an empty
// map.
func parseFieldJSON(raw string) models.FieldMap {
	if m, ok := tryParseObject(raw); ok {
		return m
	}

	trimmed := strings.TrimSpace(raw)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if m, ok := tryParseObject(trimmed[start : end+1]); ok {
			return m
		}
	}

	slog.Warn("model output was not a JSON object, returning empty fields",
		"output_length", len(raw))
	return models.FieldMap{}
}

func tryParseObject(s string) (models.FieldMap, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return models.FieldMap(m), true
}
