package routes

import (
	"testing"

	"student-intake-platform/models"
)

func TestStoredKeyByName(t *testing.T) {
	keys := storedKeyByName([]models.DocumentRecord{
		{Key: "a1b2-passport.pdf", Name: "passport.pdf"},
		{Key: "c3d4-transcript.pdf", Name: "transcript.pdf"},
	})

	if keys["passport.pdf"] != "a1b2-passport.pdf" {
		t.Fatalf("keys = %v", keys)
	}
	if keys["transcript.pdf"] != "c3d4-transcript.pdf" {
		t.Fatalf("keys = %v", keys)
	}
	// A file the storage step skipped has no entry, which downgrades
	// its audit record instead of marking it stored.
	if _, ok := keys["missing.pdf"]; ok {
		t.Fatalf("unexpected entry for unstored file")
	}
}
