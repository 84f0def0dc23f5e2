package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"student-intake-platform/models"
)

// LocalStorage keeps uploaded files on the local filesystem, one
// directory per student. Suitable for development and single-node
// deployments; production uses DriveStorage.
type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Store writes the file under a unique stored name and reports the
// resulting document record. The stored name doubles as the stable
// document key.
func (s *LocalStorage) Store(ctx context.Context, aiKey string, f UploadFile) (models.DocumentRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.DocumentRecord{}, err
	}

	dir := filepath.Join(s.basePath, aiKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to create student directory: %w", err)
	}

	storedName := uuid.NewString() + "-" + sanitizeFilename(f.Name)
	path := filepath.Join(dir, storedName)
	if err := os.WriteFile(path, f.Data, 0o600); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to write file: %w", err)
	}

	return models.DocumentRecord{
		Key:        storedName,
		Bucket:     dir,
		Name:       f.Name,
		MimeType:   f.MimeType,
		Size:       int64(len(f.Data)),
		UploadedAt: time.Now().UTC(),
	}, nil
}

// sanitizeFilename strips path separators and whitespace so uploaded
// names cannot escape the storage directory.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '\t':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}
