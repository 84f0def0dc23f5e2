package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"student-intake-platform/models"
)

// DriveStorage keeps uploaded files in Google Drive, one folder per
// student under an optional parent folder. It implements Storage; the
// Drive file ID becomes the stable document key.
type DriveStorage struct {
	service        *drive.Service
	parentFolderID string

	mu      sync.Mutex
	folders map[string]*drive.File // aiKey -> resolved folder
}

func NewDriveStorage(ctx context.Context, credentialsFile, parentFolderID string) (*DriveStorage, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return &DriveStorage{
		service:        service,
		parentFolderID: parentFolderID,
		folders:        map[string]*drive.File{},
	}, nil
}

// Store uploads the file into the student's folder and reports the
// resulting document record.
func (s *DriveStorage) Store(ctx context.Context, aiKey string, f UploadFile) (models.DocumentRecord, error) {
	folder, err := s.ensureStudentFolder(ctx, aiKey)
	if err != nil {
		return models.DocumentRecord{}, err
	}

	meta := &drive.File{
		Name:    f.Name,
		Parents: []string{folder.Id},
	}
	created, err := s.service.Files.Create(meta).
		Context(ctx).
		Media(bytes.NewReader(f.Data), googleapi.ContentType(f.MimeType)).
		Fields("id, name, mimeType, size, webViewLink").
		Do()
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to upload %s to drive: %w", f.Name, err)
	}

	slog.Info("uploaded file to drive", "ai_key", aiKey, "file", f.Name, "drive_id", created.Id)

	size := created.Size
	if size == 0 {
		size = int64(len(f.Data))
	}
	return models.DocumentRecord{
		Key:         created.Id,
		Bucket:      folder.Id,
		Name:        created.Name,
		MimeType:    created.MimeType,
		Size:        size,
		WebViewLink: created.WebViewLink,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// ensureStudentFolder finds or creates the Student_<aiKey> folder,
// caching the result per process.
func (s *DriveStorage) ensureStudentFolder(ctx context.Context, aiKey string) (*drive.File, error) {
	s.mu.Lock()
	if folder, ok := s.folders[aiKey]; ok {
		s.mu.Unlock()
		return folder, nil
	}
	s.mu.Unlock()

	folder, err := s.findStudentFolder(ctx, aiKey)
	if err != nil {
		return nil, err
	}
	if folder == nil {
		folder, err = s.createStudentFolder(ctx, aiKey)
		if err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.folders[aiKey] = folder
	s.mu.Unlock()
	return folder, nil
}

func (s *DriveStorage) findStudentFolder(ctx context.Context, aiKey string) (*drive.File, error) {
	name := "Student_" + aiKey
	query := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.folder' and trashed = false",
		escapeDriveQuery(name))
	if s.parentFolderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.parentFolderID)
	}

	list, err := s.service.Files.List().
		Context(ctx).
		Q(query).
		Fields("files(id, name, webViewLink)").
		PageSize(1).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find student folder: %w", err)
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func (s *DriveStorage) createStudentFolder(ctx context.Context, aiKey string) (*drive.File, error) {
	meta := &drive.File{
		Name:     "Student_" + aiKey,
		MimeType: "application/vnd.google-apps.folder",
	}
	if s.parentFolderID != "" {
		meta.Parents = []string{s.parentFolderID}
	}

	folder, err := s.service.Files.Create(meta).
		Context(ctx).
		Fields("id, name, webViewLink").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create student folder: %w", err)
	}
	slog.Info("created drive folder", "ai_key", aiKey, "folder_id", folder.Id)
	return folder, nil
}

func escapeDriveQuery(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
