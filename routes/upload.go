package routes

import (
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"student-intake-platform/internal/config"
	"student-intake-platform/middleware"
	"student-intake-platform/models"
	"student-intake-platform/services"
	"student-intake-platform/utils"

	"github.com/gin-gonic/gin"
)

// UploadResponse is what one intake batch returns to the caller.
type UploadResponse struct {
	Success         bool                    `json:"success"`
	AIKey           string                  `json:"aiKey"`
	ExtractedFields int                     `json:"extractedFields"`
	Fields          services.OrderedFields  `json:"fields"`
	Student         *StudentView            `json:"student"`
	Documents       []models.DocumentRecord `json:"documents"`
	Skipped         []string                `json:"skipped,omitempty"`
}

// SetupUploadRoutes wires the document intake endpoint.
func SetupUploadRoutes(router *gin.Engine, cfg *config.Config, auth *middleware.AuthMiddleware,
	pipeline *services.Pipeline, students *services.StudentService) {

	api := router.Group("/api")
	api.Use(auth.RequireAuth(), middleware.EnrichTrace())

	api.POST("/upload", func(c *gin.Context) {
		aiKey := resolveAIKey(c)
		if aiKey == "" {
			utils.RespondWithBadRequest(c, "aiKey is required", nil)
			return
		}
		slog.Info("intake batch received",
			"user_id", middleware.GetUserID(c), "ai_key", aiKey)

		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", gin.H{"error": err.Error()})
			return
		}

		fileHeaders := form.File["files"]
		if len(fileHeaders) == 0 {
			utils.RespondWithBadRequest(c, "At least one file is required", nil)
			return
		}
		if len(fileHeaders) > cfg.MaxBatchSize {
			utils.RespondWithBadRequest(c, "Too many files in one batch",
				gin.H{"max_batch_size": cfg.MaxBatchSize, "received": len(fileHeaders)})
			return
		}

		var files []services.UploadFile
		var skipped []string
		for _, fh := range fileHeaders {
			if fh.Size > cfg.MaxFileSize {
				utils.RespondWithPayloadTooLarge(c, "File exceeds maximum size: "+fh.Filename)
				return
			}

			mimeType := detectMimeType(fh)
			if !isAllowedType(mimeType, cfg.AllowedTypes) {
				skipped = append(skipped, fh.Filename)
				continue
			}

			data, err := readUpload(fh)
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to read uploaded file", gin.H{"file": fh.Filename})
				return
			}

			files = append(files, services.UploadFile{
				Name:     fh.Filename,
				MimeType: mimeType,
				Size:     fh.Size,
				Data:     data,
			})
		}

		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files of an accepted type were provided",
				gin.H{"allowed_types": cfg.AllowedTypes, "skipped": skipped})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.PipelineTimeout)
		defer cancel()

		// Audit entries per file; best effort, the pipeline does not
		// depend on them.
		var audit []*models.FileRecord
		for _, f := range files {
			rec := &models.FileRecord{
				AIKey:        aiKey,
				OriginalName: f.Name,
				MimeType:     f.MimeType,
				Size:         f.Size,
				Status:       models.FileStatusUploaded,
			}
			if err := students.RecordFile(ctx, rec); err == nil {
				audit = append(audit, rec)
			}
		}

		result, err := pipeline.Run(ctx, aiKey, files)
		if err != nil {
			for _, rec := range audit {
				students.UpdateFileStatus(ctx, rec.ID, models.FileStatusFailed, err.Error())
			}
			utils.RespondWithInternalError(c, "Document intake failed", gin.H{"error": err.Error()})
			return
		}

		// Advance each audit entry through the extraction step, then
		// finalize the ones whose bytes actually landed in storage.
		storedKeys := storedKeyByName(result.Documents)
		for _, rec := range audit {
			students.UpdateFileStatus(ctx, rec.ID, models.FileStatusExtracted, "")
			if key, ok := storedKeys[rec.OriginalName]; ok {
				students.MarkFileStored(ctx, rec.ID, key)
			} else {
				students.UpdateFileStatus(ctx, rec.ID, models.FileStatusFailed, "storage failed")
			}
		}

		c.JSON(http.StatusOK, UploadResponse{
			Success:         true,
			AIKey:           result.Student.AIKey,
			ExtractedFields: result.FieldCount,
			Fields:          services.PrioritizeFields(result.Fields),
			Student:         NewStudentView(result.Student),
			Documents:       result.Documents,
			Skipped:         skipped,
		})
	})
}

// storedKeyByName maps each stored document back to its original
// filename so audit entries can carry the storage key.
func storedKeyByName(docs []models.DocumentRecord) map[string]string {
	keys := make(map[string]string, len(docs))
	for _, doc := range docs {
		keys[doc.Name] = doc.Key
	}
	return keys
}

// resolveAIKey picks the subject of the upload: students are bound to
// their own key, admins name one explicitly.
func resolveAIKey(c *gin.Context) string {
	if key := middleware.GetAIKey(c); key != "" {
		return key
	}
	if middleware.GetRole(c) == "admin" || middleware.GetRole(c) == "superadmin" {
		return strings.TrimSpace(c.PostForm("aiKey"))
	}
	return ""
}

func detectMimeType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func isAllowedType(mimeType string, allowed []string) bool {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	for _, t := range allowed {
		if strings.EqualFold(strings.TrimSpace(t), base) {
			return true
		}
	}
	return false
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
