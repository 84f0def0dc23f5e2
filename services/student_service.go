package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"student-intake-platform/models"
	"student-intake-platform/utils"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrContactExists   = errors.New("contact request already submitted")
	ErrNotPending      = errors.New("student is not pending")
)

// StudentService owns the students and files collections: the
// cumulative profile merge, contact intake, activation and the upload
// audit trail.
type StudentService struct {
	students *mongo.Collection
	files    *mongo.Collection
	admins   *mongo.Collection
}

func NewStudentService(db *mongo.Database) *StudentService {
	return &StudentService{
		students: db.Collection("students"),
		files:    db.Collection("files"),
		admins:   db.Collection("admins"),
	}
}

// documentKey resolves the canonical identity of a document record:
// the stable storage key when one exists, the display name otherwise.
// Applied once here so the rest of the system only ever sees a single
// key per document.
func documentKey(doc models.DocumentRecord) string {
	if doc.Key != "" {
		return doc.Key
	}
	return doc.Name
}

// buildProfileUpdate translates a merge request into a single MongoDB
// update document. Field merges become per-key $set paths and document
// merges become per-attribute $set paths under the canonical document
// key, so the whole merge is one atomic upsert with no read branch.
func buildProfileUpdate(fields models.FieldMap, documents []models.DocumentRecord, now time.Time) (bson.M, error) {
	set := bson.M{}

	for k, v := range fields {
		if strings.TrimSpace(k) == "" {
			continue
		}
		set["fields."+models.EscapeKey(k)] = v
	}

	for _, doc := range documents {
		key := documentKey(doc)
		if key == "" {
			return nil, fmt.Errorf("document record has neither storage key nor name")
		}
		if doc.UploadedAt.IsZero() {
			doc.UploadedAt = now
		}

		prefix := "documents." + models.EscapeKey(key) + "."
		set[prefix+"key"] = key
		set[prefix+"uploaded_at"] = doc.UploadedAt
		if doc.Bucket != "" {
			set[prefix+"bucket"] = doc.Bucket
		}
		if doc.Name != "" {
			set[prefix+"name"] = doc.Name
		}
		if doc.MimeType != "" {
			set[prefix+"mime_type"] = doc.MimeType
		}
		if doc.Size > 0 {
			set[prefix+"size"] = doc.Size
		}
		if doc.WebViewLink != "" {
			set[prefix+"web_view_link"] = doc.WebViewLink
		}
	}

	update := bson.M{
		"$setOnInsert": bson.M{
			"created_at": now,
			"status":     models.StudentStatusActive,
		},
	}
	if len(set) > 0 {
		set["updated_at"] = now
		update["$set"] = set
	}
	return update, nil
}

// UpsertStudent merges newly extracted fields and document metadata
// into the student's cumulative profile. The profile is created on
// first reference; existing fields survive unless the new extraction
// overwrites them, and documents dedup by canonical key with new
// attributes winning field-by-field. The whole merge is one atomic
// upsert keyed by ai_key.
func (s *StudentService) UpsertStudent(ctx context.Context, aiKey string, fields models.FieldMap, documents []models.DocumentRecord) (*models.Student, error) {
	aiKey = strings.TrimSpace(aiKey)
	if aiKey == "" {
		return nil, fmt.Errorf("aiKey is required")
	}

	update, err := buildProfileUpdate(fields, documents, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var student models.Student
	err = s.students.FindOneAndUpdate(ctx,
		bson.M{"ai_key": aiKey},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&student)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert student %s: %w", aiKey, err)
	}

	slog.Info("profile merged",
		"ai_key", aiKey,
		"new_fields", len(fields),
		"new_documents", len(documents),
		"total_fields", len(student.Fields))

	return &student, nil
}

// FindByAIKey loads one student profile.
func (s *StudentService) FindByAIKey(ctx context.Context, aiKey string) (*models.Student, error) {
	var student models.Student
	err := s.students.FindOne(ctx, bson.M{"ai_key": aiKey}).Decode(&student)
	if err == mongo.ErrNoDocuments {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load student %s: %w", aiKey, err)
	}
	return &student, nil
}

// List returns students, optionally filtered by status and a
// case-insensitive search over contact name, email and username.
func (s *StudentService) List(ctx context.Context, status, search string) ([]models.Student, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	if search != "" {
		query["$or"] = bson.A{
			bson.M{"contact_info.name": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"contact_info.email": bson.M{"$regex": search, "$options": "i"}},
			bson.M{"username": bson.M{"$regex": search, "$options": "i"}},
		}
	}

	cursor, err := s.students.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer cursor.Close(ctx)

	var students []models.Student
	if err := cursor.All(ctx, &students); err != nil {
		return nil, fmt.Errorf("failed to decode students: %w", err)
	}
	return students, nil
}

// CreateContact records a contact-form submission as a pending student
// profile. This is the "first contact event" that can create a subject
// before any document upload.
func (s *StudentService) CreateContact(ctx context.Context, info models.ContactInfo) (*models.Student, error) {
	if info.Name == "" || info.Email == "" {
		return nil, fmt.Errorf("name and email are required")
	}

	count, err := s.students.CountDocuments(ctx, bson.M{
		"contact_info.email": info.Email,
		"status":             models.StudentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing contact: %w", err)
	}
	if count > 0 {
		return nil, ErrContactExists
	}

	now := time.Now().UTC()
	student := models.Student{
		ID:          primitive.NewObjectID(),
		AIKey:       "contact-" + primitive.NewObjectID().Hex(),
		Status:      models.StudentStatusPending,
		ContactInfo: &info,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.students.InsertOne(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to create contact record: %w", err)
	}
	return &student, nil
}

// Activate turns a pending contact into a login-capable student
// account with the given credentials.
func (s *StudentService) Activate(ctx context.Context, id, username, password string, bcryptCost int) (*models.Student, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid student id: %w", err)
	}
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required")
	}

	var student models.Student
	if err := s.students.FindOne(ctx, bson.M{"_id": objectID}).Decode(&student); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student.Status != models.StudentStatusPending {
		return nil, ErrNotPending
	}

	hash, err := utils.HashPassword(password, bcryptCost)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"username":      username,
		"password_hash": hash,
		"status":        models.StudentStatusActive,
		"updated_at":    time.Now().UTC(),
	}
	if student.ContactInfo != nil && student.ContactInfo.Email != "" {
		set["email"] = student.ContactInfo.Email
	}

	err = s.students.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&student)
	if err != nil {
		return nil, fmt.Errorf("failed to activate student: %w", err)
	}
	return &student, nil
}

// FindAdminByLogin looks up an active admin by username or email.
func (s *StudentService) FindAdminByLogin(ctx context.Context, login string) (*models.Admin, error) {
	var admin models.Admin
	err := s.admins.FindOne(ctx, bson.M{
		"$or":       bson.A{bson.M{"username": login}, bson.M{"email": login}},
		"is_active": true,
	}).Decode(&admin)
	if err == mongo.ErrNoDocuments {
		return nil, mongo.ErrNoDocuments
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	return &admin, nil
}

// FindActiveStudentByLogin looks up an activated student by username
// or email.
func (s *StudentService) FindActiveStudentByLogin(ctx context.Context, login string) (*models.Student, error) {
	var student models.Student
	err := s.students.FindOne(ctx, bson.M{
		"$or":    bson.A{bson.M{"username": login}, bson.M{"email": login}},
		"status": models.StudentStatusActive,
	}).Decode(&student)
	if err == mongo.ErrNoDocuments {
		return nil, mongo.ErrNoDocuments
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	return &student, nil
}

// RecordFile writes a new upload audit entry and returns its id.
func (s *StudentService) RecordFile(ctx context.Context, rec *models.FileRecord) error {
	now := time.Now().UTC()
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = models.FileStatusUploaded
	}
	if _, err := s.files.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to record file: %w", err)
	}
	return nil
}

// UpdateFileStatus advances one audit entry through the pipeline.
func (s *StudentService) UpdateFileStatus(ctx context.Context, id primitive.ObjectID, status, errMsg string) {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if errMsg != "" {
		set["error"] = errMsg
	}
	if _, err := s.files.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		slog.Warn("failed to update file status", "file_id", id.Hex(), "status", status, "error", err)
	}
}

// MarkFileStored finalizes one audit entry with the key its bytes
// landed under.
func (s *StudentService) MarkFileStored(ctx context.Context, id primitive.ObjectID, storedName string) {
	set := bson.M{"status": models.FileStatusStored, "updated_at": time.Now().UTC()}
	if storedName != "" {
		set["stored_name"] = storedName
	}
	if _, err := s.files.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		slog.Warn("failed to mark file stored", "file_id", id.Hex(), "error", err)
	}
}
