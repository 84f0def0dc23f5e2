package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File processing statuses, in pipeline order.
const (
	FileStatusUploaded  = "UPLOADED"
	FileStatusExtracted = "EXTRACTED"
	FileStatusStored    = "STORED"
	FileStatusFailed    = "FAILED"
)

// FileRecord is the per-upload audit entry in the files collection.
// It tracks each physical file through the intake pipeline; the
// durable document metadata lives on the student profile itself.
type FileRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AIKey        string             `bson:"ai_key" json:"aiKey"`
	OriginalName string             `bson:"original_name" json:"originalName"`
	StoredName   string             `bson:"stored_name,omitempty" json:"storedName,omitempty"`
	MimeType     string             `bson:"mime_type" json:"mimeType"`
	Size         int64              `bson:"size" json:"size"`
	Status       string             `bson:"status" json:"status"`
	Error        string             `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}
