package models

import (
	"encoding/json"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FieldMap is the schema-less extraction result: whatever key:value
// pairs the model detected in the uploaded documents. Keys are not a
// fixed schema; any field is accepted.
type FieldMap map[string]any

// DocumentRecord is the persisted metadata for one uploaded file.
// Two records with the same identifying key (storage key, falling back
// to display name) describe the same physical document.
type DocumentRecord struct {
	Key         string    `bson:"key,omitempty" json:"key,omitempty"` // storage key (Drive file ID, stored filename)
	Bucket      string    `bson:"bucket,omitempty" json:"bucket,omitempty"`
	Name        string    `bson:"name,omitempty" json:"name,omitempty"`
	MimeType    string    `bson:"mime_type,omitempty" json:"mimeType,omitempty"`
	Size        int64     `bson:"size,omitempty" json:"size,omitempty"`
	WebViewLink string    `bson:"web_view_link,omitempty" json:"webViewLink,omitempty"`
	UploadedAt  time.Time `bson:"uploaded_at,omitempty" json:"uploadedAt,omitempty"`
}

// DocumentSet is the stored shape of a student's documents: an ordered
// embedded document keyed by the canonical document key. The map shape
// is what makes the per-attribute atomic merge possible; consumers see
// it as an ordered list.
type DocumentSet bson.D

// Records returns the documents as a slice, preserving the insertion
// order of the underlying stored map.
func (s DocumentSet) Records() []DocumentRecord {
	records := make([]DocumentRecord, 0, len(s))
	for _, elem := range s {
		raw, err := bson.Marshal(elem.Value)
		if err != nil {
			continue
		}
		var rec DocumentRecord
		if err := bson.Unmarshal(raw, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// MarshalJSON renders the set as a JSON array of records so API
// consumers never see the internal map shape.
func (s DocumentSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Records())
}

// ContactInfo holds the details submitted through the contact form
// before a student account is activated.
type ContactInfo struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Message string `bson:"message,omitempty" json:"message,omitempty"`
}

// Student statuses.
const (
	StudentStatusPending = "pending"
	StudentStatusActive  = "active"
)

// Student is the cumulative profile for one case subject. It is
// created on first upload or first contact event and only ever grows:
// fields are merged key-by-key, documents are merged by identifying
// key, and nothing is destroyed by the intake pipeline.
type Student struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AIKey        string             `bson:"ai_key" json:"aiKey"`
	Username     string             `bson:"username,omitempty" json:"username,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`
	ContactInfo  *ContactInfo       `bson:"contact_info,omitempty" json:"contactInfo,omitempty"`
	Fields       FieldMap           `bson:"fields,omitempty" json:"fields,omitempty"`
	Documents    DocumentSet        `bson:"documents,omitempty" json:"documents,omitempty"`
	CreatedAt    time.Time          `bson:"created_at,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    time.Time          `bson:"updated_at,omitempty" json:"updatedAt,omitempty"`
}

// MongoDB field names may not contain '.' or start with '$'. Extracted
// field keys and document keys are stored with those characters mapped
// to their fullwidth forms and mapped back on read.
const (
	escapedDot    = "．" // '．'
	escapedDollar = "＄" // '＄'
)

// EscapeKey makes an arbitrary string usable as a MongoDB field name.
func EscapeKey(key string) string {
	key = strings.ReplaceAll(key, ".", escapedDot)
	if strings.HasPrefix(key, "$") {
		key = escapedDollar + key[1:]
	}
	return key
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(key string) string {
	key = strings.ReplaceAll(key, escapedDot, ".")
	if strings.HasPrefix(key, escapedDollar) {
		key = "$" + key[len(escapedDollar):]
	}
	return key
}

// NormalizeValue converts BSON container types that surface when a
// FieldMap round-trips through MongoDB (primitive.D, primitive.A) back
// into plain maps and slices so JSON output stays shaped like the
// original extraction.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = NormalizeValue(e.Value)
		}
		return m
	case primitive.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = NormalizeValue(val)
		}
		return m
	case primitive.A:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}

// NormalizedFields returns the profile fields with BSON container
// values flattened to plain Go types.
func (s *Student) NormalizedFields() FieldMap {
	if s.Fields == nil {
		return FieldMap{}
	}
	out := make(FieldMap, len(s.Fields))
	for k, v := range s.Fields {
		out[UnescapeKey(k)] = NormalizeValue(v)
	}
	return out
}
