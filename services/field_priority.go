package services

import (
	"encoding/json"
	"sort"
	"strings"
	"unicode"

	"student-intake-platform/models"
)

// fieldPriority ranks known field names into display buckets; lower
// buckets are shown first. Unknown fields fall to the bottom.
var fieldPriority = map[string]int{
	// Personal Information (Priority 1)
	"fullName":       1,
	"firstName":      1,
	"lastName":       1,
	"name":           1,
	"dateOfBirth":    1,
	"dob":            1,
	"nationality":    1,
	"passportNumber": 1,
	"passport":       1,
	"gender":         1,
	"maritalStatus":  1,

	// Contact (Priority 2)
	"email":       2,
	"phone":       2,
	"phoneNumber": 2,
	"address":     2,
	"city":        2,
	"state":       2,
	"country":     2,
	"postalCode":  2,
	"zipCode":     2,

	// Education (Priority 3)
	"education":      3,
	"degree":         3,
	"university":     3,
	"college":        3,
	"institution":    3,
	"graduationDate": 3,
	"fieldOfStudy":   3,
	"major":          3,
	"gpa":            3,

	// Work Experience (Priority 4)
	"workExperience":    4,
	"jobTitle":          4,
	"company":           4,
	"employer":          4,
	"yearsOfExperience": 4,
	"occupation":        4,
	"position":          4,
	"salary":            4,

	// Immigration (Priority 5)
	"visaType":          5,
	"visaStatus":        5,
	"arrivalDate":       5,
	"departureDate":     5,
	"immigrationStatus": 5,
	"travelHistory":     5,
}

const defaultFieldPriority = 999

// fieldPriorityLower allows case-insensitive lookups, since the model
// emits keys like "Name" or "DateOfBirth" while the table uses
// camelCase.
var fieldPriorityLower = func() map[string]int {
	m := make(map[string]int, len(fieldPriority))
	for k, v := range fieldPriority {
		m[strings.ToLower(k)] = v
	}
	return m
}()

// FieldPriorityOf returns the display bucket for a field name.
func FieldPriorityOf(key string) int {
	if p, ok := fieldPriority[key]; ok {
		return p
	}
	if p, ok := fieldPriorityLower[strings.ToLower(key)]; ok {
		return p
	}
	return defaultFieldPriority
}

// PrioritizedField is one entry of an ordered field listing.
type PrioritizedField struct {
	Key   string
	Label string
	Value any
}

// OrderedFields is a FieldMap with a fixed display order. It marshals
// as a JSON object whose keys appear in that order.
type OrderedFields []PrioritizedField

func (f OrderedFields) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteByte('{')
	for i, field := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

// PrioritizeFields orders a FieldMap by display priority: bucket
// ascending, then key name ascending within a bucket.
func PrioritizeFields(fields models.FieldMap) OrderedFields {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := FieldPriorityOf(keys[i]), FieldPriorityOf(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})

	out := make(OrderedFields, 0, len(keys))
	for _, k := range keys {
		out = append(out, PrioritizedField{
			Key:   k,
			Label: FormatFieldName(k),
			Value: models.NormalizeValue(fields[k]),
		})
	}
	return out
}

// FormatFieldName converts a camelCase or snake_case field key into a
// human title: spaces before capitals, underscores replaced, leading
// character capitalized.
func FormatFieldName(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r == '_' {
			b.WriteRune(' ')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
