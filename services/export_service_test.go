package services

import (
	"testing"
	"time"

	"student-intake-platform/models"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
)

func TestExportStudentsWorkbook(t *testing.T) {
	uploaded := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	students := []*models.Student{
		{
			AIKey:    "student-1",
			Username: "jane",
			Status:   models.StudentStatusActive,
			Fields:   models.FieldMap{"Name": "Jane Doe", "salary": "50000"},
			Documents: models.DocumentSet{
				{Key: "passport.pdf", Value: bson.D{
					{Key: "key", Value: "a1b2-passport.pdf"},
					{Key: "name", Value: "passport.pdf"},
					{Key: "mime_type", Value: "application/pdf"},
					{Key: "size", Value: int64(1024)},
					{Key: "uploaded_at", Value: uploaded},
				}},
			},
			CreatedAt: uploaded,
			UpdatedAt: uploaded,
		},
	}

	buf, err := NewExportService().ExportStudents(students)
	if err != nil {
		t.Fatalf("export error: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("workbook does not reopen: %v", err)
	}
	defer f.Close()

	// Field columns follow the fixed columns in priority order.
	name, err := f.GetCellValue("Students", "G1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if name != "Name" {
		t.Fatalf("G1 = %q, want Name", name)
	}
	if got, _ := f.GetCellValue("Students", "H1"); got != "Salary" {
		t.Fatalf("H1 = %q, want Salary", got)
	}
	if got, _ := f.GetCellValue("Students", "A2"); got != "student-1" {
		t.Fatalf("A2 = %q", got)
	}

	// The document sheet carries the storage key and sized columns.
	if got, _ := f.GetCellValue("Documents", "B2"); got != "a1b2-passport.pdf" {
		t.Fatalf("Documents B2 = %q", got)
	}
	width, err := f.GetColWidth("Documents", "A")
	if err != nil {
		t.Fatalf("column width: %v", err)
	}
	if width != 20 {
		t.Fatalf("Documents column A width = %v, want 20", width)
	}
}
