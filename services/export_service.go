package services

import (
	"bytes"
	"fmt"
	"sort"

	"student-intake-platform/models"

	"github.com/xuri/excelize/v2"
)

// ExportService renders student profiles as Excel workbooks.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// ExportStudents writes the given students into an xlsx workbook with a
// profile sheet and a document sheet. Field columns are the union of all
// extracted field keys, placed in priority order after the fixed columns.
func (es *ExportService) ExportStudents(students []*models.Student) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Error closing Excel file: %v\n", err)
		}
	}()

	sheetName := "Students"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	fieldKeys := collectFieldKeys(students)

	headers := []string{"AI Key", "Status", "Username", "Contact Email", "Created At", "Updated At"}
	for _, key := range fieldKeys {
		headers = append(headers, FormatFieldName(key))
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, student := range students {
		row := rowIdx + 2

		contactEmail := student.Email
		if contactEmail == "" && student.ContactInfo != nil {
			contactEmail = student.ContactInfo.Email
		}

		values := []any{
			student.AIKey,
			student.Status,
			student.Username,
			contactEmail,
			student.CreatedAt.Format("2006-01-02 15:04:05"),
			student.UpdatedAt.Format("2006-01-02 15:04:05"),
		}

		fields := student.NormalizedFields()
		for _, key := range fieldKeys {
			if v, ok := fields[key]; ok {
				values = append(values, fmt.Sprintf("%v", v))
			} else {
				values = append(values, "")
			}
		}

		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve column: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, 18); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if err := writeDocumentSheet(f, students); err != nil {
		return nil, err
	}

	// Drop the default sheet created by excelize
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf, nil
}

// collectFieldKeys returns the union of extracted field keys across all
// students, ordered by the field priority table.
func collectFieldKeys(students []*models.Student) []string {
	seen := map[string]struct{}{}
	keys := []string{}
	for _, student := range students {
		for key := range student.NormalizedFields() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := FieldPriorityOf(keys[i]), FieldPriorityOf(keys[j])
		if pi != pj {
			return pi < pj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func writeDocumentSheet(f *excelize.File, students []*models.Student) error {
	sheetName := "Documents"
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create document sheet: %w", err)
	}

	headers := []string{"AI Key", "Document Key", "Name", "Type", "Size", "Link", "Uploaded At"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
	}

	row := 2
	for _, student := range students {
		for _, doc := range student.Documents.Records() {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), student.AIKey)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), doc.Key)
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), doc.Name)
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), doc.MimeType)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), doc.Size)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), doc.WebViewLink)
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), doc.UploadedAt.Format("2006-01-02 15:04:05"))
			row++
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, 20); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}
