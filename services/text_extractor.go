package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// TextExtractor pulls plain text out of uploaded files. It is a pure
// transformation of bytes to text with no side effects; any per-file
// problem degrades to an empty string so one bad file never sinks a
// batch.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText returns the plain text content of one file. A scanned
// PDF with no text layer returns "" without error; that is the signal
// for the vision path, not a failure.
func (e *TextExtractor) ExtractText(f UploadFile) string {
	text, err := e.extract(f)
	if err != nil {
		slog.Warn("text extraction degraded to empty",
			"file", f.Name, "mime_type", f.MimeType, "error", err)
		return ""
	}
	return text
}

func (e *TextExtractor) extract(f UploadFile) (string, error) {
	switch {
	case f.MimeType == "application/pdf":
		return extractPDFText(f.Data)
	case strings.Contains(f.MimeType, "word") || strings.HasSuffix(strings.ToLower(f.Name), ".docx"):
		return extractDocxText(f.Data)
	case strings.HasPrefix(f.MimeType, "image/"):
		// No text layer to read; the vision path handles these.
		return "", nil
	default:
		return decodePlainText(f.Data), nil
	}
}

// extractPDFText reads the embedded text layer of a PDF.
func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			slog.Debug("failed to extract text from page", "page", i, "error", err)
			continue
		}

		if strings.TrimSpace(text) != "" {
			textBuilder.WriteString(text)
			textBuilder.WriteString("\n")
		}
	}

	return textBuilder.String(), nil
}

// extractDocxText reads word/document.xml out of the docx archive and
// collects the text runs. Paragraphs and breaks become newlines, tabs
// become tabs.
func extractDocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx archive: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()

	var textBuilder strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				textBuilder.WriteString("\t")
			case "br":
				textBuilder.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				textBuilder.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				textBuilder.Write(t)
			}
		}
	}

	return textBuilder.String(), nil
}

// decodePlainText treats the bytes as UTF-8 text. Binary content
// (invalid UTF-8 or embedded NUL) yields an empty string instead of
// garbage.
func decodePlainText(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return ""
	}
	return string(data)
}
