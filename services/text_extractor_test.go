package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextPlain(t *testing.T) {
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "notes.txt",
		MimeType: "text/plain",
		Data:     []byte("Name: John Doe\nEmail: john@example.com"),
	})
	if !strings.Contains(text, "John Doe") {
		t.Fatalf("plain text not passed through: %q", text)
	}
}

func TestExtractTextBinaryDegradesToEmpty(t *testing.T) {
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "blob.bin",
		MimeType: "application/octet-stream",
		Data:     []byte{0x00, 0xff, 0xfe, 0x01},
	})
	if text != "" {
		t.Fatalf("binary content should yield empty text, got %q", text)
	}
}

func TestExtractTextCorruptPDFDegradesToEmpty(t *testing.T) {
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "broken.pdf",
		MimeType: "application/pdf",
		Data:     []byte("%PDF-1.4 this is not a real pdf"),
	})
	if text != "" {
		t.Fatalf("corrupt PDF should yield empty text, got %q", text)
	}
}

func TestExtractTextImageIsEmpty(t *testing.T) {
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "scan.png",
		MimeType: "image/png",
		Data:     []byte{0x89, 0x50, 0x4e, 0x47},
	})
	if text != "" {
		t.Fatalf("images have no text layer, got %q", text)
	}
}

func TestExtractTextDocx(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Passport Number:</w:t></w:r><w:r><w:tab/><w:t>AB123456</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second line</w:t></w:r></w:p>
  </w:body>
</w:document>`

	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "application.docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:     buildDocx(t, doc),
	})

	if !strings.Contains(text, "Passport Number:\tAB123456") {
		t.Fatalf("docx run/tab extraction wrong: %q", text)
	}
	if !strings.Contains(text, "Second line") {
		t.Fatalf("missing second paragraph: %q", text)
	}
	if !strings.Contains(text, "AB123456\n") {
		t.Fatalf("paragraph end should produce newline: %q", text)
	}
}

func TestExtractTextDocxByExtension(t *testing.T) {
	doc := `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>hello</w:t></w:r></w:p></w:body></w:document>`
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "upload.DOCX",
		MimeType: "application/octet-stream",
		Data:     buildDocx(t, doc),
	})
	if !strings.Contains(text, "hello") {
		t.Fatalf("docx by extension failed: %q", text)
	}
}

func TestExtractTextCorruptDocxDegradesToEmpty(t *testing.T) {
	e := NewTextExtractor()
	text := e.ExtractText(UploadFile{
		Name:     "broken.docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Data:     []byte("not a zip archive"),
	})
	if text != "" {
		t.Fatalf("corrupt docx should yield empty text, got %q", text)
	}
}
