package services

import (
	"bytes"
	"testing"
)

func TestCanRender(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"application/pdf", true},
		{"image/png", true},
		{"image/jpeg", true},
		{"text/plain", false},
		{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", false},
	}
	for _, tt := range tests {
		if got := CanRender(tt.mime); got != tt.want {
			t.Fatalf("CanRender(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestRenderPagesImagePassthrough(t *testing.T) {
	v := NewVisionConverter(40)
	data := []byte{0x89, 0x50, 0x4e, 0x47}

	pages := v.RenderPages(UploadFile{Name: "scan.png", MimeType: "image/png", Data: data})
	if len(pages) != 1 {
		t.Fatalf("got %d pages", len(pages))
	}

	mimeType, decoded, err := decodeDataURI(pages[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mimeType != "image/png" || !bytes.Equal(decoded, data) {
		t.Fatalf("round trip lost data: %q %v", mimeType, decoded)
	}
}

func TestRenderPagesCorruptPDF(t *testing.T) {
	v := NewVisionConverter(40)
	pages := v.RenderPages(UploadFile{
		Name:     "bad.pdf",
		MimeType: "application/pdf",
		Data:     []byte("not a pdf"),
	})
	if len(pages) != 0 {
		t.Fatalf("corrupt PDF should yield no pages, got %d", len(pages))
	}
}

func TestRenderPagesUnsupportedType(t *testing.T) {
	v := NewVisionConverter(40)
	if pages := v.RenderPages(UploadFile{Name: "a.txt", MimeType: "text/plain", Data: []byte("x")}); pages != nil {
		t.Fatalf("unsupported type should yield nil, got %v", pages)
	}
}

func TestExtractedPageNumberOrdering(t *testing.T) {
	names := []string{"input_10_Im0.png", "input_2_Im0.png", "input_1_Im0.png"}
	if extractedPageNumber(names[0]) != 10 || extractedPageNumber(names[2]) != 1 {
		t.Fatalf("page number parse wrong: %d %d",
			extractedPageNumber(names[0]), extractedPageNumber(names[2]))
	}
	if extractedPageNumber("noise.png") != 0 {
		t.Fatalf("unparseable name should sort first")
	}
}

func TestDecodeDataURIRejectsGarbage(t *testing.T) {
	for _, uri := range []string{"", "http://x", "data:image/png;base64", "data:image/png;base64,%%%"} {
		if _, _, err := decodeDataURI(uri); err == nil {
			t.Fatalf("expected error for %q", uri)
		}
	}
}
