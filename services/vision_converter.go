package services

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// VisionConverter turns non-text-bearing files into page images for
// multimodal extraction. Pages come back as data URIs in page order.
// A conversion failure degrades to zero pages for that file.
type VisionConverter struct {
	maxPages int
}

func NewVisionConverter(maxPages int) *VisionConverter {
	if maxPages <= 0 {
		maxPages = 40
	}
	return &VisionConverter{maxPages: maxPages}
}

// MaxPages is the per-batch bound on rendered pages.
func (v *VisionConverter) MaxPages() int {
	return v.maxPages
}

// CanRender reports whether the vision path applies to this file.
func CanRender(mimeType string) bool {
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "image/")
}

// RenderPages produces one encoded image per page of the file. Raster
// images pass through unchanged as a single page.
func (v *VisionConverter) RenderPages(f UploadFile) []string {
	switch {
	case f.MimeType == "application/pdf":
		pages, err := v.renderPDFPages(f)
		if err != nil {
			slog.Warn("vision conversion degraded to no pages",
				"file", f.Name, "error", err)
			return nil
		}
		return pages
	case strings.HasPrefix(f.MimeType, "image/"):
		return []string{encodeDataURI(f.MimeType, f.Data)}
	default:
		return nil
	}
}

var pageNumberPattern = regexp.MustCompile(`_(\d+)_`)

// renderPDFPages extracts the page images of a PDF. Scanned documents
// carry each page as one embedded image, which is exactly the content
// the vision path needs.
func (v *VisionConverter) renderPDFPages(f UploadFile) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "vision-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	src := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(src, f.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	outDir := filepath.Join(tmpDir, "pages")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ExtractImagesFile(src, outDir, nil, conf); err != nil {
		return nil, fmt.Errorf("image extraction failed: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	// Extracted files are named <base>_<page>_<resource>.<ext>; sort by
	// page number, not lexically, so page 10 follows page 9.
	sort.Slice(names, func(i, j int) bool {
		pi, pj := extractedPageNumber(names[i]), extractedPageNumber(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	var pages []string
	for _, name := range names {
		if len(pages) >= v.maxPages {
			slog.Warn("page cap reached, truncating vision input",
				"file", f.Name, "max_pages", v.maxPages)
			break
		}
		data, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			slog.Debug("failed to read extracted page image", "name", name, "error", err)
			continue
		}
		mimeType := mime.TypeByExtension(filepath.Ext(name))
		if mimeType == "" {
			mimeType = "image/png"
		}
		pages = append(pages, encodeDataURI(mimeType, data))
	}

	return pages, nil
}

func extractedPageNumber(name string) int {
	m := pageNumberPattern.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func encodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// decodeDataURI splits a data URI back into its MIME type and raw
// bytes.
func decodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, fmt.Errorf("not a data URI")
	}
	rest := uri[len("data:"):]
	sep := strings.Index(rest, ",")
	if sep < 0 {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := rest[:sep], rest[sep+1:]
	mimeType := meta
	if idx := strings.Index(meta, ";"); idx >= 0 {
		mimeType = meta[:idx]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI payload: %w", err)
	}
	return mimeType, data, nil
}
