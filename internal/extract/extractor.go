// Package extract reads the text a document will likely yield once ingested,
// so users can check a file before uploading it.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/docsearch/pkg/utils"
)

// Unit names the countable parts of a document.
type Unit string

const (
	UnitPages  Unit = "pages"
	UnitSheets Unit = "sheets"
	UnitNone   Unit = ""
)

// Result is the text of a document and how many units it had.
type Result struct {
	Text  string
	Units int
	Unit  Unit
}

// Extractor extracts plain text from document files.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are
// read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (*Result, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".odt", ".rtf":
		return extractWithCat(content, ext)
	default:
		return extractPlain(content)
	}
}

// Report summarizes a local file for display before upload.
type Report struct {
	Path      string `json:"path"`
	Ext       string `json:"ext"`
	SizeBytes int64  `json:"size_bytes"`
	Chars     int    `json:"chars"`
	Words     int    `json:"words"`
	Units     int    `json:"units,omitempty"`
	Unit      Unit   `json:"unit,omitempty"`
	Preview   string `json:"preview"`
}

// Inspect extracts path and reports its size, character and word counts,
// and the first previewLen characters of text.
func (e *Extractor) Inspect(path string, previewLen int) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	res, err := e.Extract(path)
	if err != nil {
		return nil, err
	}
	return &Report{
		Path:      path,
		Ext:       strings.ToLower(filepath.Ext(path)),
		SizeBytes: info.Size(),
		Chars:     utf8.RuneCountInString(res.Text),
		Words:     len(strings.Fields(res.Text)),
		Units:     res.Units,
		Unit:      res.Unit,
		Preview:   utils.Snippet(res.Text, previewLen),
	}, nil
}
