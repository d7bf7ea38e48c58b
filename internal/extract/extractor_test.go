package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		ext     string
		want    string
	}{
		{"txt", []byte("Hello world\nLine 2"), ".txt", "Hello world\nLine 2"},
		{"utf8", []byte("caf\xc3\xa9"), ".md", "café"},
		{"invalid utf8", []byte("hello\x80world"), ".txt", "hello�world"},
		{"unknown extension", []byte("raw content"), ".xyz", "raw content"},
		{"no extension", []byte("README"), "", "README"},
	}
	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.ExtractBytes(tt.content, tt.ext)
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("got %q, want %q", got.Text, tt.want)
			}
			if got.Unit != UnitNone {
				t.Errorf("plain text should have no unit, got %q", got.Unit)
			}
		})
	}
}

func TestExtractBytes_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	if _, err := f.NewSheet("Totals"); err != nil {
		t.Fatal(err)
	}
	f.SetCellValue("Totals", "A1", "Sum")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	got, err := NewExtractor().ExtractBytes(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got.Text != "Title\nValue 1\tValue 2\nSum" {
		t.Errorf("got %q", got.Text)
	}
	if got.Units != 2 || got.Unit != UnitSheets {
		t.Errorf("units = %d %s", got.Units, got.Unit)
	}
}

func TestExtract_nonexistent(t *testing.T) {
	if _, err := NewExtractor().Extract("/nonexistent/path/file.txt"); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestExtractBytes_pdfInvalid(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("not a pdf"), ".pdf"); err == nil {
		t.Error("expected error for invalid PDF")
	}
}

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// docxArchive returns .docx zip bytes with body as the contents of w:body.
// When docPath is not the default part, [Content_Types].xml points to it.
func docxArchive(body, docPath string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	if docPath != docxDocumentXMLPath {
		ct, _ := w.Create(contentTypesPath)
		_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="` + docxMainContentType + `" PartName="/` + docPath + `"/>
</Types>`))
	}
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(`<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtractBytes_docx(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		docPath string
		want    string
	}{
		{
			name:    "single run",
			body:    `<w:p><w:r><w:t>Searchable docx content</w:t></w:r></w:p>`,
			docPath: docxDocumentXMLPath,
			want:    "Searchable docx content",
		},
		{
			name:    "paragraph attributes and split runs",
			body:    `<w:p w:rsidR="00AB"><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:r><w:t>world</w:t></w:r></w:p><w:p><w:r><w:t>Second</w:t><w:tab/><w:t>cell</w:t></w:r></w:p>`,
			docPath: docxDocumentXMLPath,
			want:    "Hello world\nSecond\tcell",
		},
		{
			name:    "entities",
			body:    `<w:p><w:r><w:t>R&amp;D &lt;draft&gt;</w:t></w:r></w:p>`,
			docPath: docxDocumentXMLPath,
			want:    "R&D <draft>",
		},
		{
			name:    "main part from content types",
			body:    `<w:p><w:r><w:t>Content from document2</w:t></w:r></w:p>`,
			docPath: "word/document2.xml",
			want:    "Content from document2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewExtractor().ExtractBytes(docxArchive(tt.body, tt.docPath), ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got.Text != tt.want {
				t.Errorf("got %q, want %q", got.Text, tt.want)
			}
		})
	}
}

func TestExtractBytes_docxNotZip(t *testing.T) {
	if _, err := NewExtractor().ExtractBytes([]byte("plain"), ".docx"); err == nil {
		t.Error("expected error for non-zip docx")
	}
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Notes.MD")
	content := "# Title\n\nSome   words here.\n" + strings.Repeat("more ", 50)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := NewExtractor().Inspect(path, 20)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if r.Ext != ".md" || r.SizeBytes != int64(len(content)) {
		t.Errorf("report = %+v", r)
	}
	if r.Words != 55 {
		t.Errorf("Words = %d, want 55", r.Words)
	}
	if r.Chars != len(content) {
		t.Errorf("Chars = %d", r.Chars)
	}
	if r.Preview != "# Title Some words h..." {
		t.Errorf("Preview = %q", r.Preview)
	}

	if _, err := NewExtractor().Inspect(dir, 20); err == nil {
		t.Error("expected error for directory")
	}
}

func TestInspect_excelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	f := excelize.NewFile()
	f.SetCellValue("Sheet1", "A1", "Searchable text")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	r, err := NewExtractor().Inspect(path, 100)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if r.Preview != "Searchable text" || r.Units != 1 || r.Unit != UnitSheets {
		t.Errorf("report = %+v", r)
	}
}
