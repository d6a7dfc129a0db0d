// Package extract converts uploaded files into plain text for chunking.
//
// Supported inputs: UTF-8 text files (source code, markdown, configs), PDF,
// DOCX, PPTX, and ZIP archives treated as a bundle of sub-documents.
// Unsupported or corrupt input yields a *models.ExtractionError.
package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"lazaro-backend/internal/models"

	"github.com/ledongthuc/pdf"
)

// skipExtensions lists binary formats that are never worth extracting from an
// archive.
var skipExtensions = map[string]bool{
	".pyc": true, ".exe": true, ".dll": true, ".so": true, ".bin": true,
	".dat": true, ".db": true, ".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".bmp": true, ".ico": true, ".svg": true, ".mp3": true,
	".mp4": true, ".avi": true, ".mov": true, ".wav": true, ".flac": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true, ".7z": true,
	".woff": true, ".woff2": true, ".ttf": true,
}

// skipDirFragments are path fragments that mark vendored or generated trees
// inside archives.
var skipDirFragments = []string{".git/", "__pycache__/", "node_modules/"}

// legacyFormats cannot be extracted without their original binary readers.
var legacyFormats = map[string]bool{".doc": true, ".ppt": true}

// File is one extracted sub-document. Single-file uploads produce exactly one.
type File struct {
	// Path is the file's name, or its path inside an archive.
	Path string
	// Text is the extracted plain text.
	Text string
}

// Result is the outcome of extracting one upload.
type Result struct {
	// FileType is the detected logical type: "pdf", "docx", "pptx", "zip",
	// or "text".
	FileType string
	Files    []File
}

// Document extracts text from raw uploaded bytes based on the filename's
// extension.
func Document(filename string, data []byte) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch {
	case legacyFormats[ext]:
		return nil, &models.ExtractionError{Filename: filename, Reason: fmt.Sprintf("legacy format %s not supported, convert to %sx", ext, ext)}
	case ext == ".pdf":
		text, err := pdfText(filename, data)
		if err != nil {
			return nil, err
		}
		return &Result{FileType: "pdf", Files: []File{{Path: filename, Text: text}}}, nil
	case ext == ".docx":
		text, err := docxText(filename, data)
		if err != nil {
			return nil, err
		}
		return &Result{FileType: "docx", Files: []File{{Path: filename, Text: text}}}, nil
	case ext == ".pptx":
		text, err := pptxText(filename, data)
		if err != nil {
			return nil, err
		}
		return &Result{FileType: "pptx", Files: []File{{Path: filename, Text: text}}}, nil
	case ext == ".zip":
		files, err := zipFiles(filename, data)
		if err != nil {
			return nil, err
		}
		return &Result{FileType: "zip", Files: files}, nil
	default:
		text, err := plainText(filename, data)
		if err != nil {
			return nil, err
		}
		return &Result{FileType: "text", Files: []File{{Path: filename, Text: text}}}, nil
	}
}

// plainText accepts any valid UTF-8 payload.
func plainText(filename string, data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", &models.ExtractionError{Filename: filename, Reason: "file is not valid UTF-8 text"}
	}
	return string(data), nil
}

func pdfText(filename string, data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "unreadable PDF", Err: err}
	}
	var b strings.Builder
	for page := 1; page <= r.NumPage(); page++ {
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", &models.ExtractionError{Filename: filename, Reason: fmt.Sprintf("failed to read PDF page %d", page), Err: err}
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// docxText pulls paragraph text out of word/document.xml.
func docxText(filename string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "unreadable DOCX container", Err: err}
	}
	doc := zipEntry(zr, "word/document.xml")
	if doc == nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "DOCX missing word/document.xml"}
	}
	content, err := readEntry(doc)
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "failed to read DOCX body", Err: err}
	}
	text, err := ooxmlText(content, "t", "p")
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "malformed DOCX body", Err: err}
	}
	return text, nil
}

// pptxText pulls text runs out of every slide, in slide order.
func pptxText(filename string, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &models.ExtractionError{Filename: filename, Reason: "unreadable PPTX container", Err: err}
	}
	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slides = append(slides, f)
		}
	}
	if len(slides) == 0 {
		return "", &models.ExtractionError{Filename: filename, Reason: "PPTX has no slides"}
	}
	sort.Slice(slides, func(i, j int) bool { return slideNumber(slides[i].Name) < slideNumber(slides[j].Name) })

	var b strings.Builder
	for _, slide := range slides {
		content, err := readEntry(slide)
		if err != nil {
			return "", &models.ExtractionError{Filename: filename, Reason: "failed to read PPTX slide", Err: err}
		}
		text, err := ooxmlText(content, "t", "p")
		if err != nil {
			return "", &models.ExtractionError{Filename: filename, Reason: "malformed PPTX slide", Err: err}
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// slideNumber parses the numeric suffix of a slide entry name. Lexicographic
// order would put slide10 before slide2.
func slideNumber(name string) int {
	base := strings.TrimSuffix(filepath.Base(name), ".xml")
	n, err := strconv.Atoi(strings.TrimPrefix(base, "slide"))
	if err != nil {
		return 0
	}
	return n
}

// zipFiles extracts every processable text file in the archive as its own
// sub-document.
func zipFiles(filename string, data []byte) ([]File, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &models.ExtractionError{Filename: filename, Reason: "unreadable ZIP archive", Err: err}
	}
	var files []File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !shouldProcess(f.Name) {
			continue
		}
		content, err := readEntry(f)
		if err != nil {
			return nil, &models.ExtractionError{Filename: filename, Reason: fmt.Sprintf("failed to read archive entry %q", f.Name), Err: err}
		}
		// Binary entries without a telltale extension are skipped, not fatal.
		if !utf8.Valid(content) {
			continue
		}
		files = append(files, File{Path: f.Name, Text: string(content)})
	}
	if len(files) == 0 {
		return nil, &models.ExtractionError{Filename: filename, Reason: "archive contains no extractable text files"}
	}
	return files, nil
}

// shouldProcess filters archive entries by extension and path.
func shouldProcess(path string) bool {
	if skipExtensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	for _, fragment := range skipDirFragments {
		if strings.Contains(path, fragment) {
			return false
		}
	}
	return true
}

func zipEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
