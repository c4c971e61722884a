// Package loader reads uploaded documents into plain text.
package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"legaldraft/internal/domain"
)

// ErrUnsupported is returned for file types that cannot be loaded.
var ErrUnsupported = errors.New("unsupported file type")

// ErrEmpty is returned when a document yields no text.
var ErrEmpty = errors.New("document contains no extractable text")

var supported = map[string]func(string) (string, error){
	".pdf":  loadPDF,
	".docx": loadDOCX,
	".txt":  loadText,
	".md":   loadText,
}

// Ext returns the lower-case extension of name.
func Ext(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// Supported reports whether files named like name can be loaded.
func Supported(name string) bool {
	_, ok := supported[Ext(name)]
	return ok
}

// Load reads the file at path. The extension selects the reader.
func Load(path string) (domain.Document, error) {
	ext := Ext(path)
	read, ok := supported[ext]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	text, err := read(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return domain.Document{}, ErrEmpty
	}
	return domain.Document{Path: path, Ext: ext, Content: text}, nil
}

func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	rd, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// loadDOCX reads word/document.xml; paragraphs and breaks become newlines.
func loadDOCX(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxText(rc)
	}
	return "", errors.New("word/document.xml not found")
}

func docxText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// normalize unifies line endings and drops trailing spaces.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
