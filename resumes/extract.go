package resumes

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	MimePDF  = "application/pdf"
	MimeDOC  = "application/msword"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

const (
	pdfPlaceholder     = "Error extracting text from PDF. The file may be corrupted or image-based."
	wordPlaceholder    = "Error extracting text from Word document."
	unknownPlaceholder = "Text extraction for this format not yet implemented."
)

// Accepted reports whether name and mime both look like a resume document.
func Accepted(name, contentType string) bool {
	m := mediaType(contentType)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".doc", ".docx":
		return strings.Contains(m, "pdf") || strings.Contains(m, "doc")
	case ".txt":
		return m == MimeText
	}
	return false
}

// ExtractText returns the plain text of data. Formats that cannot be read
// yield a fixed placeholder so the upload is still recorded.
func ExtractText(contentType string, data []byte) (text, kind string) {
	switch mediaType(contentType) {
	case MimeText:
		return string(data), "text"
	case MimeDOCX:
		t, err := docxText(data)
		if err != nil {
			return wordPlaceholder, "text"
		}
		return t, "text"
	case MimeDOC:
		return wordPlaceholder, "text"
	case MimePDF:
		return pdfPlaceholder, "pdf"
	default:
		return unknownPlaceholder, "text"
	}
}

// docxText reads word/document.xml and joins paragraph runs with newlines.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("resumes: open docx: %w", err)
	}
	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("resumes: docx has no document part")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("resumes: open document part: %w", err)
	}
	defer rc.Close()

	var b strings.Builder
	dec := xml.NewDecoder(io.LimitReader(rc, 20<<20))
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("resumes: decode document part: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func mediaType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
