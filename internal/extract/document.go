package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DocumentExtensions lists the upload formats accepted for document resources.
var DocumentExtensions = []string{".pdf", ".docx", ".txt", ".md"}

// SupportedDocument reports whether the filename's extension is an accepted
// upload format.
func SupportedDocument(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range DocumentExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ExtractDocument extracts plain text from an uploaded document based on its
// filename extension. Failures are terminal ExtractionErrors: a corrupt file
// does not become readable on retry.
func ExtractDocument(filename string, content []byte) (string, error) {
	var (
		text string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	case ".txt", ".md":
		text, err = extractPlain(content)
	default:
		err = fmt.Errorf("unsupported document format %q", ext)
	}
	if err != nil {
		return "", &ExtractionError{Source: filename, Err: err}
	}
	return text, nil
}

// extractPlain returns content as a string, replacing invalid UTF-8 sequences
// with the replacement character.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "�"), nil
	}
	return string(content), nil
}
