package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxUploadBytes caps an uploaded document.
const MaxUploadBytes = 1 << 20

var (
	ErrUnsupportedType = errors.New("only .txt and .md files are supported")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8 text")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
)

var allowedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

var allowedMediaTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"text/x-markdown": true,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadUpload decodes an uploaded .txt/.md file into document text.
// Either the extension or the declared content type must be a text type.
func ReadUpload(filename, contentType string, r io.Reader) (string, error) {
	if !IsSupported(filename, contentType) {
		return "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return "", ErrFileTooLarge
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", ErrInvalidEncoding
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyFile
	}
	return text, nil
}

func IsSupported(filename, contentType string) bool {
	if allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return true
	}
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return allowedMediaTypes[mediaType]
}
