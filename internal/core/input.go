package core

// input.go turns an uploaded file into parseable text.
//
// Spreadsheet exports from Windows often start with a UTF-8 byte order mark
// and occasionally carry Latin-1 bytes. The BOM is dropped so the first
// header matches. Invalid byte sequences become U+FFFD.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

// DefaultMaxFileSize is used when the configured size limit is not positive.
const DefaultMaxFileSize int64 = 10 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadImportText reads at most maxSize bytes from r and returns clean text.
// Returns ErrFileTooLarge when r holds more, ErrEmptyFile when it holds nothing.
func ReadImportText(r io.Reader, maxSize int64) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, maxSize)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}

	return string(sanitizeUTF8(data)), nil
}

// sanitizeUTF8 replaces each invalid byte with the replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = utf8.AppendRune(out, utf8.RuneError)
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}
