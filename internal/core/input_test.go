package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestReadImportText(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		maxSize int64
		want    string
		wantErr error
	}{
		{
			name:  "plain text unchanged",
			input: []byte("a,b\n1,2"),
			want:  "a,b\n1,2",
		},
		{
			name:  "bom stripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, "prn,fullName\n1,A"...),
			want:  "prn,fullName\n1,A",
		},
		{
			name:  "invalid byte replaced",
			input: []byte("name\nJos\xe9"),
			want:  "name\nJos�",
		},
		{
			name:  "multibyte preserved",
			input: []byte("name\nअर्जुन"),
			want:  "name\nअर्जुन",
		},
		{
			name:    "exactly at limit",
			input:   []byte("abcd"),
			maxSize: 4,
			want:    "abcd",
		},
		{
			name:    "over limit",
			input:   []byte("abcde"),
			maxSize: 4,
			wantErr: ErrFileTooLarge,
		},
		{
			name:    "empty",
			input:   nil,
			wantErr: ErrEmptyFile,
		},
		{
			name:    "bom and whitespace only",
			input:   []byte("\xEF\xBB\xBF \r\n"),
			wantErr: ErrEmptyFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadImportText(bytes.NewReader(tt.input), tt.maxSize)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadImportText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeUTF8_ValidInputReturnedAsIs(t *testing.T) {
	in := []byte(strings.Repeat("प्रवेश,", 50))
	out := sanitizeUTF8(in)
	if &out[0] != &in[0] {
		t.Error("valid input should not be copied")
	}
}
