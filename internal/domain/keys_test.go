package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{
			name:     "simple name",
			input:    "Reports",
			expected: "reports",
		},
		{
			name:     "spaces become hyphens",
			input:    "Q1 Report",
			expected: "q1-report",
		},
		{
			name:     "already sanitized",
			input:    "q1-report",
			expected: "q1-report",
		},
		{
			name:     "file extension",
			input:    "q1.pdf",
			expected: "q1-pdf",
		},
		{
			name:     "accented characters transliterate",
			input:    "Café Docs",
			expected: "cafe-docs",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  Reports  ",
			expected: "reports",
		},
		{
			name:     "exactly max length",
			input:    strings.Repeat("a", MaxNameLength),
			expected: strings.Repeat("a", MaxNameLength),
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "nothing survives sanitization",
			input:   "###",
			wantErr: true,
		},
		{
			name:    "too long",
			input:   strings.Repeat("a", MaxNameLength+1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := SanitizeName(tt.input)

			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("SanitizeName(%q) error = %v, expected ErrInvalidName", tt.input, err)
				}
				return
			}

			if err != nil {
				t.Errorf("SanitizeName(%q) unexpected error: %v", tt.input, err)
				return
			}

			if result != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStorageKeyDerivation(t *testing.T) {
	prefix := FolderStoragePrefix("w1", "folder1")
	if prefix != "w1/folders/folder1/" {
		t.Errorf("FolderStoragePrefix() = %q, expected %q", prefix, "w1/folders/folder1/")
	}

	root := RootStoragePrefix("w1")
	if root != "w1/root/" {
		t.Errorf("RootStoragePrefix() = %q, expected %q", root, "w1/root/")
	}

	// Prefixes end in the separator so they address sets of objects, never a
	// sibling prefix that happens to share leading characters.
	for _, p := range []string{prefix, root} {
		if !strings.HasSuffix(p, "/") {
			t.Errorf("prefix %q does not end in separator", p)
		}
	}

	key := FileStorageKey(prefix, "file1", "q1-pdf")
	if key != "w1/folders/folder1/files/file1-q1-pdf" {
		t.Errorf("FileStorageKey() = %q, expected %q", key, "w1/folders/folder1/files/file1-q1-pdf")
	}

	if !strings.HasPrefix(key, prefix) {
		t.Errorf("file key %q is not addressed by its folder prefix %q", key, prefix)
	}
}

func TestValidateResourceID(t *testing.T) {
	if err := ValidateResourceID(NewResourceID()); err != nil {
		t.Errorf("ValidateResourceID(NewResourceID()) unexpected error: %v", err)
	}

	for _, id := range []string{"", "not-an-id", "c3 injected/../path"} {
		err := ValidateResourceID(id)
		if !errors.Is(err, ErrInvalidResourceID) {
			t.Errorf("ValidateResourceID(%q) error = %v, expected ErrInvalidResourceID", id, err)
		}
	}
}

func TestNewResourceID_Unique(t *testing.T) {
	a := NewResourceID()
	b := NewResourceID()

	if a == b {
		t.Errorf("NewResourceID() returned the same id twice: %q", a)
	}
}
