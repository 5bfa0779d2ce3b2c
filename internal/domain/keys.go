package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/xid"
)

var (
	ErrInvalidName       = errors.New("invalid display name")
	ErrInvalidResourceID = errors.New("invalid resource id")
)

// MaxNameLength caps display names before sanitization.
const MaxNameLength = 255

// SanitizeName reduces a display name to the safe, lowercased form used in
// storage keys and for sibling-uniqueness comparison. Uniqueness is decided
// on the sanitized form, never on the raw display text, so "Q1 Report" and
// "q1-report" collide.
func SanitizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > MaxNameLength {
		return "", ErrInvalidName
	}

	sanitized := slug.Make(trimmed)
	if sanitized == "" {
		return "", ErrInvalidName
	}

	return sanitized, nil
}

// ValidateResourceID rejects ids that are not well-formed resource ids.
// Resource ids are embedded verbatim in storage keys, so malformed input is
// refused before it reaches any of the stores.
func ValidateResourceID(id string) error {
	if _, err := xid.FromString(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidResourceID, id)
	}

	return nil
}

// NewResourceID allocates an id for a folder, file or upload. Ids are
// assigned before persistence so they can be embedded in storage keys.
func NewResourceID() string {
	return xid.New().String()
}

// FolderStoragePrefix derives the blob prefix owned by a folder. The prefix
// is immutable for the folder's lifetime and always ends in the separator so
// it addresses a set of objects.
func FolderStoragePrefix(workspaceID, folderID string) string {
	return fmt.Sprintf("%s/folders/%s/", workspaceID, folderID)
}

// RootStoragePrefix is the blob prefix for files uploaded outside any folder.
func RootStoragePrefix(workspaceID string) string {
	return fmt.Sprintf("%s/root/", workspaceID)
}

// FileStorageKey derives the blob key for a file under the given prefix. The
// file id in the key keeps it unique even when sibling files share a name.
func FileStorageKey(prefix, fileID, sanitizedName string) string {
	return fmt.Sprintf("%sfiles/%s-%s", prefix, fileID, sanitizedName)
}
