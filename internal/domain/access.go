package domain

import (
	"context"
	"errors"
)

var (
	// ErrAccessDenied means the resource exists but the caller holds no
	// grant covering the requested level. Distinct from the not-found
	// sentinels so callers can decide whether to mask it.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidAccessLevel is a server-side configuration error: the set of
	// levels is closed and known at compile time, so an unknown level can
	// only come from our own code, never from user input.
	ErrInvalidAccessLevel = errors.New("invalid access level")

	ErrEmptyAccessLevels = errors.New("access levels must not be empty")
)

// AccessLevel is a single grantable action on a resource.
type AccessLevel string

const (
	AccessLevelRead   AccessLevel = "read"
	AccessLevelWrite  AccessLevel = "write"
	AccessLevelCreate AccessLevel = "create"
	AccessLevelDelete AccessLevel = "delete"

	// AccessLevelOwner is the grantable management capability for non-owners.
	// It is weaker than actual ownership: the recorded owner of a resource
	// bypasses level checks entirely.
	AccessLevelOwner AccessLevel = "owner"
)

// AllAccessLevels is the closed vocabulary in declaration order.
var AllAccessLevels = []AccessLevel{
	AccessLevelRead,
	AccessLevelWrite,
	AccessLevelCreate,
	AccessLevelDelete,
	AccessLevelOwner,
}

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessLevelRead, AccessLevelWrite, AccessLevelCreate, AccessLevelDelete, AccessLevelOwner:
		return true
	}

	return false
}

// ValidateAccessLevels checks that levels is a non-empty subset of the
// vocabulary.
func ValidateAccessLevels(levels []AccessLevel) error {
	if len(levels) == 0 {
		return ErrEmptyAccessLevels
	}

	for _, level := range levels {
		if !level.Valid() {
			return ErrInvalidAccessLevel
		}
	}

	return nil
}

// ContainsAccessLevel reports whether levels includes level.
func ContainsAccessLevel(levels []AccessLevel, level AccessLevel) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}

	return false
}

type CanAccessParams struct {
	UserID     string
	TargetID   string
	TargetType TargetType
	Level      AccessLevel

	// WorkspaceID scopes the lookup to one tenant. When set, a resource
	// living in another workspace resolves as not found.
	WorkspaceID string
}

// AccessService decides whether a user may act on a resource. Resolution
// order is fixed: ownership first, then the user's global grant, then the
// grant scoped to exactly this resource. The first tier that matches allows;
// when none match the result is ErrAccessDenied.
type AccessService interface {
	// CanAccess returns nil when access is allowed. It returns
	// ErrAccessDenied when the resource exists but no tier matches, and the
	// resource's not-found sentinel when it does not exist, so existence and
	// authorization are never conflated.
	CanAccess(ctx context.Context, params CanAccessParams) error
}
