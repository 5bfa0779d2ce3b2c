package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPermissionNotFound = errors.New("permission not found")
	ErrInvalidTargetType  = errors.New("invalid target type")
	ErrInvalidUserID      = errors.New("user id is required")
)

// TargetType discriminates what kind of resource a grant is scoped to.
type TargetType string

const (
	TargetTypeFile   TargetType = "file"
	TargetTypeFolder TargetType = "folder"
)

func (t TargetType) Valid() bool {
	return t == TargetTypeFile || t == TargetTypeFolder
}

// PermissionTarget pins a grant to exactly one resource. The type tag and id
// travel together so a grant can never point at an id of the wrong kind.
type PermissionTarget struct {
	Type TargetType `json:"type" bson:"type"`
	ID   string     `json:"id" bson:"id"`
}

// Permission is a single grant for one user: either global (applies to every
// resource) or scoped to exactly one target, never both. At most one record
// exists per (user, scope); granting the same scope again replaces the
// record's level set instead of duplicating it.
//
// Records created by folder-grant propagation are indistinguishable from
// direct grants: no provenance is stored. Revoking the folder-level grant
// therefore leaves previously propagated descendant grants in place.
type Permission struct {
	ID           string            `json:"id" bson:"id"`
	UserID       string            `json:"user_id" bson:"user_id"`
	IsGlobal     bool              `json:"is_global" bson:"is_global"`
	Target       *PermissionTarget `json:"target,omitempty" bson:"target,omitempty"`
	AccessLevels []AccessLevel     `json:"access_levels" bson:"access_levels"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Allows reports whether the grant's level set includes level.
func (p *Permission) Allows(level AccessLevel) bool {
	return ContainsAccessLevel(p.AccessLevels, level)
}

type GrantGlobalParams struct {
	UserID       string
	AccessLevels []AccessLevel
}

type GrantSpecificParams struct {
	UserID       string
	TargetID     string
	TargetType   TargetType
	AccessLevels []AccessLevel
}

// PermissionService grants, propagates, revokes and lists permissions.
type PermissionService interface {
	// GrantGlobal upserts the user's single global grant, replacing its level
	// set.
	GrantGlobal(ctx context.Context, params GrantGlobalParams) (*Permission, error)

	// GrantSpecific upserts the grant for (user, target). When the target is
	// a folder the same level set is upserted onto every descendant file and
	// folder: each descendant's record for this user is overwritten with
	// exactly this set, and grants outside the subtree are untouched.
	GrantSpecific(ctx context.Context, params GrantSpecificParams) (*Permission, error)

	// Revoke deletes exactly one record. It does not cascade: grants that an
	// earlier folder-level grant propagated onto descendants stay in place.
	Revoke(ctx context.Context, permissionID string) error

	GetPermission(ctx context.Context, permissionID string) (*Permission, error)
	ListForUser(ctx context.Context, userID string) ([]Permission, error)
	ListForTarget(ctx context.Context, target PermissionTarget) ([]Permission, error)

	// RevokeAllForUser removes every grant held by the user. Called by the
	// account-deletion flow, which lives outside this service.
	RevokeAllForUser(ctx context.Context, userID string) error
}

// PermissionRepository is the persistence boundary for grants. Upserts must
// be atomic find-or-create operations keyed on (user, scope) so concurrent
// grants to the same scope cannot produce duplicate records.
type PermissionRepository interface {
	UpsertGlobal(ctx context.Context, userID string, levels []AccessLevel) (*Permission, error)
	UpsertForTarget(ctx context.Context, userID string, target PermissionTarget, levels []AccessLevel) (*Permission, error)

	// BulkUpsertForTargets applies the same level set to every target for one
	// user in a single store round trip. Used by folder-grant propagation.
	BulkUpsertForTargets(ctx context.Context, userID string, targets []PermissionTarget, levels []AccessLevel) error

	Get(ctx context.Context, id string) (*Permission, error)

	// GetGlobalForUser returns ErrPermissionNotFound when the user holds no
	// global grant.
	GetGlobalForUser(ctx context.Context, userID string) (*Permission, error)

	// GetForUserAndTarget returns ErrPermissionNotFound when the user holds
	// no grant scoped to exactly this target.
	GetForUserAndTarget(ctx context.Context, userID string, target PermissionTarget) (*Permission, error)

	ListForUser(ctx context.Context, userID string) ([]Permission, error)
	ListForTarget(ctx context.Context, target PermissionTarget) ([]Permission, error)

	Delete(ctx context.Context, id string) error
	DeleteForTarget(ctx context.Context, target PermissionTarget) error
	DeleteForTargets(ctx context.Context, targetType TargetType, targetIDs []string) error
	DeleteForUser(ctx context.Context, userID string) error
}
