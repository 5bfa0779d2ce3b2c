package domain

import (
	"context"
	"time"
)

// MaxPresignTTL caps how long a presigned URL stays valid.
const MaxPresignTTL = time.Hour

type PresignUploadParams struct {
	Key         string
	ContentType string
	TTL         time.Duration
}

// ObjectStore is the blob backend the metadata layer delegates byte transfer
// to. Clients upload and download through presigned URLs; the service itself
// never proxies object payloads.
type ObjectStore interface {
	// PresignDownload returns a temporary GET URL for the object at key.
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)

	// PresignUpload returns a temporary PUT URL bound to the given key and
	// content type. Implementations clamp the TTL to MaxPresignTTL.
	PresignUpload(ctx context.Context, params PresignUploadParams) (string, error)

	// DeleteObject removes a single object. Deleting a missing key is not an
	// error.
	DeleteObject(ctx context.Context, key string) error

	// DeleteByPrefix removes every object whose key starts with prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// CopyObject duplicates the object at srcKey to dstKey.
	CopyObject(ctx context.Context, srcKey, dstKey string) error
}
