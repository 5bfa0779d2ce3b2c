package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cubbyhq/cubby/internal/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"
)

// deleteBatchSize is the S3 DeleteObjects request cap.
const deleteBatchSize = 1000

type s3ObjectStore struct {
	client *s3.S3
	bucket string
}

type S3ObjectStoreDependencies struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// ForcePathStyle is required for MinIO and most other self-hosted
	// S3-compatible backends.
	ForcePathStyle bool
}

func NewS3ObjectStore(deps S3ObjectStoreDependencies) (domain.ObjectStore, error) {
	config := &aws.Config{
		Region:      aws.String(deps.Region),
		Credentials: credentials.NewStaticCredentials(deps.AccessKeyID, deps.SecretAccessKey, ""),
	}

	if deps.Endpoint != "" {
		config.Endpoint = aws.String(deps.Endpoint)
		config.S3ForcePathStyle = aws.Bool(deps.ForcePathStyle)
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 session: %w", err)
	}

	return &s3ObjectStore{
		client: s3.New(sess),
		bucket: deps.Bucket,
	}, nil
}

func (s *s3ObjectStore) PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(clampTTL(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download url: %w", err)
	}

	return url, nil
}

func (s *s3ObjectStore) PresignUpload(ctx context.Context, params domain.PresignUploadParams) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(params.Key),
	}

	if params.ContentType != "" {
		input.ContentType = aws.String(params.ContentType)
	}

	req, _ := s.client.PutObjectRequest(input)
	req.SetContext(ctx)

	url, err := req.Presign(clampTTL(params.TTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload url: %w", err)
	}

	return url, nil
}

func (s *s3ObjectStore) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}

	return nil
}

// DeleteByPrefix lists every object under prefix and deletes them in batches.
// An empty listing is a no-op, so deleting the prefix of a folder that never
// held a blob succeeds.
func (s *s3ObjectStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}

	var batch []*s3.ObjectIdentifier
	var pageErr error

	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, object := range page.Contents {
			batch = append(batch, &s3.ObjectIdentifier{Key: object.Key})

			if len(batch) == deleteBatchSize {
				if pageErr = s.deleteBatch(ctx, batch); pageErr != nil {
					return false
				}

				batch = batch[:0]
			}
		}

		return true
	})
	if err != nil {
		return fmt.Errorf("failed to list objects for prefix %q: %w", prefix, err)
	}

	if pageErr != nil {
		return pageErr
	}

	if len(batch) > 0 {
		return s.deleteBatch(ctx, batch)
	}

	return nil
}

func (s *s3ObjectStore) deleteBatch(ctx context.Context, objects []*s3.ObjectIdentifier) error {
	output, err := s.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete object batch: %w", err)
	}

	for _, failure := range output.Errors {
		log.Error().
			Str("key", aws.StringValue(failure.Key)).
			Str("code", aws.StringValue(failure.Code)).
			Msg("Failed to delete object in batch")
	}

	if len(output.Errors) > 0 {
		return fmt.Errorf("failed to delete %d objects in batch", len(output.Errors))
	}

	return nil
}

func (s *s3ObjectStore) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := s.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(fmt.Sprintf("%s/%s", s.bucket, srcKey)),
	})
	if err != nil {
		return fmt.Errorf("failed to copy object %q to %q: %w", srcKey, dstKey, err)
	}

	return nil
}

// clampTTL keeps presigned URLs inside the allowed window. Non-positive and
// oversized TTLs both fall back to the maximum.
func clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > domain.MaxPresignTTL {
		return domain.MaxPresignTTL
	}

	return ttl
}
