// Package blob stores uploaded document payloads in S3 compatible object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// refScheme prefixes every storage_ref produced by MinioStore
const refScheme = "s3://"

// ErrInvalidRef is returned for storage refs not produced by this store
var ErrInvalidRef = errors.New("invalid storage ref")

// Store accepts document payloads and returns an opaque storage_ref
type Store interface {
	Put(ctx context.Context, projectID, fileName string, r io.Reader, size int64, contentType string) (string, error)
}

// Config holds connection settings
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioStore implements Store on MinIO or any S3 compatible service
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to the object store
func NewMinioStore(cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket when it does not exist yet
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	slog.Info("Created blob bucket", "bucket", s.bucket)
	return nil
}

// Put uploads r and returns its storage_ref. Size -1 streams an unknown length.
func (s *MinioStore) Put(ctx context.Context, projectID, fileName string, r io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(projectID, fileName)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"project-id": projectID,
			"file-name":  fileName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fileName, err)
	}

	slog.Debug("Stored document payload", "bucket", s.bucket, "key", key, "size", info.Size)
	return refScheme + s.bucket + "/" + key, nil
}

// Open returns the payload behind a storage_ref
func (s *MinioStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", ref, err)
	}
	return obj, nil
}

// Health checks that the bucket is reachable
func (s *MinioStore) Health(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("blob storage unreachable: %w", err)
	}
	return nil
}

// ParseRef splits a storage_ref into bucket and object key
func ParseRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, refScheme)
	if !ok {
		return "", "", ErrInvalidRef
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", ErrInvalidRef
	}
	return bucket, key, nil
}

// objectKey places payloads under projects/<project>/ with a random name
// that keeps the original extension
func objectKey(projectID, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(fileName, "\\", "/"))))
	if len(ext) > 16 {
		ext = ""
	}
	return path.Join("projects", safeSegment(projectID), uuid.NewString()+ext)
}

func safeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || strings.Trim(b.String(), ".") == "" {
		return "_"
	}
	return b.String()
}
