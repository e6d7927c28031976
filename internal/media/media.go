// Package media stores issue evidence blobs in S3-compatible object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectAPI is the slice of the MinIO client the store depends on.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Store uploads and serves evidence objects for issue reports.
type Store struct {
	client objectAPI
	bucket string
	newID  func() string
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func NewStore(cfg Config, newID func() string) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket, newID: newID}, nil
}

// newStoreWithClient is used by tests to inject a fake client.
func newStoreWithClient(client objectAPI, bucket string, newID func() string) *Store {
	return &Store{client: client, bucket: bucket, newID: newID}
}

// EnsureBucket creates the evidence bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// PutEvidence uploads one evidence blob and returns its object key. Keys are
// namespaced per issue so all evidence for a report lists under one prefix.
func (s *Store) PutEvidence(ctx context.Context, issueID, name, mimeType string, reader io.Reader, size int64) (string, error) {
	if issueID == "" {
		return "", fmt.Errorf("issue id required")
	}
	key := fmt.Sprintf("issues/%s/%s%s", issueID, s.newID(), safeExt(name))
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence: %w", err)
	}
	return key, nil
}

// PresignGet returns a time-limited download URL for an evidence object.
func (s *Store) PresignGet(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign evidence url: %w", err)
	}
	return u.String(), nil
}

// Remove deletes an evidence object.
func (s *Store) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove evidence: %w", err)
	}
	return nil
}

// safeExt keeps the original file extension when it looks sane, so browsers
// get a useful filename hint from the key.
func safeExt(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\ ") {
		return ""
	}
	return ext
}
