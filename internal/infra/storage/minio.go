package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/bioscan/internal/domain/exams"
)

const Scheme = "s3://"

// Source reads exam documents from MinIO/S3. Read-only, nothing is uploaded.
type Source struct {
	client *minio.Client
}

// New buat koneksi MinIO
func New(endpoint, region, accessKey, secretKey string, useSSL bool) (*Source, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return &Source{client: cli}, nil
}

// IsRef reports whether ref points at object storage.
func IsRef(ref string) bool { return strings.HasPrefix(ref, Scheme) }

// ParseRef splits "s3://bucket/key/with/slashes".
func ParseRef(ref string) (bucket, key string, err error) {
	if !IsRef(ref) {
		return "", "", fmt.Errorf("%w: %q is not an %s reference", exams.ErrFileRead, ref, Scheme)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, Scheme), "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("%w: malformed reference %q", exams.ErrFileRead, ref)
	}
	return bucket, key, nil
}

// Open returns the object's base name and a reader over its body. Missing
// objects surface on first read, wrapped by the encoder as a file error.
func (s *Source) Open(ctx context.Context, ref string) (string, io.ReadCloser, error) {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return "", nil, err
	}
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", exams.ErrFileRead, err)
	}
	return path.Base(key), obj, nil
}

// Ping checks the endpoint is reachable; used by readiness.
func (s *Source) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}
