package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/Catalysis-Ingest/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Catalysis-Ingest/pkg/errors"
)

// URIScheme prefixes object locations accepted by RawFileStore.
const URIScheme = "s3://"

var (
	ErrObjectNotFound = errors.New(errors.ErrCodeNotFound, "object not found")
	ErrInvalidURI     = errors.New(errors.ErrCodeBadRequest, "invalid object uri")
	ErrObjectTooLarge = errors.New(errors.ErrCodeDataSourceRead, "object exceeds size limit")
)

// IsObjectURI reports whether s names an object rather than a local path.
func IsObjectURI(s string) bool {
	return strings.HasPrefix(s, URIScheme)
}

// ParseObjectURI splits s3://bucket/key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	if !IsObjectURI(uri) {
		return "", "", ErrInvalidURI.WithDetail(uri)
	}
	rest := strings.TrimPrefix(uri, URIScheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", ErrInvalidURI.WithDetail(uri)
	}
	return bucket, key, nil
}

// ObjectMetadata describes a stored raw file.
type ObjectMetadata struct {
	Bucket       string
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// RawFileStore fetches lab-data files from object storage and archives
// uploaded ones.
type RawFileStore struct {
	client   *MinIOClient
	logger   logging.Logger
	maxBytes int64
}

// NewRawFileStore returns a store over client.  maxBytes <= 0 disables the
// size check.
func NewRawFileStore(client *MinIOClient, log logging.Logger, maxBytes int64) *RawFileStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RawFileStore{client: client, logger: log, maxBytes: maxBytes}
}

// Stat returns the metadata of the object at uri.
func (s *RawFileStore) Stat(ctx context.Context, uri string) (*ObjectMetadata, error) {
	bucket, key, err := ParseObjectURI(uri)
	if err != nil {
		return nil, err
	}
	info, err := s.client.GetClient().StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(uri)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeStorageError, "stat %s", uri)
	}
	return &ObjectMetadata{
		Bucket:       bucket,
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Fetch reads the whole object at uri into memory.
func (s *RawFileStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	meta, err := s.Stat(ctx, uri)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && meta.Size > s.maxBytes {
		return nil, ErrObjectTooLarge.WithDetail(uri)
	}

	obj, err := s.client.GetClient().GetObject(ctx, meta.Bucket, meta.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "get %s", uri)
	}
	defer obj.Close()

	var buf bytes.Buffer
	buf.Grow(int(meta.Size))
	if _, err := io.Copy(&buf, obj); err != nil {
		if isNoSuchKey(err) {
			return nil, ErrObjectNotFound.WithDetail(uri)
		}
		return nil, errors.Wrapf(err, errors.ErrCodeDataSourceRead, "read %s", uri)
	}
	s.logger.Debug("Fetched raw file", logging.String("uri", uri), logging.Int64("bytes", int64(buf.Len())))
	return buf.Bytes(), nil
}

// Archive stores data under key in the default bucket and returns its URI.
func (s *RawFileStore) Archive(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(path.Clean("/"+key), "/")
	if key == "" {
		return "", ErrInvalidURI.WithDetail("empty key")
	}
	bucket := s.client.Bucket()
	_, err := s.client.GetClient().PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrCodeStorageError, "archive %s", key)
	}
	uri := URIScheme + bucket + "/" + key
	s.logger.Info("Archived raw file", logging.String("uri", uri), logging.Int("bytes", len(data)))
	return uri, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

//Personal.AI order the ending
