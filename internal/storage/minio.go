package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
	"github.com/rs/zerolog"

	"docvault/internal/config"
	"docvault/internal/integrity"
)

const (
	casPrefix     = "cas/"
	stagingPrefix = "staging/"
	pinTag        = "pinned"
)

// minioStore implements ContentStore on an S3-compatible bucket (MinIO, AWS S3, etc.).
// Objects live under cas/<cid>; the "pinned" object tag plays the role of a pin and
// GC removes every object whose tag is not "true".
// It is safe for concurrent use by multiple goroutines.
type minioStore struct {
	client      *minio.Client
	bucket      string
	tempDir     string
	callTimeout time.Duration
	logger      zerolog.Logger
}

// NewMinIO creates a new S3-compatible content store backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.MinIOConfig, cs config.ContentStoreConfig, logger zerolog.Logger) (ContentStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return &minioStore{
		client:      cli,
		bucket:      cfg.Bucket,
		tempDir:     cs.TempDir,
		callTimeout: cs.CallTimeout,
		logger:      logger.With().Str("component", "s3").Logger(),
	}, nil
}

// Store streams the content to a staging key while hashing it, then copies it
// server-side to its content-addressed key and drops the staging object.
func (m *minioStore) Store(ctx context.Context, r io.Reader, size int64) (string, error) {
	if r == nil {
		return "", fmt.Errorf("reader is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	staging := stagingPrefix + uuid.NewString()
	digest := integrity.NewWriter()
	_, err := m.client.PutObject(ctx, m.bucket, staging, io.TeeReader(r, digest), size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return "", fmt.Errorf("%w: put staging object: %v", ErrUnavailable, err)
	}
	defer func() {
		if err := m.client.RemoveObject(context.WithoutCancel(ctx), m.bucket, staging, minio.RemoveObjectOptions{}); err != nil {
			m.logger.Warn().Err(err).Str("key", staging).Msg("failed to remove staging object")
		}
	}()

	addr, err := AddressForDigest(digest.Sum())
	if err != nil {
		return "", err
	}

	_, err = m.client.CopyObject(ctx,
		minio.CopyDestOptions{
			Bucket:      m.bucket,
			Object:      casKey(addr),
			UserTags:    map[string]string{pinTag: "true"},
			ReplaceTags: true,
		},
		minio.CopySrcOptions{Bucket: m.bucket, Object: staging},
	)
	if err != nil {
		return "", fmt.Errorf("%w: copy to %s: %v", ErrUnavailable, casKey(addr), err)
	}

	m.logger.Debug().Str("cid", addr).Int64("size", digest.Size()).Msg("content stored and pinned")
	return addr, nil
}

// Fetch downloads the object into a local handle.
func (m *minioStore) Fetch(ctx context.Context, addr, displayName string) (*Handle, error) {
	addr, err := ParseAddress(addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	obj, err := m.client.GetObject(ctx, m.bucket, casKey(addr), minio.GetObjectOptions{})
	if err != nil {
		return nil, m.classify(err, addr)
	}
	defer obj.Close()

	// Stat surfaces a missing key before any bytes are spooled.
	if _, err := obj.Stat(); err != nil {
		return nil, m.classify(err, addr)
	}
	return Spool(m.tempDir, displayName, obj)
}

// Unpin marks the object as unpinned; missing objects are ignored.
func (m *minioStore) Unpin(ctx context.Context, addr string) error {
	addr, err := ParseAddress(addr)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	t, err := tags.NewTags(map[string]string{pinTag: "false"}, true)
	if err != nil {
		return err
	}
	err = m.client.PutObjectTagging(ctx, m.bucket, casKey(addr), t, minio.PutObjectTaggingOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("%w: unpin %s: %v", ErrUnavailable, addr, err)
	}
	return nil
}

// GC removes every content object that is not tagged as pinned.
func (m *minioStore) GC(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	var removed []string
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: casPrefix, Recursive: true}) {
		if obj.Err != nil {
			return removed, fmt.Errorf("%w: list objects: %v", ErrUnavailable, obj.Err)
		}
		t, err := m.client.GetObjectTagging(ctx, m.bucket, obj.Key, minio.GetObjectTaggingOptions{})
		if err != nil {
			if isNoSuchKey(err) {
				continue
			}
			return removed, fmt.Errorf("%w: read tags of %s: %v", ErrUnavailable, obj.Key, err)
		}
		if t.ToMap()[pinTag] == "true" {
			continue
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, fmt.Errorf("%w: remove %s: %v", ErrUnavailable, obj.Key, err)
		}
		removed = append(removed, strings.TrimPrefix(obj.Key, casPrefix))
	}
	return removed, nil
}

func (m *minioStore) classify(err error, addr string) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	return fmt.Errorf("%w: get %s: %v", ErrUnavailable, addr, err)
}

func casKey(addr string) string {
	return casPrefix + addr
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
