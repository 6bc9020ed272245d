// Package storage keeps portal record collections in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/portal/internal/domain/shared"
	infraconfig "github.com/erp/portal/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectAPI is the subset of the S3 client the record store uses
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3RecordStore implements RecordStore with one JSON object per collection.
// Each Write replaces a single object, so units of work spanning several
// collections rely on the unit of work's compensation.
type S3RecordStore struct {
	client ObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// S3RecordStoreOption is a functional option for configuring S3RecordStore
type S3RecordStoreOption func(*S3RecordStore)

// WithLogger sets a custom logger for S3RecordStore
func WithLogger(logger *zap.Logger) S3RecordStoreOption {
	return func(s *S3RecordStore) {
		s.logger = logger
	}
}

// NewS3Client builds an S3 client for any S3-compatible backend (AWS S3, MinIO, RustFS).
// Without static keys the default AWS credential chain is used.
func NewS3Client(ctx context.Context, cfg *infraconfig.StorageConfig) (*s3.Client, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		// Many S3-compatible servers reject the newer default checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}), nil
}

// NewS3RecordStore creates a record store in bucket, with object keys under prefix
func NewS3RecordStore(client ObjectAPI, bucket, prefix string, opts ...S3RecordStoreOption) (*S3RecordStore, error) {
	if client == nil {
		return nil, errors.New("storage client is required")
	}
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	s := &S3RecordStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ObjectKey returns the key holding collection c
func (s *S3RecordStore) ObjectKey(c shared.Collection) string {
	return s.prefix + c.String() + ".json"
}

// Read returns the snapshot of c, or an empty snapshot when no object exists yet
func (s *S3RecordStore) Read(ctx context.Context, c shared.Collection) (shared.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(c)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return shared.EmptySnapshot(c), nil
		}
		return shared.Snapshot{}, shared.NewStorageError("read", c, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return shared.Snapshot{}, shared.NewStorageError("read", c, err)
	}
	var snap shared.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return shared.Snapshot{}, shared.NewStorageError("decode", c, err)
	}
	return snap.Normalize(c), nil
}

// Write replaces the object of c
func (s *S3RecordStore) Write(ctx context.Context, c shared.Collection, snap shared.Snapshot) error {
	raw, err := json.Marshal(snap.Normalize(c))
	if err != nil {
		return shared.NewStorageError("encode", c, err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.ObjectKey(c)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return shared.NewStorageError("write", c, err)
	}

	s.logger.Debug("Collection written to object storage",
		zap.String("collection", c.String()),
		zap.String("key", s.ObjectKey(c)),
		zap.Int("bytes", len(raw)))
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Call this during application startup to ensure the bucket is ready.
func (s *S3RecordStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Creating storage bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// Another instance may have won the race
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (s *S3RecordStore) Bucket() string {
	return s.bucket
}

var _ shared.RecordStore = (*S3RecordStore)(nil)
