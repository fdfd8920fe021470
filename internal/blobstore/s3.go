// Package blobstore stores attachment and signature payloads in S3.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/repository"
)

// PutObjectAPI is the subset of the S3 client used by the store.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 client.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// S3Store implements document.BlobStore on an S3 bucket.
type S3Store struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Store loads AWS configuration and creates the store. Static
// credentials and a custom endpoint are used when set, for S3-compatible
// storage such as MinIO or LocalStack.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3StoreWithClient creates the store on an existing client.
func NewS3StoreWithClient(client PutObjectAPI, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads the payload under a content-addressed key and returns an
// s3:// reference.
func (s *S3Store) Put(ctx context.Context, tenantID string, blob document.Blob) (string, error) {
	if len(blob.Data) == 0 {
		return "", repository.ErrInvalidInput
	}

	sum := sha256.Sum256(blob.Data)
	kind := blob.Kind
	if kind == "" {
		kind = "blob"
	}
	key := path.Join(s.prefix, tenantID, kind, hex.EncodeToString(sum[:]))

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(blob.Data),
	}
	if blob.ContentType != "" {
		input.ContentType = aws.String(blob.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to put object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

var _ document.BlobStore = (*S3Store)(nil)
