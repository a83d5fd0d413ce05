// Package s3 stages reference media in S3-compatible object storage.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uniedit/mediagen/internal/domain/media"
	"github.com/uniedit/mediagen/internal/infra/config"
	"github.com/uniedit/mediagen/internal/module/gateway/mediaref"
)

const defaultPresignExpiry = 24 * time.Hour

// ObjectPutter is the subset of *s3.Client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner signs download URLs for private buckets.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Uploader implements media.Uploader on an S3-compatible bucket.
// Objects are served from PublicBaseURL when set, otherwise through presigned GET URLs.
type Uploader struct {
	client    ObjectPutter
	presigner Presigner
	bucket    string
	publicURL string
	keyPrefix string
	expiry    time.Duration
	logger    *zap.Logger
}

// NewClient creates an S3 client for cfg. A custom endpoint switches to path-style addressing.
func NewClient(ctx context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, errors.New("incomplete storage configuration")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewUploader creates an uploader. presigner may be nil when cfg.PublicBaseURL is set.
func NewUploader(client ObjectPutter, presigner Presigner, cfg config.StorageConfig, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		client:    client,
		presigner: presigner,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		keyPrefix: cfg.KeyPrefix,
		expiry:    defaultPresignExpiry,
		logger:    logger,
	}
}

// NewFromConfig builds the client and uploader in one step.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Uploader, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewUploader(client, s3.NewPresignClient(client), cfg, logger), nil
}

func (u *Uploader) Name() string { return "s3" }

func (u *Uploader) Available() bool {
	return u != nil && u.client != nil && u.bucket != "" && (u.publicURL != "" || u.presigner != nil)
}

func (u *Uploader) Upload(ctx context.Context, ref media.Reference) (string, error) {
	if mediaref.IsRemote(ref) {
		return ref, nil
	}
	data, mime, err := mediaref.Decode(ref)
	if err != nil {
		return "", err
	}
	key := u.keyPrefix + uuid.NewString() + mediaref.ExtensionFor(mime)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mime),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	objectURL, err := u.objectURL(ctx, key)
	if err != nil {
		return "", err
	}
	u.logger.Debug("Uploaded reference to object storage", zap.String("key", key), zap.Int("bytes", len(data)))
	return objectURL, nil
}

func (u *Uploader) objectURL(ctx context.Context, key string) (string, error) {
	if u.publicURL != "" {
		return u.publicURL + "/" + key, nil
	}
	req, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = u.expiry
	})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

var _ media.Uploader = (*Uploader)(nil)
