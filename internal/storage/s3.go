package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the settings for the S3-compatible object store. Endpoint
// is optional; when set (R2, minio) path-style addressing is used.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

type s3Issuer struct {
	presign       *s3.PresignClient
	defaultBucket string
}

// NewS3Issuer builds a signed-URL issuer on top of an S3-compatible store
func NewS3Issuer(ctx context.Context, cfg S3Config) (Issuer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Issuer{
		presign:       s3.NewPresignClient(client),
		defaultBucket: cfg.Bucket,
	}, nil
}

func (i *s3Issuer) SignedURL(ctx context.Context, provider, bucket, path string, ttl time.Duration) (string, error) {
	switch provider {
	case "r2", "s3", "supabase":
	default:
		return "", fmt.Errorf("unknown storage provider %q", provider)
	}

	if bucket == "" {
		bucket = i.defaultBucket
	}

	req, err := i.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(path),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s/%s: %w", bucket, path, err)
	}

	return req.URL, nil
}
