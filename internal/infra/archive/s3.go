// Package archive keeps verified webhook payloads in object storage for
// audit and replay.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/chrisdten3/tally-pwa-backup-sub000/internal/config"
)

type Archiver interface {
	Put(ctx context.Context, providerName, eventID string, at time.Time, payload []byte) (string, error)
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client objectPutter
	bucket string
}

// NewS3 builds a client for any S3-compatible store. Endpoint is optional;
// static credentials are used when both keys are set.
func NewS3(ctx context.Context, cfg appconfig.ArchiveConfig) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load s3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

// Key is <provider>/<yyyy>/<mm>/<dd>/<event id>.json in UTC.
func Key(providerName, eventID string, at time.Time) string {
	return path.Join(providerName, at.UTC().Format("2006/01/02"), eventID+".json")
}

func (s *S3) Put(ctx context.Context, providerName, eventID string, at time.Time, payload []byte) (string, error) {
	key := Key(providerName, eventID, at)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	return key, nil
}
