// Package storage archives generated gatepass documents to an S3-compatible
// bucket (R2, MinIO or AWS proper). The archive is best effort: a missing or
// unreachable bucket never blocks document download.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log"

	appconfig "gatepass-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type ArchiveStore struct {
	client *s3.Client
	bucket string
}

// NewArchiveStore builds the S3 client from config. Returns nil (disabled)
// when no bucket is configured.
func NewArchiveStore(ctx context.Context, cfg *appconfig.Config) *ArchiveStore {
	if cfg.Archive.Bucket == "" || cfg.Archive.AccessKey == "" {
		log.Println("[Archive] No bucket configured, document archiving disabled")
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Archive.Region),
	)
	if err != nil {
		log.Printf("[Archive] Failed to configure S3 client, archiving disabled: %v", err)
		return nil
	}

	endpoint := cfg.Archive.Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &ArchiveStore{client: client, bucket: cfg.Archive.Bucket}
}

// Put uploads one generated document under passes/<number>.pdf.
func (a *ArchiveStore) Put(ctx context.Context, gatepassNumber string, pdf []byte) error {
	if a == nil {
		return nil
	}

	key := fmt.Sprintf("passes/%s.pdf", gatepassNumber)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(pdf),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("archive %s: %w", key, err)
	}

	return nil
}
