package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectPutter is the subset of the S3 client used for archiving.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ArchiveStorage writes export files to an S3 bucket.
type ArchiveStorage struct {
	client ObjectPutter
	bucket string
}

// NewArchiveStorage builds an S3 client from the default credential chain.
func NewArchiveStorage(ctx context.Context, region, bucket string) (*ArchiveStorage, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("export bucket is not configured")
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewArchiveStorageWithClient(s3.NewFromConfig(cfg), bucket), nil
}

func NewArchiveStorageWithClient(client ObjectPutter, bucket string) *ArchiveStorage {
	return &ArchiveStorage{client: client, bucket: bucket}
}

// ExportKey builds exports/<teacher>/<yyyy>/<mm>/<uuid>.<ext>.
func ExportKey(teacherID uint, at time.Time, ext string) string {
	return fmt.Sprintf("exports/%d/%d/%02d/%s.%s", teacherID, at.Year(), int(at.Month()), uuid.New().String(), ext)
}

// Upload stores data under key and returns the s3:// location.
func (a *ArchiveStorage) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}
