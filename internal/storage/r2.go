package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/huddlehq/huddle/pkg/config"
)

// Client wraps the R2 (S3-compatible) object store. Bytes never route
// through the application server on upload; clients PUT directly against
// presigned URLs.
type Client struct {
	s3        *s3.Client
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
}

// New creates an R2 storage client
func New(cfg *config.StorageConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("r2_endpoint is required")
	}

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(cfg.Endpoint),
		Region:       "auto",
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})

	return &Client{
		s3:        client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       cfg.PresignTTL,
	}, nil
}

// PresignPut issues a time-limited URL for a direct client upload
func (c *Client) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign upload: %w", err)
	}
	return req.URL, nil
}

// PresignGet issues a time-limited URL for a direct client download
func (c *Client) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// Get streams an object for the proxy endpoint
func (c *Client) Get(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("failed to get object: %w", err)
	}

	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	var size int64
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return out.Body, contentType, size, nil
}

// ObjectURL returns the canonical bucket URL for a key. Confirmed
// attachments get rewritten to the proxy path; this URL is what the row
// holds before that.
func (c *Client) ObjectURL(key string) string {
	endpoint := ""
	if c.s3.Options().BaseEndpoint != nil {
		endpoint = strings.TrimSuffix(*c.s3.Options().BaseEndpoint, "/")
	}
	return fmt.Sprintf("%s/%s/%s", endpoint, c.bucket, key)
}

// BuildKey derives the storage key for an upload: the uploader's
// lowercased email as prefix, then a millisecond timestamp and the
// filename.
func BuildKey(email, filename string, now time.Time) string {
	return fmt.Sprintf("%s/%d_%s", strings.ToLower(email), now.UnixMilli(), filename)
}

// ValidateKey reports whether a key belongs to the given uploader. Keys
// outside the caller's lowercased-email prefix are rejected.
func ValidateKey(email, key string) bool {
	prefix := strings.ToLower(email) + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}
