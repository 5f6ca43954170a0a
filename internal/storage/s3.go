// Package storage wraps the S3 client used for PDF attachments.  Keys are
// collision-resistant unique names that preserve the original file
// extension; the original filename travels only as metadata.
package storage

import (
    "context"
    "fmt"
    "io"
    "path/filepath"
    "strings"

    "github.com/aws/aws-sdk-go-v2/aws"
    awsconfig "github.com/aws/aws-sdk-go-v2/config"
    "github.com/aws/aws-sdk-go-v2/credentials"
    "github.com/aws/aws-sdk-go-v2/service/s3"
    "github.com/google/uuid"
)

// Config carries the object-storage settings.
type Config struct {
    Region       string
    Bucket       string
    AccessKey    string
    SecretKey    string
    Endpoint     string // custom endpoint for S3-compatible stores (MinIO)
    UsePathStyle bool
}

// Client is a thin wrapper over the AWS S3 client bound to one bucket.
type Client struct {
    api      *s3.Client
    bucket   string
    region   string
    endpoint string
}

// New builds an S3 client.  Static credentials are used when both keys are
// set; otherwise the default provider chain applies (IAM roles, env vars).
func New(ctx context.Context, cfg Config) (*Client, error) {
    var awsCfg aws.Config
    var err error

    if cfg.AccessKey != "" && cfg.SecretKey != "" {
        awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
            awsconfig.WithRegion(cfg.Region),
            awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
                cfg.AccessKey,
                cfg.SecretKey,
                "",
            )),
        )
    } else {
        awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
            awsconfig.WithRegion(cfg.Region),
        )
    }
    if err != nil {
        return nil, fmt.Errorf("load aws config: %w", err)
    }

    api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
        if cfg.Endpoint != "" {
            o.BaseEndpoint = aws.String(cfg.Endpoint)
        }
        if cfg.UsePathStyle {
            o.UsePathStyle = true
        }
    })

    return &Client{api: api, bucket: cfg.Bucket, region: cfg.Region, endpoint: cfg.Endpoint}, nil
}

// Put uploads body under key and returns the public URL of the object.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
    _, err := c.api.PutObject(ctx, &s3.PutObjectInput{
        Bucket:      aws.String(c.bucket),
        Key:         aws.String(key),
        Body:        body,
        ContentType: aws.String(contentType),
    })
    if err != nil {
        return "", fmt.Errorf("s3 put %s: %w", key, err)
    }
    return c.ObjectURL(key), nil
}

// Delete removes the object stored under key.
func (c *Client) Delete(ctx context.Context, key string) error {
    _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
        Bucket: aws.String(c.bucket),
        Key:    aws.String(key),
    })
    if err != nil {
        return fmt.Errorf("s3 delete %s: %w", key, err)
    }
    return nil
}

// HeadBucket reports whether the configured bucket is reachable.  Used by
// the health endpoint.
func (c *Client) HeadBucket(ctx context.Context) bool {
    _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
    return err == nil
}

// ObjectURL builds the download URL for key.  With a custom endpoint the
// path-style form is used; otherwise the virtual-hosted AWS form.
func (c *Client) ObjectURL(key string) string {
    if c.endpoint != "" {
        return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.endpoint, "/"), c.bucket, key)
    }
    return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

// ObjectKey generates a unique storage key for an uploaded file, keeping
// only the extension of the original name.
func ObjectKey(originalFilename string) string {
    ext := strings.ToLower(filepath.Ext(originalFilename))
    return "uploads/" + uuid.NewString() + ext
}
