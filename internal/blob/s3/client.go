// Package s3blob stores settlement archives in an S3-compatible bucket.
// Resolved and canceled markets are exported as JSON documents partitioned
// by month; the same bucket serves them back through the settlement
// readback endpoint. MinIO and other S3-compatible providers work through
// the Endpoint override.
package s3blob

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientConfig describes the archive bucket connection.
type ClientConfig struct {
	// Endpoint overrides the AWS endpoint for S3-compatible providers,
	// e.g. "http://minio:9000". Empty means standard AWS S3.
	Endpoint string

	// Region is the bucket's region, or the provider's equivalent.
	Region string

	// Bucket holds the settlement archives.
	Bucket string

	AccessKey string
	SecretKey string

	// UseSSL picks the scheme when Endpoint carries none.
	UseSSL bool

	// ForcePathStyle addresses the bucket in the path instead of the
	// subdomain. MinIO and most compatible providers need it.
	ForcePathStyle bool
}

// Client holds the SDK client and bucket that the archive reader and
// writer in this package operate on.
type Client struct {
	s3     *s3.Client
	bucket string
}

// New connects to the archive bucket and verifies it is reachable with the
// given credentials before returning.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3blob: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3blob: region is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint, cfg.UseSSL))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	c := &Client{s3: client, bucket: cfg.Bucket}

	// Fail at startup rather than on the first archival.
	if _, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return nil, fmt.Errorf("s3blob: bucket %s unreachable: %w", c.bucket, err)
	}
	return c, nil
}

// Close releases nothing today; the SDK's HTTP client needs no teardown.
// It exists so wiring can treat every backend uniformly.
func (c *Client) Close() error {
	return nil
}

// withScheme prepends http:// or https:// when the endpoint carries no
// scheme of its own.
func withScheme(endpoint string, useSSL bool) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Scheme != "" {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}
