package s3infra

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectAPI is the subset of *s3.Client the store uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Store wraps S3 operations for profile pictures.
type Store struct {
	client        objectAPI
	bucket        string
	publicBaseURL string
}

// NewClient creates an S3 client. When endpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(awsCfg aws.Config, endpointURL string) *s3.Client {
	var clientOpts []func(*s3.Options)
	if endpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...)
}

// NewStore creates a Store for bucket. Object URLs are publicBaseURL/key when
// publicBaseURL is set (CDN or public bucket), s3://bucket/key otherwise.
func NewStore(client *s3.Client, bucket, publicBaseURL string) *Store {
	return &Store{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Upload streams an object to S3 under key and returns its URL.
func (s *Store) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}
	return s.URL(key), nil
}

func (s *Store) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// Delete removes an object from S3.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete object: %w", err)
	}
	return nil
}
