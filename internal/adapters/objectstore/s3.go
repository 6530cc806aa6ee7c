// Package objectstore holds the object storage collaborators that keep uploaded invoice images.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// s3API is the part of the S3 client the store uses.
type s3API interface {
	HeadObjectWithContext(ctx aws.Context, input *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error)
	DeleteObjectWithContext(ctx aws.Context, input *s3.DeleteObjectInput, opts ...request.Option) (*s3.DeleteObjectOutput, error)
	ListObjectsV2PagesWithContext(ctx aws.Context, input *s3.ListObjectsV2Input, fn func(*s3.ListObjectsV2Output, bool) bool, opts ...request.Option) error
}

// S3Config selects the bucket and, for S3-compatible services, the endpoint.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// S3Store keeps invoice images in an S3 bucket under a key prefix.
type S3Store struct {
	client s3API
	bucket string
	prefix string
}

var _ ports.ObjectStore = (*S3Store)(nil)

// NewS3Store creates a store using the default AWS credential chain.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket cannot be empty")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return newS3Store(s3.New(sess), cfg.Bucket, cfg.Prefix), nil
}

func newS3Store(client s3API, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

// Delete removes the object. S3 does not report missing keys on delete, so existence is checked first.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ports.ErrObjectNotFound
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ports.ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// List returns every key under the store's prefix.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	keys := make([]string, 0)
	err := s.client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in %s: %w", s.bucket, err)
	}
	return keys, nil
}

func isNotFound(err error) bool {
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == http.StatusNotFound {
		return true
	}
	var awsErr awserr.Error
	if errors.As(err, &awsErr) {
		switch awsErr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
