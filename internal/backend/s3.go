package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Client is the subset of *s3.Client this package calls, so tests can
// substitute a fake without exercising real AWS credentials or network.
type S3Client interface {
	manager.DownloadAPIClient
	manager.UploadAPIClient
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Backend stores repository objects in a single S3 bucket, using key
// paths directly as object keys.
type S3Backend struct {
	client   S3Client
	bucket   string
	uploader *manager.Uploader
}

// NewS3Backend builds an S3Backend for bucket in region, loading standard
// AWS credentials (environment, shared config, or the named profile) the
// same way the AWS CLI does.
func NewS3Backend(ctx context.Context, bucket, region, profile string) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("backend: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return NewS3BackendWithClient(client, bucket), nil
}

// NewS3BackendWithClient builds an S3Backend around an already-configured
// client, letting callers or tests inject their own (e.g. a fake, or one
// pointed at a non-AWS S3-compatible endpoint).
func NewS3BackendWithClient(client S3Client, bucket string) *S3Backend {
	return &S3Backend{
		client:   client,
		bucket:   bucket,
		uploader: manager.NewUploader(client),
	}
}

func (b *S3Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("backend: head %s: %w", key, err)
}

func (b *S3Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, key)
		}
		return nil, fmt.Errorf("backend: get %s: %w", key, err)
	}
	return out.Body, nil
}

// Write uploads r under key. S3's PUT (and the multipart manager's own
// internal sequencing for larger bodies) is already atomic from a reader's
// perspective: a GET never observes a partially-uploaded object.
func (b *S3Backend) Write(ctx context.Context, key string, r io.Reader, _ int64) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("backend: put %s: %w", key, err)
	}
	return nil
}

// List asks S3 for the immediate children of prefix using Delimiter: "/",
// so a "directory" of common prefixes is returned alongside blobs instead
// of every object recursively under prefix.
func (b *S3Backend) List(ctx context.Context, prefix string) ([]string, error) {
	p := prefix
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	var names []string
	var token *string
	for {
		out, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(b.bucket),
			Prefix:            aws.String(p),
			Delimiter:         aws.String("/"),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("backend: list %s: %w", prefix, err)
		}
		for _, cp := range out.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), p), "/")
			names = append(names, name)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if key == p {
				continue
			}
			names = append(names, strings.TrimPrefix(key, p))
		}
		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, prefix)
	}
	return names, nil
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
