package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/localmedia/player/internal/config"
	"github.com/localmedia/player/internal/media"
)

// S3Storage implements Backend using an S3-compatible bucket. The managed
// root is the configured key prefix.
type S3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates a new S3 storage backend
func NewS3(cfg config.StorageConfig) (*S3Storage, error) {
	ctx := context.Background()

	// Build AWS config
	var opts []func(*awsconfig.LoadOptions) error

	// Static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	// Set region
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint for non-AWS S3 (MinIO, etc.)
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // Required for MinIO and some S3-compatible services
	})

	return newS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3WithClient(client *s3.Client, bucket, prefix string) *S3Storage {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Storage{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Storage) key(name string) string {
	return s.prefix + name
}

func (s *S3Storage) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

// Put uploads content under name
func (s *S3Storage) Put(ctx context.Context, name string, content io.Reader) (*Object, error) {
	// Read content into buffer to get size
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, content); err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(media.ContentType(name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	return s.Stat(ctx, name)
}

// Open retrieves an object's content
func (s *S3Storage) Open(ctx context.Context, name string) (io.ReadCloser, *Object, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to get file: %w", err)
	}

	obj := &Object{
		Name:     name,
		Size:     aws.ToInt64(result.ContentLength),
		ModTime:  aws.ToTime(result.LastModified),
		Location: s.Location(name),
	}
	return result.Body, obj, nil
}

// Stat retrieves object metadata
func (s *S3Storage) Stat(ctx context.Context, name string) (*Object, error) {
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	return &Object{
		Name:     name,
		Size:     aws.ToInt64(result.ContentLength),
		ModTime:  aws.ToTime(result.LastModified),
		Location: s.Location(name),
	}, nil
}

// Delete removes an object. S3 deletes are idempotent, so existence is
// checked first to report ErrNotFound.
func (s *S3Storage) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// List returns objects directly under the prefix
func (s *S3Storage) List(ctx context.Context) ([]*Object, error) {
	var objects []*Object

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(s.prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}

			objects = append(objects, &Object{
				Name:     name,
				Size:     aws.ToInt64(obj.Size),
				ModTime:  aws.ToTime(obj.LastModified),
				Location: s.Location(name),
			})
		}
	}

	return objects, nil
}

func isNotFound(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
