// Package storage wraps the S3-compatible object stores the worker
// reads supplier feeds from and writes artifacts/exports to. Grounded
// on the teacher's pkg/archive/parquet (target.go's S3Target,
// reader.go's S3ParquetSource): same aws-sdk-go-v2 config/credentials/
// client wiring, generalized from a write-only and a read-only source
// into one ObjectStore covering both directions plus the range-GET and
// presigned-URL operations the chunker and finalizer need.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Object is a minimal listing record.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// RangeResult is the outcome of a byte-range GET, carrying enough of
// the HTTP response shape for the chunker to validate Content-Range
// semantics per spec.
type RangeResult struct {
	StatusCode   int
	Body         []byte
	ContentRange string // raw "bytes start-end/total" header, empty if absent
	TotalBytes   int64  // parsed from Content-Range or Content-Length
}

// ObjectStore is the contract used by the index builder, chunker,
// finalizer, and export engine.
type ObjectStore interface {
	// Head returns the object's total size without downloading a body.
	Head(ctx context.Context, bucket, key string) (int64, error)
	// GetRange issues a byte-range GET for [start, start+length-1].
	GetRange(ctx context.Context, bucket, key string, start, length int64) (*RangeResult, error)
	// Get downloads an object in full.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put uploads data to key, overwriting any existing object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, bucket, key string) error
	// List returns every object under prefix, newest LastModified last
	// is not guaranteed — callers sort if order matters.
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	// PresignGet returns a signed GET URL for key valid for ttl.
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Config configures the S3-compatible client.
type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UsePathStyle bool
}

// S3Store is the ObjectStore implementation backed by aws-sdk-go-v2.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
}

// NewS3Store builds a client from cfg.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load AWS config: %w", err)
	}

	opts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}

	client := s3.NewFromConfig(awsCfg, opts)
	return &S3Store{client: client, presigner: s3.NewPresignClient(client)}, nil
}

func (s *S3Store) Head(ctx context.Context, bucket, key string) (int64, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("storage: head %q: %w", key, err)
	}
	if out.ContentLength == nil {
		return 0, fmt.Errorf("storage: head %q: missing content-length", key)
	}
	return *out.ContentLength, nil
}

func (s *S3Store) GetRange(ctx context.Context, bucket, key string, start, length int64) (*RangeResult, error) {
	rangeHeader := fmt.Sprintf("bytes=%d-%d", start, start+length-1)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get range %q: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read range body %q: %w", key, err)
	}

	res := &RangeResult{Body: body}
	if out.ContentRange != nil {
		res.ContentRange = *out.ContentRange
		res.StatusCode = 206
		res.TotalBytes = parseContentRangeTotal(*out.ContentRange)
	} else {
		res.StatusCode = 200
		if out.ContentLength != nil {
			res.TotalBytes = *out.ContentLength
		}
	}
	return res, nil
}

func parseContentRangeTotal(headerValue string) int64 {
	// "bytes start-end/total"
	idx := strings.LastIndex(headerValue, "/")
	if idx < 0 || idx+1 >= len(headerValue) {
		return 0
	}
	var total int64
	fmt.Sscanf(headerValue[idx+1:], "%d", &total)
	return total
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %q: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("storage: put %q: %w", key, err)
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("storage: delete %q: %w", key, err)
	}
	return nil
}

func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var out []Object
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage: list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			o := Object{Key: *obj.Key}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *S3Store) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("storage: presign %q: %w", key, err)
	}
	return req.URL, nil
}
