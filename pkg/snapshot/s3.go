package snapshot

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/focus-dev/focus/internal/errors"
)

// S3API is the subset of the S3 client used by S3Backend.
// *s3.Client satisfies it.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Backend keeps snapshots in an S3 bucket.
//
// Example usage:
//
//	client := s3.New(s3.Options{Region: "eu-west-3", Credentials: creds})
//	backend := snapshot.NewS3Backend(client, "my-bucket", "focus/snapshots/")
type S3Backend struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Backend creates a new S3 snapshot backend.
//
// Parameters:
//   - client: S3 client from aws-sdk-go-v2
//   - bucket: S3 bucket name
//   - prefix: Key prefix for snapshots (e.g., "focus/snapshots/")
func NewS3Backend(client S3API, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

// Save implements Backend.
func (b *S3Backend) Save(ctx context.Context, name string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.prefix + name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return errors.New("F010").WithDetailf("s3 put %s/%s", b.bucket, b.prefix+name).Wrap(err)
	}
	return nil
}

// Load implements Backend.
func (b *S3Backend) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + name),
	})
	if err != nil {
		return nil, errors.New("F010").WithDetailf("s3 get %s/%s", b.bucket, b.prefix+name).Wrap(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.New("F010").Wrap(err)
	}
	return data, nil
}

// List implements Backend. Names are returned without the prefix, in
// ascending order.
func (b *S3Backend) List(ctx context.Context) ([]string, error) {
	var names []string

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.New("F010").WithDetailf("s3 list %s/%s", b.bucket, b.prefix).Wrap(err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			name := strings.TrimPrefix(*obj.Key, b.prefix)
			if isSnapshotFile(name) && !strings.Contains(name, "/") {
				names = append(names, name)
			}
		}
	}

	sort.Strings(names)
	return names, nil
}

func contentType(name string) string {
	if strings.HasSuffix(name, ".json") {
		return "application/json"
	}
	return "application/yaml"
}
