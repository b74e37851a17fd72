package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration for the off-site
// mirror. Passphrase, when set, seals archives before upload.
type S3Config struct {
	Endpoint   string
	Bucket     string
	Region     string
	AccessKey  string
	SecretKey  string
	Passphrase string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Offsite mirrors completed archives to an S3 bucket.
type Offsite struct {
	client     s3Client
	bucket     string
	passphrase string
}

// NewOffsite returns nil when the configuration is incomplete.
func NewOffsite(cfg S3Config) *Offsite {
	if !cfg.Enabled() {
		return nil
	}
	return &Offsite{client: newS3Client(cfg), bucket: cfg.Bucket, passphrase: cfg.Passphrase}
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Key returns the object key for a user's archive.
func (o *Offsite) Key(user, filename string) string {
	key := user + "/" + filename
	if o.passphrase != "" {
		key += ".enc"
	}
	return key
}

// Upload copies the archive at path to key, sealing it first if a
// passphrase is configured.
func (o *Offsite) Upload(ctx context.Context, key, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}
	if o.passphrase != "" {
		if data, err = Seal(data, o.passphrase); err != nil {
			return fmt.Errorf("seal archive: %w", err)
		}
	}
	_, err = o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(o.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("upload to s3: %w", err)
	}
	return nil
}

// Download fetches and, if needed, unseals the archive stored at key.
func (o *Offsite) Download(ctx context.Context, key string) ([]byte, error) {
	result, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object: %w", err)
	}
	if o.passphrase != "" {
		if data, err = Unseal(data, o.passphrase); err != nil {
			return nil, fmt.Errorf("unseal archive: %w", err)
		}
	}
	return data, nil
}

func (o *Offsite) Delete(ctx context.Context, key string) error {
	_, err := o.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete s3 object %s: %w", key, err)
	}
	return nil
}
