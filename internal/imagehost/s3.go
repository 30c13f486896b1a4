package imagehost

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Config targets AWS S3 or any S3-compatible store (MinIO, R2, RustFS).
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is where uploaded objects are served from. Empty means
	// <endpoint>/<bucket>.
	PublicBaseURL string
	Prefix        string
	UsePathStyle  bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3 struct {
	client     objectPutter
	bucket     string
	prefix     string
	publicBase string
	log        *zap.Logger
}

type S3Option func(*S3)

func WithS3Logger(l *zap.Logger) S3Option {
	return func(s *S3) { s.log = l }
}

func withPutter(p objectPutter) S3Option {
	return func(s *S3) { s.client = p }
}

func NewS3(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: s3 bucket is required", ErrNotConfigured)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: s3 access and secret keys are required", ErrNotConfigured)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	s := &S3{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		publicBase: publicBase(cfg, endpoint, region),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func publicBase(cfg S3Config, endpoint, region string) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if endpoint != "" {
		return endpoint + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
}

func (s *S3) key(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyImage
	}
	if name == "" {
		return "", fmt.Errorf("s3: object name is required")
	}

	key := s.key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put %s: %w", key, err)
	}

	u := s.publicBase + "/" + key
	s.log.Info("image uploaded", zap.String("bucket", s.bucket), zap.String("key", key), zap.String("image_url", u))
	return u, nil
}
