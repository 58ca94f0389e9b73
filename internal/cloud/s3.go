package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
)

// S3Config describes how to reach an S3-compatible object store.
type S3Config struct {
	Region    string
	Endpoint  string // empty = AWS default
	AccessKey string // empty = default credential chain
	SecretKey string
	PathStyle bool
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	}), nil
}

// Uploader is the subset of the transfer manager the publisher uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Publisher uploads outputs to a bucket under <prefix>/<export id>/<file>.
type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

func NewS3Publisher(client *s3.Client, bucket, prefix string, logger *slog.Logger) *S3Publisher {
	return newS3Publisher(manager.NewUploader(client), bucket, prefix, logger)
}

func newS3Publisher(uploader Uploader, bucket, prefix string, logger *slog.Logger) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// Key returns the object key an export is published under.
func (p *S3Publisher) Key(exportID, localPath string) string {
	return path.Join(p.prefix, exportID, filepath.Base(localPath))
}

func (p *S3Publisher) Publish(ctx context.Context, exportID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	var size uint64
	if info, err := f.Stat(); err == nil {
		size = uint64(info.Size())
	}

	key := p.Key(exportID, localPath)
	p.logger.Info("uploading export to object storage",
		"export_id", exportID,
		"bucket", p.bucket,
		"key", key,
		"size", humanize.Bytes(size),
	)

	if _, err := p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("video/mp4"),
	}); err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", p.bucket, key, err)
	}

	return fmt.Sprintf("s3://%s/%s", p.bucket, key), nil
}
