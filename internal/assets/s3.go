package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"
)

// Downloader is the subset of the transfer manager the resolver uses.
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// S3Resolver serves s3://bucket/key sources from a local download cache.
type S3Resolver struct {
	downloader Downloader
	cacheDir   string
	logger     *slog.Logger
	group      singleflight.Group
}

func NewS3Resolver(client *s3.Client, cacheDir string, logger *slog.Logger) *S3Resolver {
	return newS3Resolver(manager.NewDownloader(client), cacheDir, logger)
}

func newS3Resolver(d Downloader, cacheDir string, logger *slog.Logger) *S3Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Resolver{downloader: d, cacheDir: cacheDir, logger: logger}
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(u string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(u, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", false
	}
	return bucket, key, true
}

func (r *S3Resolver) Resolve(ctx context.Context, logical string) (string, error) {
	if !strings.HasPrefix(logical, "s3://") {
		return "", errNotHandled
	}
	bucket, key, ok := ParseS3URL(logical)
	if !ok {
		return "", fmt.Errorf("%w: malformed object url %s", ErrMissingSourceAsset, logical)
	}

	local := filepath.Join(r.cacheDir, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(r.cacheDir, local)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: object key escapes cache: %s", ErrMissingSourceAsset, logical)
	}
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local, nil
	}

	_, err, _ = r.group.Do(local, func() (interface{}, error) {
		return nil, r.download(ctx, bucket, key, local)
	})
	if err != nil {
		return "", err
	}
	return local, nil
}

func (r *S3Resolver) download(ctx context.Context, bucket, key, local string) error {
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(local), ".download-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := r.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	closeErr := tmp.Close()
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
			return fmt.Errorf("%w: s3://%s/%s", ErrMissingSourceAsset, bucket, key)
		}
		return fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	if closeErr != nil {
		return fmt.Errorf("write cache file: %w", closeErr)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("commit cache file: %w", err)
	}

	r.logger.Info("source asset downloaded",
		"bucket", bucket,
		"key", key,
		"size", humanize.Bytes(uint64(n)),
	)
	return nil
}
