// Package storage mirrors remote pictures into an S3 bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/givdo/givdo/internal/config"
)

// MaxPictureSize caps how much of a remote picture is copied.
const MaxPictureSize = 5 * 1024 * 1024

var pictureExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 copies pictures from their source URL into a public-read bucket.
type S3 struct {
	uploader uploader
	http     *http.Client
	bucket   string
	region   string
	prefix   string
	logger   *logrus.Logger
}

// NewS3 builds the mirror from the default AWS credential chain, preferring
// AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY when both are set.
func NewS3(ctx context.Context, cfg config.PictureConfig, logger *logrus.Logger) (*S3, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		logger.Warn("S3 client using default credential chain")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return newS3(manager.NewUploader(client), cfg, logger), nil
}

func newS3(up uploader, cfg config.PictureConfig, logger *logrus.Logger) *S3 {
	return &S3{
		uploader: up,
		http:     &http.Client{Timeout: 30 * time.Second},
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		logger:   logger,
	}
}

// PictureKey is the object key for a picture named name with the given content type.
func (s *S3) PictureKey(name, contentType string) string {
	ext, ok := pictureExtensions[strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))]
	if !ok {
		ext = ".jpg"
	}
	return path.Join(s.prefix, name+ext)
}

// PublicURL is the address of key in the bucket.
func (s *S3) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// MirrorPicture streams sourceURL into the bucket under name and returns the
// public URL of the copy.
func (s *S3) MirrorPicture(ctx context.Context, name, sourceURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download picture: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download picture: status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxPictureSize {
		return "", fmt.Errorf("picture too large: %d bytes", resp.ContentLength)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := s.PictureKey(name, contentType)

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        io.LimitReader(resp.Body, MaxPictureSize),
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.WithFields(logrus.Fields{"key": key, "source": sourceURL}).Info("picture mirrored")
	return s.PublicURL(key), nil
}
