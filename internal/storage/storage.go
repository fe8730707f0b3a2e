// Package storage stores user avatars in an S3-compatible bucket
// (AWS S3, Cloudflare R2, MinIO).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

var (
	ErrUploadFailed       = errors.New("storage: failed to upload object")
	ErrDeleteFailed       = errors.New("storage: failed to delete object")
	ErrUnsupportedContent = errors.New("storage: unsupported content type")
)

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint      string `env:"STORAGE_ENDPOINT"`
	Region        string `env:"STORAGE_REGION" envDefault:"auto"`
	Bucket        string `env:"STORAGE_BUCKET"`
	AccessKey     string `env:"STORAGE_ACCESS_KEY"`
	SecretKey     string `env:"STORAGE_SECRET_KEY"`
	PublicURLBase string `env:"STORAGE_PUBLIC_URL_BASE"`
}

// Enabled reports whether avatar storage is configured.
func (c Config) Enabled() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// allowedContentTypes restricts avatar uploads to common image formats.
var allowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// AvatarStorage uploads user avatars and returns their public URLs.
type AvatarStorage struct {
	client        *s3.Client
	bucket        string
	publicURLBase string
}

// New creates an avatar storage backed by an S3-compatible API.
func New(cfg Config) *AvatarStorage {
	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		),
		BaseEndpoint: aws.String(cfg.Endpoint),
		// Path-style addressing is required for MinIO and some
		// S3-compatible services.
		UsePathStyle: true,
	})

	return &AvatarStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicURLBase: strings.TrimSuffix(cfg.PublicURLBase, "/"),
	}
}

// Upload stores an avatar for the given user and returns its public URL.
// The object key is derived from the user ID so a re-upload replaces the
// previous avatar.
func (s *AvatarStorage) Upload(ctx context.Context, userID string, body io.Reader, contentType string, size int64) (string, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContent, contentType)
	}

	key := "avatars/" + userID + ext
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", errors.Join(ErrUploadFailed, err)
	}

	return s.publicURLBase + "/" + key, nil
}

// Delete removes a user's avatar object. A missing object is not an error.
func (s *AvatarStorage) Delete(ctx context.Context, publicURL string) error {
	key, ok := strings.CutPrefix(publicURL, s.publicURLBase+"/")
	if !ok {
		// Externally hosted avatar (e.g. Google profile picture); nothing
		// stored on our side.
		return nil
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}
		return errors.Join(ErrDeleteFailed, err)
	}
	return nil
}
