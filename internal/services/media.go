package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"gasy-hub-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	mediaURLExpiry = 15 * time.Minute
	mediaKeyPrefix = "alerts/"
)

// objectStore is the part of the S3 client the media service needs
type objectStore interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// MediaOptions configures the media service
type MediaOptions struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	DisableSSL bool
	MaxFiles   int
	MaxBytes   int64
}

// MediaService stores alert attachments in S3
type MediaService struct {
	store     objectStore
	presigner *s3.PresignClient
	bucket    string
	maxFiles  int
	maxBytes  int64
}

// NewMediaService creates a media service. With no bucket configured it is
// still usable, but every upload is rejected.
func NewMediaService(ctx context.Context, opts MediaOptions) (*MediaService, error) {
	svc := &MediaService{
		bucket:   opts.Bucket,
		maxFiles: opts.MaxFiles,
		maxBytes: opts.MaxBytes,
	}
	if opts.Bucket == "" {
		return svc, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(endpointURL(opts.Endpoint, opts.DisableSSL))
			o.UsePathStyle = true
		}
	})

	svc.store = client
	svc.presigner = s3.NewPresignClient(client)
	return svc, nil
}

func endpointURL(endpoint string, disableSSL bool) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	if disableSSL {
		return "http://" + endpoint
	}
	return "https://" + endpoint
}

// Enabled reports whether uploads are possible
func (s *MediaService) Enabled() bool {
	return s.store != nil && s.bucket != ""
}

// Upload stores the files under alerts/ and returns their object keys as media.
// Already uploaded objects are removed again if a later file fails.
func (s *MediaService) Upload(ctx context.Context, files []*multipart.FileHeader) (models.Media, error) {
	if len(files) == 0 {
		return models.NoMedia(), nil
	}
	if !s.Enabled() {
		return models.NoMedia(), newError(ErrValidation, "media uploads are disabled")
	}
	if err := s.CheckCount(len(files)); err != nil {
		return models.NoMedia(), err
	}
	for _, fh := range files {
		if s.maxBytes > 0 && fh.Size > s.maxBytes {
			return models.NoMedia(), newError(ErrValidation, "%s exceeds the %d byte limit", fh.Filename, s.maxBytes)
		}
	}

	keys := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := s.put(ctx, fh)
		if err != nil {
			s.cleanup(keys)
			return models.NoMedia(), err
		}
		keys = append(keys, key)
	}
	return models.ManyMedia(keys), nil
}

// CheckCount rejects alerts carrying more media entries than allowed
func (s *MediaService) CheckCount(n int) error {
	if s.maxFiles > 0 && n > s.maxFiles {
		return newError(ErrValidation, "at most %d media files are allowed", s.maxFiles)
	}
	return nil
}

// Owns reports whether path is an object key this service uploaded. Only
// those keys are ever presigned.
func (s *MediaService) Owns(path string) bool {
	if !strings.HasPrefix(path, mediaKeyPrefix) || strings.Contains(path, "://") {
		return false
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// Discard removes objects uploaded for an alert that was never stored
func (s *MediaService) Discard(media models.Media) {
	if !s.Enabled() {
		return
	}
	keys := make([]string, 0, media.Len())
	for _, path := range media.Paths() {
		if s.Owns(path) {
			keys = append(keys, path)
		}
	}
	s.cleanup(keys)
}

func (s *MediaService) put(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	file, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer file.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("%s%s%s", mediaKeyPrefix, uuid.New().String(), strings.ToLower(filepath.Ext(fh.Filename)))

	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(fh.Size),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fh.Filename, err)
	}
	return key, nil
}

func (s *MediaService) cleanup(keys []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range keys {
		_, err := s.store.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to remove orphaned media")
		}
	}
}

// URL returns a short-lived download URL for an object this service uploaded
func (s *MediaService) URL(ctx context.Context, key string) (string, error) {
	if s.presigner == nil {
		return "", newError(ErrValidation, "media storage is disabled")
	}
	if !s.Owns(key) {
		return "", newError(ErrForbidden, "media %q is not managed by this service", key)
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = mediaURLExpiry
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign media URL: %w", err)
	}
	return req.URL, nil
}
