package storage

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// FolderImports is the S3 prefix for archived import payloads.
	FolderImports = "imports"
	// MaxImportSize is the largest payload archived (25MB).
	MaxImportSize = 25 * 1024 * 1024
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ImportBucket         string
	PresignExpireMinutes int
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3 archives raw import payloads and hands out pre-signed download URLs for them.
type S3 struct {
	uploader uploader
	presign  *s3.PresignClient
	cfg      S3Config
	logger   *zap.Logger
	now      func() time.Time
}

// NewS3 creates an S3 client using credentials from config or .env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
		logger.Info("S3 client using credentials from .env/config", zap.String("region", cfg.Region), zap.String("import_bucket", cfg.ImportBucket))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024 // 5MB parts for large imports
	})
	return &S3{
		uploader: up,
		presign:  s3.NewPresignClient(client),
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// ImportKey returns the object key for an archived payload: imports/{yyyy}/{mm}/{dd}/{id}.json.
func ImportKey(at time.Time, id uuid.UUID) string {
	at = at.UTC()
	return path.Join(FolderImports, at.Format("2006"), at.Format("01"), at.Format("02"), id.String()+".json")
}

// ValidImportKey reports whether key names an object under the import prefix.
func ValidImportKey(key string) bool {
	clean := path.Clean(key)
	return clean == key && strings.HasPrefix(clean, FolderImports+"/") && strings.HasSuffix(clean, ".json")
}

// ArchiveImport uploads a raw import payload and returns its key.
func (s *S3) ArchiveImport(ctx context.Context, body []byte) (string, error) {
	if len(body) > MaxImportSize {
		return "", fmt.Errorf("import payload of %d bytes exceeds archive limit", len(body))
	}
	key := ImportKey(s.now(), uuid.New())
	size := int64(len(body))
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.ImportBucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String("application/json"),
		ContentLength: &size,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	s.logger.Info("import payload archived", zap.String("key", key), zap.Int64("bytes", size))
	return key, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// ImportDownloadURL returns a pre-signed GET URL for an archived payload.
func (s *S3) ImportDownloadURL(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.ImportBucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = s.PresignExpire()
	})
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
