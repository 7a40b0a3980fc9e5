package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	// FolderSnapshots is the S3 prefix for collection snapshots.
	FolderSnapshots = "snapshots"
	// LatestSnapshotKey always holds the most recent snapshot.
	LatestSnapshotKey = FolderSnapshots + "/latest.json"

	defaultPresignExpire = 15 * time.Minute
	uploadPartSize       = 5 * 1024 * 1024
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	SnapshotsBucket      string
	PresignExpireMinutes int
	Endpoint             string
}

// S3 stores event snapshots in a single private bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client. Without static keys the default credential chain is used.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotsBucket == "" {
		return nil, fmt.Errorf("snapshots bucket not configured")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info("s3 snapshots store ready",
		zap.String("bucket", cfg.SnapshotsBucket),
		zap.String("region", cfg.Region),
		zap.Bool("static_credentials", cfg.AccessKeyID != ""),
		zap.String("endpoint", cfg.Endpoint),
	)
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) { u.PartSize = uploadPartSize }),
		presign:  s3.NewPresignClient(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// SnapshotKey returns the object key for a snapshot taken at t: snapshots/YYYY/MM/DD/{unix_nano}.json, in UTC.
func SnapshotKey(t time.Time) string {
	t = t.UTC()
	return path.Join(FolderSnapshots, t.Format("2006/01/02"), strconv.FormatInt(t.UnixNano(), 10)+".json")
}

// PresignExpire returns how long presigned URLs stay valid.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return defaultPresignExpire
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// Upload writes body under key. Objects stay private; share them with PresignGet.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, contentLength int64) error {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.SnapshotsBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if contentLength > 0 {
		in.ContentLength = aws.Int64(contentLength)
	}
	if _, err := s.uploader.Upload(ctx, in); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	s.logger.Debug("snapshot object uploaded", zap.String("key", key), zap.Int64("bytes", contentLength))
	return nil
}

// Open streams the object at key. Caller must close the body.
func (s *S3) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.SnapshotsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return out.Body, nil
}

// PresignGet returns a temporary download URL for key.
func (s *S3) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.SnapshotsBucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.PresignExpire()))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
