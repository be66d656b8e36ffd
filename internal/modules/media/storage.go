package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/inkwell-cms/inkwell/internal/config"
)

// Storage persists uploaded objects and reports their public URL.
type Storage interface {
	Name() string
	Put(ctx context.Context, key string, payload []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// NewStorage builds the backend selected by cfg.Driver.
func NewStorage(cfg config.StorageConfig, uploadDir string) (Storage, error) {
	switch cfg.Driver {
	case "", config.StorageLocal:
		return NewLocalStorage(uploadDir, cfg.PublicPath), nil
	case config.StorageS3:
		return NewS3Storage(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// LocalStorage writes objects under a directory served at publicPath.
type LocalStorage struct {
	dir        string
	publicPath string
}

func NewLocalStorage(dir, publicPath string) *LocalStorage {
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &LocalStorage{dir: dir, publicPath: "/" + strings.Trim(publicPath, "/")}
}

func (s *LocalStorage) Name() string { return config.StorageLocal }

func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Put(_ context.Context, key string, payload []byte, _ string) (string, error) {
	target, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	tmp := target + ".part"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move upload into place: %w", err)
	}
	return path.Join(s.publicPath, key), nil
}

func (s *LocalStorage) Delete(_ context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}

// resolve maps key to a path inside dir, refusing traversal.
func (s *LocalStorage) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// S3Storage stores objects in an S3-compatible bucket.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

func NewS3Storage(cfg config.S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("incomplete s3 config: bucket, access_key_id and secret_access_key are required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint != "" && !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	client := s3.New(s3.Options{
		Region:       region,
		Credentials:  aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		UsePathStyle: cfg.PathStyle || endpoint != "",
	}, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	publicURL := strings.TrimRight(cfg.PublicURL, "/")
	if publicURL == "" {
		if endpoint != "" {
			publicURL = endpoint + "/" + cfg.Bucket
		} else {
			publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
		}
	}
	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		publicURL: publicURL,
	}, nil
}

func (s *S3Storage) Name() string { return config.StorageS3 }

func (s *S3Storage) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Storage) Put(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	full := s.objectKey(key)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(full),
		Body:          bytes.NewReader(payload),
		ContentLength: aws.Int64(int64(len(payload))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", full, err)
	}
	return s.publicURL + "/" + full, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	full := s.objectKey(key)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", full, err)
	}
	return nil
}
