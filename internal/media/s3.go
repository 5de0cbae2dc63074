// Package media uploads locally staged files to S3-compatible object storage
// and hands back their public URLs.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	// ErrNoFile means the caller did not provide a file at all.
	ErrNoFile = errors.New("no file provided")
	ErrUpload = errors.New("upload failed")
)

type Asset struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// ObjectAPI is the slice of *s3.Client the store needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicURL prefixes object keys in returned URLs. Defaults to
	// <Endpoint>/<Bucket>.
	PublicURL string
}

type S3Store struct {
	client    ObjectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("media: bucket is empty")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("media: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return NewStore(client, cfg.Bucket, publicURL), nil
}

func NewStore(client ObjectAPI, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}
}

// StorageKey spreads objects by upload date.
func StorageKey(now time.Time, ext string) string {
	return fmt.Sprintf("media/%d/%02d/%02d/%s%s", now.Year(), now.Month(), now.Day(), uuid.New(), strings.ToLower(ext))
}

// Upload sends the staged file and removes it from local disk whether or not
// the upload succeeded.
func (s *S3Store) Upload(ctx context.Context, localPath string) (*Asset, error) {
	if localPath == "" {
		return nil, ErrNoFile
	}
	defer os.Remove(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open staged file: %v", ErrUpload, err)
	}
	defer f.Close()

	contentType, err := detectContentType(f, localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read staged file: %v", ErrUpload, err)
	}

	key := StorageKey(s.now(), filepath.Ext(localPath))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"original-filename": filepath.Base(localPath),
			"upload-time":       s.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: put object: %v", ErrUpload, err)
	}

	return &Asset{URL: s.publicURL + "/" + key, Key: key}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("media: delete object: %w", err)
	}
	return nil
}

func detectContentType(f *os.File, name string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct, nil
	}

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
