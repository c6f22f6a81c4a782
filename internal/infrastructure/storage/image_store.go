// Package storage keeps avatar images in MinIO.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/99minutos/account-service/internal/core/domain"
)

const (
	MaxImageBytes = 4 << 20
	avatarSize    = 512
	avatarPrefix  = "avatars/"

	// maxDimension bounds the decoded bitmap independently of the byte size.
	maxDimension = 4096
)

var allowedTypes = map[string]imaging.Format{
	"image/jpeg": imaging.JPEG,
	"image/png":  imaging.PNG,
	"image/gif":  imaging.GIF,
}

var extensions = map[imaging.Format]string{
	imaging.JPEG: "jpg",
	imaging.PNG:  "png",
	imaging.GIF:  "gif",
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the base the returned URLs are built on. Defaults to the
	// endpoint itself.
	PublicURL string
}

type ImageStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewImageStore(cfg Config) (*ImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}

	return &ImageStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(public, "/") + "/" + cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if needed and lets anyone read avatars.
func (s *ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("bucket exists: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	return s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket))
}

// Ping is used by the readiness probe.
func (s *ImageStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// UploadImage validates, resizes and stores an avatar, returning its public
// URL.
func (s *ImageStore) UploadImage(ctx context.Context, r io.Reader, size int64) (string, error) {
	if size > MaxImageBytes {
		return "", domain.ErrImageTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return "", domain.ErrImageTooLarge
	}

	out, format, err := prepareImage(data)
	if err != nil {
		return "", err
	}

	key := avatarPrefix + uuid.NewString() + "." + extensions[format]
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(out), int64(len(out)), minio.PutObjectOptions{
		ContentType:  contentType(format),
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload image: %w", domain.ErrUpstream, err)
	}

	return s.PublicURL(key), nil
}

// BaseURL is the prefix every PublicURL starts with.
func (s *ImageStore) BaseURL() string {
	return s.publicURL
}

func (s *ImageStore) PublicURL(key string) string {
	return s.publicURL + "/" + (&url.URL{Path: key}).EscapedPath()
}

// prepareImage sniffs the content type, decodes the image and fits it into
// an avatarSize square, re-encoding in the original format.
func prepareImage(data []byte) ([]byte, imaging.Format, error) {
	format, ok := allowedTypes[http.DetectContentType(data)]
	if !ok {
		return nil, 0, domain.ErrInvalidImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return nil, 0, fmt.Errorf("%w: %dx%d exceeds %dpx", domain.ErrInvalidImage, cfg.Width, cfg.Height, maxDimension)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}
	b := img.Bounds()
	if b.Dx() > avatarSize || b.Dy() > avatarSize {
		img = imaging.Fit(img, avatarSize, avatarSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(85)); err != nil {
		return nil, 0, errors.Join(domain.ErrInvalidImage, err)
	}
	return buf.Bytes(), format, nil
}

func contentType(f imaging.Format) string {
	for ct, format := range allowedTypes {
		if format == f {
			return ct
		}
	}
	return "application/octet-stream"
}

func publicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`,
		bucket, avatarPrefix)
}
