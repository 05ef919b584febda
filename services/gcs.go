package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"wardrobeapi/config"
)

// GCSService stores objects in Google Cloud Storage and signs V4 read URLs.
type GCSService struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
}

func NewGCSService(ctx context.Context, cfg config.StorageConfig, timeout time.Duration) (*GCSService, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	fmt.Println("[Storage] GCS client ready, bucket:", cfg.Bucket)
	return &GCSService{client: client, bucket: cfg.Bucket, timeout: timeout}, nil
}

func (g *GCSService) UploadBytes(ctx context.Context, data []byte, objectName string, mimeType string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", g.bucket, objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize gs://%s/%s: %w", g.bucket, objectName, err)
	}
	return StoredObjectLocation{Scheme: SchemeGCS, Bucket: g.bucket, Object: objectName}.String(), nil
}

func (g *GCSService) SignedReadURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	loc, err := ParseStorageURI(location)
	if err != nil {
		return "", err
	}
	if loc.Scheme != SchemeGCS {
		return "", fmt.Errorf("gcs cannot sign %s locations", loc.Scheme)
	}
	url, err := g.client.Bucket(loc.Bucket).SignedURL(loc.Object, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("storage: sign download url: %w", err)
	}
	return url, nil
}

var _ io.Closer = (*GCSService)(nil)

func (g *GCSService) Close() error {
	return g.client.Close()
}
