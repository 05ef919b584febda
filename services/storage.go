package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"wardrobeapi/config"
)

const (
	SchemeGCS = "gs"
	SchemeS3  = "s3"
)

// StorageProvider stores objects and issues time limited read URLs for them.
// Implementations must be safe for concurrent use.
type StorageProvider interface {
	// UploadBytes stores data under objectName and returns the durable
	// location, e.g. gs://bucket/objectName.
	UploadBytes(ctx context.Context, data []byte, objectName string, mimeType string) (string, error)
	SignedReadURL(ctx context.Context, location string, ttl time.Duration) (string, error)
}

// StoredObjectLocation is a parsed durable location.
type StoredObjectLocation struct {
	Scheme string
	Bucket string
	Object string
}

func (l StoredObjectLocation) String() string {
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Object)
}

// ParseStorageURI splits scheme://bucket/object. Only cloud storage schemes
// are accepted.
func ParseStorageURI(uri string) (StoredObjectLocation, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return StoredObjectLocation{}, fmt.Errorf("not a storage uri: %q", uri)
	}
	if scheme != SchemeGCS && scheme != SchemeS3 {
		return StoredObjectLocation{}, fmt.Errorf("unsupported storage scheme %q", scheme)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return StoredObjectLocation{}, fmt.Errorf("storage uri needs bucket and object: %q", uri)
	}
	return StoredObjectLocation{Scheme: scheme, Bucket: bucket, Object: object}, nil
}

func IsCloudStorageURI(uri string) bool {
	return strings.HasPrefix(uri, SchemeGCS+"://") || strings.HasPrefix(uri, SchemeS3+"://")
}

var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// MimeTypeForExtension derives a MIME type from a lowercase extension with
// the leading dot. Unknown extensions map to image/<ext>.
func MimeTypeForExtension(ext string) string {
	ext = strings.ToLower(ext)
	if m, ok := imageMimeTypes[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return m
	}
	return "image/" + strings.TrimPrefix(ext, ".")
}

// ImageURLResolver turns stored locations into URLs a client can open.
type ImageURLResolver struct {
	Cache   URLCacheServiceProvider
	Storage StorageProvider
	TTL     time.Duration
}

// Resolve returns a signed URL for cloud locations and passes any other
// value through. Cache failures fall back to signing directly.
func (r *ImageURLResolver) Resolve(ctx context.Context, location string) (string, error) {
	if location == "" {
		return "", nil
	}
	if !IsCloudStorageURI(location) {
		return location, nil
	}
	if r.Cache != nil {
		url, err := r.Cache.GetReadURL(ctx, location)
		if err == nil {
			return url, nil
		}
		log.Printf("CACHE WARNING: Cache system failed for '%s': %v. Signing directly.", location, err)
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("failure_type", "cache_system")
			scope.SetExtra("location", location)
			sentry.CaptureException(err)
		})
	}
	url, err := r.Storage.SignedReadURL(ctx, location, r.TTL)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", location, err)
	}
	return url, nil
}

// NewStorageProvider builds the backend selected by STORAGE_PROVIDER.
// CloseStorage releases the provider's client when it holds one.
func CloseStorage(provider StorageProvider) error {
	if closer, ok := provider.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func NewStorageProvider(ctx context.Context, cfg *config.Config) (StorageProvider, error) {
	switch cfg.Storage.Provider {
	case config.StorageGCS:
		gcs, err := NewGCSService(ctx, cfg.Storage, cfg.Timeouts.Storage)
		if err != nil {
			return nil, err
		}
		return gcs, nil
	case config.StorageR2:
		r2, err := NewAWSService(ctx, cfg.Storage, cfg.Timeouts.Storage)
		if err != nil {
			return nil, err
		}
		return r2, nil
	}
	return nil, fmt.Errorf("unsupported storage provider %q", cfg.Storage.Provider)
}
