package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signingStorage struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *signingStorage) UploadBytes(ctx context.Context, data []byte, objectName string, mimeType string) (string, error) {
	return "gs://bucket/" + objectName, nil
}

func (s *signingStorage) SignedReadURL(ctx context.Context, location string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return "https://signed/" + strings.TrimPrefix(location, "gs://"), nil
}

type brokenCache struct{}

func (brokenCache) GetReadURL(ctx context.Context, location string) (string, error) {
	return "", errors.New("cache offline")
}

type closingStorage struct {
	signingStorage
	closed bool
}

func (c *closingStorage) Close() error {
	c.closed = true
	return nil
}

func TestCloseStorage(t *testing.T) {
	closing := &closingStorage{}
	require.NoError(t, CloseStorage(closing))
	assert.True(t, closing.closed)

	assert.NoError(t, CloseStorage(&signingStorage{}))
}

func TestParseStorageURI(t *testing.T) {
	loc, err := ParseStorageURI("gs://bucket/上衣/Tee.png")
	require.NoError(t, err)
	assert.Equal(t, StoredObjectLocation{Scheme: "gs", Bucket: "bucket", Object: "上衣/Tee.png"}, loc)
	assert.Equal(t, "gs://bucket/上衣/Tee.png", loc.String())

	for _, bad := range []string{"", "bucket/object", "https://example.com/a.png", "gs://bucket", "s3:///object"} {
		_, err := ParseStorageURI(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestMimeTypeForExtension(t *testing.T) {
	assert.Equal(t, "image/jpeg", MimeTypeForExtension(".jpg"))
	assert.Equal(t, "image/jpeg", MimeTypeForExtension(".JPEG"))
	assert.Equal(t, "image/png", MimeTypeForExtension(".png"))
	assert.Equal(t, "image/heic", MimeTypeForExtension(".heic"))
	assert.Equal(t, "image/xyz", MimeTypeForExtension(".xyz"))
}

func TestResolverPassesThroughNonCloudValues(t *testing.T) {
	storage := &signingStorage{}
	resolver := &ImageURLResolver{Storage: storage, TTL: time.Hour}

	url, err := resolver.Resolve(context.Background(), "https://cdn.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", url)

	url, err = resolver.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Equal(t, 0, storage.calls)
}

func TestResolverFallsBackWhenCacheFails(t *testing.T) {
	storage := &signingStorage{}
	resolver := &ImageURLResolver{Cache: brokenCache{}, Storage: storage, TTL: time.Hour}

	url, err := resolver.Resolve(context.Background(), "gs://bucket/上衣/Tee.png")

	require.NoError(t, err)
	assert.Equal(t, "https://signed/bucket/上衣/Tee.png", url)
	assert.Equal(t, 1, storage.calls)
}

func TestResolverReportsSigningFailure(t *testing.T) {
	resolver := &ImageURLResolver{Storage: &signingStorage{err: errors.New("no credentials")}, TTL: time.Hour}

	_, err := resolver.Resolve(context.Background(), "gs://bucket/a.png")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no credentials")
}

func TestURLCacheServiceLoadsThroughStorage(t *testing.T) {
	storage := &signingStorage{}
	cache, err := NewURLCacheService(storage, time.Hour)
	require.NoError(t, err)

	url, err := cache.GetReadURL(context.Background(), "gs://bucket/a.png")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/bucket/a.png", url)

	url, err = cache.GetReadURL(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestCacheLifetime(t *testing.T) {
	assert.Equal(t, 50*time.Minute, cacheLifetime(time.Hour))
	assert.Equal(t, 5*time.Minute, cacheLifetime(10*time.Minute))
}

func TestR2PresignRejectsForeignScheme(t *testing.T) {
	client := s3.New(s3.Options{
		Region:           "auto",
		EndpointResolver: s3.EndpointResolverFromURL("https://account.r2.cloudflarestorage.com"),
		Credentials:      credentials.NewStaticCredentialsProvider("key", "secret", ""),
	})
	r2 := &AWSService{S3Client: client, S3PresignClient: s3.NewPresignClient(client), bucket: "wardrobe"}

	url, err := r2.SignedReadURL(context.Background(), "s3://wardrobe/上衣/Tee.png", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Expires=900")
	assert.Contains(t, url, "wardrobe")

	_, err = r2.SignedReadURL(context.Background(), "gs://wardrobe/a.png", time.Minute)
	assert.Error(t, err)
}
