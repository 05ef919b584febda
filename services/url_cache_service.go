package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// Entries leave the cache this long before the signed URL itself expires.
const cacheExpiryMargin = 10 * time.Minute

type URLCacheServiceProvider interface {
	GetReadURL(ctx context.Context, location string) (string, error)
}

// URLCacheService caches signed read URLs per storage location.
type URLCacheService struct {
	cache *cache.LoadableCache[string]
}

func cacheLifetime(ttl time.Duration) time.Duration {
	lifetime := ttl - cacheExpiryMargin
	if lifetime < ttl/2 {
		lifetime = ttl / 2
	}
	return lifetime
}

func NewURLCacheService(storageProvider StorageProvider, ttl time.Duration) (*URLCacheService, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)
	lifetime := cacheLifetime(ttl)

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		location, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("invalid key type provided to URL cache: expected string, got %T", key)
		}
		log.Printf("CACHE MISS for %s. Signing new read URL.", location)
		url, err := storageProvider.SignedReadURL(ctx, location, ttl)
		return url, []store.Option{store.WithExpiration(lifetime), store.WithCost(int64(len(url)))}, err
	}

	loadableCache := cache.NewLoadable[string](
		loadFunction,
		cache.New[string](ristrettoStore),
	)
	fmt.Println("Initialized URLCacheService with Ristretto cache!")
	return &URLCacheService{cache: loadableCache}, nil
}

func (s *URLCacheService) GetReadURL(ctx context.Context, location string) (string, error) {
	if location == "" {
		return "", nil
	}
	return s.cache.Get(ctx, location)
}
