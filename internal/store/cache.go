package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"certverify/internal/certificate"
	"certverify/internal/logger"
)

const defaultKeyPrefix = "certverify:record:"

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// CachedStore is a read-through Redis cache in front of another RecordStore.
// Redis errors are logged and the underlying store is used instead.
type CachedStore struct {
	next   RecordStore
	client *redis.Client
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

// NewCachedStore caches lookups from next for ttl.
func NewCachedStore(next RecordStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:   next,
		client: client,
		ttl:    ttl,
		prefix: defaultKeyPrefix,
		log:    logger.WithComponent("cache"),
	}
}

// FindByCertificateID implements RecordStore.
func (c *CachedStore) FindByCertificateID(ctx context.Context, certificateID string) (*certificate.Record, error) {
	norm := certificate.Normalize(certificateID)
	if norm == "" {
		return nil, ErrRecordNotFound
	}
	key := c.prefix + norm

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec certificate.Record
		if jerr := json.Unmarshal(data, &rec); jerr == nil {
			return &rec, nil
		}
		c.log.Warn().Str("key", key).Msg("Discarding unreadable cache entry")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, using database")
	}

	rec, err := c.next.FindByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
		}
	}
	return rec, nil
}

// Invalidate drops the cached entry for certificateID.
func (c *CachedStore) Invalidate(ctx context.Context, certificateID string) error {
	return c.client.Del(ctx, c.prefix+certificate.Normalize(certificateID)).Err()
}
