// Package chunkcache is a read-through Redis cache in front of chunk
// queries. Chunks never change after ingestion, so entries only expire to
// bound memory.
package chunkcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/abhisek/rounds/internal/logger"
	"github.com/abhisek/rounds/internal/metrics"
	"github.com/abhisek/rounds/internal/store"
)

const keyPrefix = "rounds:chunks:"

// Config configures the Redis connection. An empty Addr disables caching.
type Config struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Source is the uncached chunk query.
type Source interface {
	QueryChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, limit int) ([]store.Chunk, error)
	SearchChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, terms []string, limit int) ([]store.Chunk, error)
}

// Client is the subset of the Redis client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// Cache wraps a Source. Redis failures are logged and fall through to the
// source.
type Cache struct {
	rdb  Client
	next Source
	ttl  time.Duration
	log  *logger.Logger
}

func New(rdb Client, next Source, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{rdb: rdb, next: next, ttl: ttl, log: log.With("service", "ChunkCache")}
}

// Dial connects to Redis and verifies the connection.
func Dial(ctx context.Context, cfg Config) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (c *Cache) QueryChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, limit int) ([]store.Chunk, error) {
	return c.lookup(ctx, cacheKey(documentID, kinds, limit), func() ([]store.Chunk, error) {
		return c.next.QueryChunks(ctx, documentID, kinds, limit)
	})
}

func (c *Cache) SearchChunks(ctx context.Context, documentID string, kinds []store.ChunkKind, terms []string, limit int) ([]store.Chunk, error) {
	return c.lookup(ctx, searchKey(documentID, kinds, terms, limit), func() ([]store.Chunk, error) {
		return c.next.SearchChunks(ctx, documentID, kinds, terms, limit)
	})
}

func (c *Cache) lookup(ctx context.Context, key string, fetch func() ([]store.Chunk, error)) ([]store.Chunk, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var chunks []store.Chunk
		if jerr := json.Unmarshal(raw, &chunks); jerr == nil {
			metrics.ChunkCacheLookup("hit")
			return chunks, nil
		}
		c.log.Warn("discarding undecodable cache entry", "key", key)
		metrics.ChunkCacheLookup("error")
	case errors.Is(err, goredis.Nil):
		metrics.ChunkCacheLookup("miss")
	default:
		c.log.Warn("chunk cache get failed", "key", key, "error", err.Error())
		metrics.ChunkCacheLookup("error")
	}

	chunks, err := fetch()
	if err != nil || len(chunks) == 0 {
		return chunks, err
	}

	if payload, jerr := json.Marshal(chunks); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			c.log.Warn("chunk cache set failed", "key", key, "error", serr.Error())
		}
	}
	return chunks, nil
}

// cacheKey is independent of the order kinds are given in.
func cacheKey(documentID string, kinds []store.ChunkKind, limit int) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	slices.Sort(names)
	if len(names) == 0 {
		names = []string{"*"}
	}
	return fmt.Sprintf("%s%s:%s:%d", keyPrefix, documentID, strings.Join(names, ","), limit)
}

// searchKey extends cacheKey with the sorted search terms.
func searchKey(documentID string, kinds []store.ChunkKind, terms []string, limit int) string {
	sorted := slices.Clone(terms)
	slices.Sort(sorted)
	return cacheKey(documentID, kinds, limit) + ":q=" + strings.Join(sorted, ",")
}
