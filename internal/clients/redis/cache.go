package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/envutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// Cache is a small key/value cache. Nothing stored here is authoritative: a miss
// or an error always falls back to the database.
type Cache interface {
	GetFlag(ctx context.Context, key string) (bool, error)
	SetFlag(ctx context.Context, key string, ttl time.Duration) error
	GetInt(ctx context.Context, key string) (int64, bool, error)
	SetInt(ctx context.Context, key string, v int64, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type cache struct {
	log    *logger.Logger
	rdb    *goredis.Client
	prefix string
}

// NewCacheFromEnv returns (nil, nil) when REDIS_ADDR is unset.
func NewCacheFromEnv(log *logger.Logger) (Cache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		if log != nil {
			log.Warn("REDIS_ADDR not set; cache disabled")
		}
		return nil, nil
	}
	return NewCache(log, &goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	}, envutil.String("REDIS_KEY_PREFIX", "resa:"))
}

func NewCache(log *logger.Logger, opts *goredis.Options, prefix string) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts == nil {
		return nil, fmt.Errorf("redis options required")
	}
	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &cache{
		log:    log.With("client", "RedisCache"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (c *cache) key(k string) string { return c.prefix + k }

func (c *cache) GetFlag(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *cache) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), "1", ttl).Err()
}

func (c *cache) GetInt(ctx context.Context, key string) (int64, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return v, true, nil
}

func (c *cache) SetInt(ctx context.Context, key string, v int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, c.key(key), strconv.FormatInt(v, 10), ttl).Err()
}

func (c *cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return c.rdb.Del(ctx, full...).Err()
}

func (c *cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
