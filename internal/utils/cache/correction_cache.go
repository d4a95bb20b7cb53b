package cache

import (
	"Plant-Care-Backend/internal/utils"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultCorrectionTTL = 7 * 24 * time.Hour

type (
	// CorrectionCache fronts scans.corrected_response. The database column stays
	// the source of truth; a miss here never means "not corrected".
	CorrectionCache interface {
		Get(ctx context.Context, key string) ([]byte, bool, error)
		Set(ctx context.Context, key string, payload []byte) error
		Close() error
	}

	redisCorrectionCache struct {
		rdb *goredis.Client
		ttl time.Duration
	}

	nopCorrectionCache struct{}
)

// NewCorrectionCache connects to REDIS_ADDR, or returns a cache that always
// misses when Redis is not configured.
func NewCorrectionCache(ctx context.Context) (CorrectionCache, error) {
	addr := strings.TrimSpace(utils.GetConfig("REDIS_ADDR"))
	if addr == "" {
		return NopCorrectionCache(), nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    utils.GetConfig("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := time.Duration(utils.GetInt("CORRECTION_CACHE_TTL_HOURS", 0)) * time.Hour
	return NewRedisCorrectionCache(rdb, ttl), nil
}

func NewRedisCorrectionCache(rdb *goredis.Client, ttl time.Duration) CorrectionCache {
	if ttl <= 0 {
		ttl = DefaultCorrectionTTL
	}
	return &redisCorrectionCache{rdb: rdb, ttl: ttl}
}

func NopCorrectionCache() CorrectionCache {
	return nopCorrectionCache{}
}

func correctionKey(key string) string {
	return "plantcare:correction:" + key
}

func (c *redisCorrectionCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, correctionKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

func (c *redisCorrectionCache) Set(ctx context.Context, key string, payload []byte) error {
	return c.rdb.Set(ctx, correctionKey(key), payload, c.ttl).Err()
}

func (c *redisCorrectionCache) Close() error {
	return c.rdb.Close()
}

func (nopCorrectionCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (nopCorrectionCache) Set(context.Context, string, []byte) error        { return nil }
func (nopCorrectionCache) Close() error                                     { return nil }
