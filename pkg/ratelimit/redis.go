package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const keyPrefix = "policy-decoder:ratelimit:"

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RedisLimiter is a fixed-window counter shared by every server instance.
type RedisLimiter struct {
	client    *redis.Client
	perMinute int
	logger    logger.Logger
	now       func() time.Time
}

func NewRedisLimiter(client *redis.Client, perMinute int, log logger.Logger) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		perMinute: perMinute,
		logger:    log.Named("ratelimit"),
		now:       time.Now,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.perMinute <= 0 {
		return true, nil
	}

	window := r.now().Unix() / int64(Window/time.Second)
	redisKey := keyPrefix + key + ":" + strconv.FormatInt(window, 10)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit counter: %w", err)
	}

	count := incr.Val()
	if count > int64(r.perMinute) {
		r.logger.Debug("Rate limit exceeded",
			logger.String("key", key),
			logger.Int64("count", count),
		)
		return false, nil
	}
	return true, nil
}

// Fallback tries primary and switches to secondary when primary errors.
type Fallback struct {
	Primary   Limiter
	Secondary Limiter
	Logger    logger.Logger
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := f.Primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	if f.Logger != nil {
		f.Logger.Warn("Primary rate limiter failed, using fallback", logger.Error(err))
	}
	return f.Secondary.Allow(ctx, key)
}
