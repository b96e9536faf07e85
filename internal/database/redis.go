package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pushp314/hackarena-backend/internal/config"
	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client
var Ctx = context.Background()

// ErrCacheDisabled is returned by cache helpers when Redis is not configured.
var ErrCacheDisabled = errors.New("redis not configured")

func InitRedis() {
	if config.AppConfig.RedisAddr == "" {
		log.Println("REDIS_ADDR not set. Caching and per-user throttling will use in-process fallbacks.")
		return
	}

	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Caching will be disabled.", err)
		Redis = nil
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// Rate Limiting
// CheckRateLimit reports whether key may perform another action inside the window.
// With Redis unavailable every call is allowed; the HTTP limiter still applies.
func CheckRateLimit(key string, limit int, window time.Duration) (bool, error) {
	if Redis == nil {
		return true, nil
	}
	k := fmt.Sprintf("rate_limit:%s", key)
	count, err := Redis.Incr(Ctx, k).Result()
	if err != nil {
		return false, err
	}

	if count == 1 {
		Redis.Expire(Ctx, k, window)
	}

	return count <= int64(limit), nil
}

// Caching
func CacheSet(key string, value interface{}, expiration time.Duration) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return Redis.Set(Ctx, key, data, expiration).Err()
}

func CacheGet(key string, dest interface{}) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	val, err := Redis.Get(Ctx, key).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func CacheDelete(keys ...string) error {
	if Redis == nil {
		return ErrCacheDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	return Redis.Del(Ctx, keys...).Err()
}

// Locking

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// TryLock takes a short-lived lock shared by every server instance.
// Without Redis there is only one instance, so the lock is always granted.
// The returned release func is safe to call when ok is false.
func TryLock(ctx context.Context, key string, ttl time.Duration) (ok bool, release func(), err error) {
	noop := func() {}
	if Redis == nil {
		return true, noop, nil
	}
	token := uuid.NewString()
	k := "lock:" + key
	ok, err = Redis.SetNX(ctx, k, token, ttl).Result()
	if err != nil || !ok {
		return false, noop, err
	}
	return true, func() {
		if err := releaseScript.Run(context.Background(), Redis, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			log.Printf("Failed to release lock %s: %v", k, err)
		}
	}, nil
}
