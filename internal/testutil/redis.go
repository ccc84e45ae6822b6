package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Candidate addresses after REDIS_ADDR: the compose service name, a CI
// sidecar, then the local test profile.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

const redisDBLockPrefix = "folio:testutil:db_lock:"

func pingRedis(addr string) error {
	c := redis.NewClient(&redis.Options{Addr: addr})
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.Ping(ctx).Err()
}

func findRedis(t TB) (string, error) {
	t.Helper()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr, pingRedis(addr)
	}
	var last error
	for _, addr := range redisCandidates {
		if last = pingRedis(addr); last == nil {
			return addr, nil
		}
		t.Logf("redis not at %s: %v", addr, last)
	}
	return "", last
}

// reserveRedisDB picks a logical DB so packages running in parallel do not
// flush each other. Reservations live in DB 0, which tests never flush.
// TEST_REDIS_DB overrides the choice.
func reserveRedisDB(t TB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr})
	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for i := 1; i <= 15; i++ {
		key := redisDBLockPrefix + strconv.Itoa(i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, key, owner, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := meta.Del(ctx, key).Err(); err != nil {
				t.Logf("release %s: %v", key, err)
			}
			_ = meta.Close()
		})
		return i
	}
	_ = meta.Close()
	t.Logf("no free redis db at %s, sharing DB 1", addr)
	return 1
}

// SetupTestRedis returns a client on an emptied, reserved logical DB, or
// skips when Redis is unreachable.
func SetupTestRedis(t TB) *redis.Client {
	t.Helper()
	addr, err := findRedis(t)
	if err != nil {
		unavailable(t, requireRedis(), "redis", err)
		return nil
	}

	db := reserveRedisDB(t, addr)
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		unavailable(t, requireRedis(), "redis db "+strconv.Itoa(db), err)
		return nil
	}
	t.Logf("using redis %s db %d", addr, db)
	return client
}
