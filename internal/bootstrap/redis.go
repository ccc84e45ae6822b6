package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/target/folio/config"
)

type redisMode int

const (
	redisDirect redisMode = iota
	redisSentinel
	redisCluster
)

func (m redisMode) String() string {
	switch m {
	case redisSentinel:
		return "sentinel"
	case redisCluster:
		return "cluster"
	default:
		return "direct"
	}
}

// redisOptions folds RedisConfig into UniversalOptions. REDIS_URI may be a
// bare host:port or a redis:// URL; a URL's credentials and TLS settings win
// over REDIS_PASSWORD.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, redisMode, error) {
	opts := &redis.UniversalOptions{Password: cfg.Password}

	switch {
	case cfg.UseCluster:
		opts.Addrs = trimmed(cfg.ClusterNodes)
		if len(opts.Addrs) == 0 {
			if err := applyURI(opts, cfg.URI); err != nil {
				return nil, redisCluster, err
			}
		}
		if len(opts.Addrs) == 0 {
			return nil, redisCluster, errors.New("redis cluster needs REDIS_CLUSTER_NODES or REDIS_URI")
		}
		return opts, redisCluster, nil

	case cfg.UseSentinel:
		opts.Addrs = trimmed(cfg.SentinelNodes)
		if len(opts.Addrs) == 0 {
			return nil, redisSentinel, errors.New("redis sentinel needs REDIS_SENTINEL_NODES")
		}
		opts.MasterName = cfg.SentinelMasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, redisSentinel, nil

	default:
		if err := applyURI(opts, cfg.URI); err != nil {
			return nil, redisDirect, err
		}
		if len(opts.Addrs) == 0 {
			return nil, redisDirect, errors.New("redis needs REDIS_URI")
		}
		return opts, redisDirect, nil
	}
}

func applyURI(opts *redis.UniversalOptions, raw string) error {
	uri := strings.TrimSpace(raw)
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}
	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse REDIS_URI: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.Username = parsed.Username
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	opts.DB = parsed.DB
	opts.TLSConfig = parsed.TLSConfig
	return nil
}

func trimmed(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConnectRedis builds a direct, sentinel or cluster client from cfg and
// waits for a ping.
//
//nolint:ireturn // the concrete client type depends on configuration.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, mode, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	switch mode {
	case redisCluster:
		client = redis.NewClusterClient(opts.Cluster())
	case redisSentinel:
		client = redis.NewFailoverClient(opts.Failover())
	default:
		client = redis.NewClient(opts.Simple())
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), client.Close())
	}

	if logger != nil {
		// Addrs never carry credentials once parsed.
		logger.InfoContext(ctx, "redis connected", "mode", mode.String(), "addrs", strings.Join(opts.Addrs, ","))
	}
	return client, nil
}
