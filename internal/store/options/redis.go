package options

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

type Redis struct {
	client *redis.Client
	prefix string
}

var _ Store = (*Redis)(nil)

// NewRedis connects and pings once; callers fall back to Memory on error.
func NewRedis(ctx context.Context, conf RedisConfig) (*Redis, error) {
	opt, err := redis.ParseURL(conf.URL)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, pkgerrors.Wrap(err, "ping redis")
	}
	return &Redis{client: client, prefix: conf.Prefix}, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrapf(err, "redis get %s", key)
	}
	return true, sonic.Unmarshal(raw, dst)
}

func (r *Redis) Set(ctx context.Context, key string, v any) error {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return pkgerrors.Wrapf(r.client.Set(ctx, r.prefix+key, raw, 0).Err(), "redis set %s", key)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return pkgerrors.Wrapf(r.client.Del(ctx, r.prefix+key).Err(), "redis del %s", key)
}

func (r *Redis) Incr(ctx context.Context, key string, by int64) (int64, error) {
	n, err := r.client.IncrBy(ctx, r.prefix+key, by).Result()
	return n, pkgerrors.Wrapf(err, "redis incrby %s", key)
}
