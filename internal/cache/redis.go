package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the cache store at the given redis URL
func NewRedisStore(url string) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis url: %w", err)
	}
	return &redisStore{client: redis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client; used by tests
func NewRedisStoreFromClient(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) HMGet(ctx context.Context, key string, fields ...string) ([]*string, error) {
	vals, err := s.client.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*string, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected value type %T for field %s", v, fields[i])
		}
		out[i] = &str
	}
	return out, nil
}

func (s *redisStore) HSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *redisStore) HDel(ctx context.Context, key string, fields ...string) error {
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *redisStore) HScan(ctx context.Context, key string, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	// HSCAN returns alternating field/value pairs; callers only need fields
	pairs, next, err := s.client.HScan(ctx, key, cursor, pattern, count).Result()
	if err != nil {
		return nil, 0, err
	}
	fields := make([]string, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		fields = append(fields, pairs[i])
	}
	return fields, next, nil
}

func (s *redisStore) Pipeline() Pipe {
	return &redisPipe{pipe: s.client.TxPipeline()}
}

func (s *redisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

type redisPipe struct {
	pipe redis.Pipeliner
	size int
}

func (p *redisPipe) HSet(key, field, value string) {
	p.pipe.HSet(context.Background(), key, field, value)
	p.size++
}

func (p *redisPipe) HDel(key string, fields ...string) {
	p.pipe.HDel(context.Background(), key, fields...)
	p.size++
}

func (p *redisPipe) Exec(ctx context.Context) error {
	if p.size == 0 {
		return nil
	}
	_, err := p.pipe.Exec(ctx)
	return err
}
