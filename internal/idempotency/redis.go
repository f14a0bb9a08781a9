package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "idempotency:"

// RedisStore shares idempotency keys across every server instance. Responses are
// cached with SET and a TTL; the in-flight guard is a redislock lock on the key.
type RedisStore struct {
	client  *redis.Client
	locker  *redislock.Client
	ttl     time.Duration
	lockTTL time.Duration
	logger  *logrus.Logger
}

// NewRedisClient connects to addr and pings it once.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       0,
		PoolSize: 100,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore keeps responses for ttl. lockTTL bounds how long a crashed request can
// hold its key; it should exceed the transaction timeout.
func NewRedisStore(client *redis.Client, ttl, lockTTL time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		locker:  redislock.New(client),
		ttl:     ttl,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Response, error) {
	raw, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &resp, nil
}

func (s *RedisStore) Acquire(ctx context.Context, key string) (func(context.Context), error) {
	lock, err := s.locker.Obtain(ctx, "lock:"+keyPrefix+key, s.lockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("obtain idempotency lock: %w", err)
	}
	return func(ctx context.Context) {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			s.logger.WithFields(logrus.Fields{"idempotency_key": key}).Warn("failed to release idempotency lock: " + err.Error())
		}
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, resp Response) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("store idempotency key: %w", err)
	}
	return nil
}
