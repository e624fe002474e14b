package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/classroom/internal/domain/picker"
	"github.com/okian/classroom/pkg/logger"
	"github.com/okian/classroom/pkg/metrics"
)

// RedisHistoryStore keeps each history as a JSON string under
// "<namespace>:<key>". Updates use WATCH/MULTI and retry on conflict.
type RedisHistoryStore struct {
	rdb  *redis.Client
	opts options
}

// NewRedisHistoryStore creates a store over a new client for redisOpts.
func NewRedisHistoryStore(redisOpts *redis.Options, opts ...Option) (*RedisHistoryStore, error) {
	if redisOpts == nil || redisOpts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	return &RedisHistoryStore{
		rdb:  redis.NewClient(redisOpts),
		opts: newOptions(opts),
	}, nil
}

// Ping verifies Redis connectivity.
func (s *RedisHistoryStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisHistoryStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisHistoryStore) key(k string) string {
	return s.opts.namespace + ":" + k
}

// Get returns the history under key. A missing key is an empty history; an
// undecodable payload is logged and read as empty.
func (s *RedisHistoryStore) Get(ctx context.Context, key string) (picker.PickHistory, error) {
	defer observe(BackendRedis, "get", time.Now())
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return picker.PickHistory{}, nil
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "redis_get")
		return nil, fmt.Errorf("failed to read history from Redis: %w", err)
	}
	return s.decode(ctx, key, data), nil
}

// Put replaces the history under key.
func (s *RedisHistoryStore) Put(ctx context.Context, key string, history picker.PickHistory) error {
	defer observe(BackendRedis, "put", time.Now())
	payload, err := picker.EncodeHistory(history)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.key(key), payload, s.opts.historyTTL).Err(); err != nil {
		return fmt.Errorf("failed to write history to Redis: %w", err)
	}
	return nil
}

// Update reads, transforms and writes key atomically.
func (s *RedisHistoryStore) Update(ctx context.Context, key string, fn func(picker.PickHistory) (picker.PickHistory, error)) (picker.PickHistory, error) {
	defer observe(BackendRedis, "update", time.Now())
	rk := s.key(key)
	var result picker.PickHistory

	txf := func(tx *redis.Tx) error {
		current := picker.PickHistory{}
		data, err := tx.Get(ctx, rk).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to read history from Redis: %w", err)
		default:
			current = s.decode(ctx, key, data)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		payload, err := picker.EncodeHistory(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, payload, s.opts.historyTTL)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for attempt := 0; attempt < s.opts.maxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, rk)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			metrics.RecordStoreConflict(BackendRedis)
			continue
		}
		return nil, err
	}
	metrics.RecordErrorByComponent("repository", "conflict")
	return nil, fmt.Errorf("update %s after %d attempts: %w", key, s.opts.maxRetries, ErrConflict)
}

// Delete removes key.
func (s *RedisHistoryStore) Delete(ctx context.Context, key string) error {
	defer observe(BackendRedis, "delete", time.Now())
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete history from Redis: %w", err)
	}
	return nil
}

func (s *RedisHistoryStore) decode(ctx context.Context, key string, data []byte) picker.PickHistory {
	h, err := picker.DecodeHistory(data)
	if err != nil {
		metrics.RecordStoreCorrupt(BackendRedis)
		s.opts.logger.Warn(ctx, "discarding corrupt history", logger.String("key", key), logger.Error(err))
		return picker.PickHistory{}
	}
	return h
}
