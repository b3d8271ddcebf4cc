package store

import (
	"context"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xkilldash9x/slidejig/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisOptions configures RedisStore.
type RedisOptions struct {
	Key string
	// MaxLen caps the list; older records are trimmed.
	MaxLen int64
	// TTL expires the whole list after the last write. Zero keeps it forever.
	TTL time.Duration
}

// RedisStore keeps the most recent attempts in a capped redis list.
type RedisStore struct {
	client *redis.Client
	opts   RedisOptions
	log    *zap.Logger
}

var _ Recorder = (*RedisStore)(nil)

// NewRedis pings the server and returns a store writing to opts.Key.
func NewRedis(ctx context.Context, client *redis.Client, opts RedisOptions, logger *zap.Logger) (*RedisStore, error) {
	if opts.Key == "" {
		opts.Key = "slidejig:attempts"
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = 1000
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &RedisStore{client: client, opts: opts, log: logger.Named("store.redis")}, nil
}

func (s *RedisStore) Record(ctx context.Context, rec schemas.AttemptRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode attempt %s: %w", rec.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.opts.Key, payload)
	pipe.LTrim(ctx, s.opts.Key, 0, s.opts.MaxLen-1)
	if s.opts.TTL > 0 {
		pipe.Expire(ctx, s.opts.Key, s.opts.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record attempt %s: %w", rec.ID, err)
	}
	s.log.Debug("Recorded attempt", zap.String("id", rec.ID), zap.String("outcome", string(rec.Outcome)))
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, limit int) ([]schemas.AttemptRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := s.client.LRange(ctx, s.opts.Key, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read attempts: %w", err)
	}
	out := make([]schemas.AttemptRecord, 0, len(raw))
	for _, item := range raw {
		var rec schemas.AttemptRecord
		if err := json.UnmarshalFromString(item, &rec); err != nil {
			s.log.Warn("Skipping undecodable attempt record", zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
