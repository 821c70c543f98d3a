package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"travelguide.io/guestbook/internal/domain"
)

var redisWindowPrefix = "ratewindow/"

// RedisStore keeps each window in a hash that expires at the end of the window.
type RedisStore struct {
	Client *redis.Client
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, identity string, kind domain.ActionKind) (*domain.RateWindow, error) {
	vals, err := s.Client.HGetAll(ctx, redisWindowPrefix+windowKey(identity, kind)).Result()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, nil
	}
	start, err := strconv.ParseInt(vals["start"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse window start: %w", err)
	}
	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return nil, fmt.Errorf("parse window count: %w", err)
	}
	return &domain.RateWindow{
		Identity:    identity,
		ActionKind:  kind,
		WindowStart: time.UnixMilli(start).UTC(),
		Count:       count,
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, w domain.RateWindow, expiresAt time.Time) error {
	key := redisWindowPrefix + windowKey(w.Identity, w.ActionKind)

	// write and expire in a single round-trip
	multi := s.Client.TxPipeline()
	multi.HSet(ctx, key, "start", w.WindowStart.UnixMilli(), "count", w.Count)
	multi.ExpireAt(ctx, key, expiresAt)
	_, err := multi.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, identity string, kind domain.ActionKind) error {
	return s.Client.Del(ctx, redisWindowPrefix+windowKey(identity, kind)).Err()
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStore) Close() error {
	return s.Client.Close()
}
