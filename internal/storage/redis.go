package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const subscribersKey = "dashboard.subscribers"

// Redis implements Storage on a Redis server.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at addr and verifies it responds.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		MaxRetries:   3,
		PoolSize:     10,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

// Close closes the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key without expiry.
func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// AddSubscriber registers a chat for alerts.
func (r *Redis) AddSubscriber(ctx context.Context, chatID int64) (bool, error) {
	n, err := r.client.SAdd(ctx, subscribersKey, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("add subscriber: %w", err)
	}
	return n > 0, nil
}

// RemoveSubscriber unregisters a chat.
func (r *Redis) RemoveSubscriber(ctx context.Context, chatID int64) (bool, error) {
	n, err := r.client.SRem(ctx, subscribersKey, chatID).Result()
	if err != nil {
		return false, fmt.Errorf("remove subscriber: %w", err)
	}
	return n > 0, nil
}

// ListSubscribers returns all registered chats.
func (r *Redis) ListSubscribers(ctx context.Context) ([]int64, error) {
	members, err := r.client.SMembers(ctx, subscribersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
