// Package storage defines the persistence interface and its implementations.
package storage

import "context"

// Storage is the interface for all persistence operations.
type Storage interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// AddSubscriber registers a chat for alerts. It reports whether the chat
	// was newly added.
	AddSubscriber(ctx context.Context, chatID int64) (bool, error)
	// RemoveSubscriber unregisters a chat. It reports whether it was present.
	RemoveSubscriber(ctx context.Context, chatID int64) (bool, error)
	// ListSubscribers returns all registered chats in ascending order.
	ListSubscribers(ctx context.Context) ([]int64, error)

	Close() error
}
