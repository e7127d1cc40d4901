package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Storage is the append-only backend for the transaction log.
type Storage interface {
	// Append adds one transaction to the end of the log.
	Append(ctx context.Context, tx CostTransaction) error

	// List returns all transactions in append order.
	List(ctx context.Context) ([]CostTransaction, error)
}

// MemoryStorage keeps the transaction log in process memory.
type MemoryStorage struct {
	mu  sync.RWMutex
	txs []CostTransaction
}

// NewMemoryStorage creates an empty in-memory transaction log.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Append adds a transaction to the in-memory log.
func (s *MemoryStorage) Append(ctx context.Context, tx CostTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, tx)
	return nil
}

// List returns a copy of the log in append order.
func (s *MemoryStorage) List(ctx context.Context) ([]CostTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CostTransaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

// RedisStorage persists the transaction log in a Redis list so the log
// survives restarts and can be shared with external reporting tools.
//
// Redis data structure:
//   - Key: "<prefix>:transactions"
//   - Type: List (RPUSH preserves append order)
//   - Value: JSON-encoded CostTransaction
//
// Example:
//
//	store, err := ledger.NewRedisStorage("redis://localhost:6379", "crewkit:ledger")
//	led, err := ledger.New(ledger.Config{DailyBudgetUSD: 10, Storage: store})
type RedisStorage struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStorage creates a Redis-backed transaction log.
func NewRedisStorage(redisURL, keyPrefix string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	if keyPrefix == "" {
		keyPrefix = "crewkit:ledger"
	}
	return &RedisStorage{
		client:    redis.NewClient(opts),
		keyPrefix: keyPrefix,
	}, nil
}

func (s *RedisStorage) key() string {
	return s.keyPrefix + ":transactions"
}

// Append writes a transaction to the end of the Redis list.
func (s *RedisStorage) Append(ctx context.Context, tx CostTransaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("serializing transaction: %w", err)
	}
	if err := s.client.RPush(ctx, s.key(), payload).Err(); err != nil {
		return fmt.Errorf("appending transaction to redis: %w", err)
	}
	return nil
}

// List reads the full log back in append order.
func (s *RedisStorage) List(ctx context.Context) ([]CostTransaction, error) {
	raw, err := s.client.LRange(ctx, s.key(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading transaction log from redis: %w", err)
	}
	txs := make([]CostTransaction, 0, len(raw))
	for _, item := range raw {
		var tx CostTransaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			return nil, fmt.Errorf("decoding transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// Close releases the Redis connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
