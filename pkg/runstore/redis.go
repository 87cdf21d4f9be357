package runstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "d2s:run"

// RedisStore implements Store on the deployment's Redis/Valkey cache service.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisConfig holds configuration for connecting to Redis.
type RedisConfig struct {
	Addr     string // host:port
	Password string // optional
	DB       int    // database number
	// TTL bounds how long records are kept; 0 keeps them forever.
	TTL time.Duration
}

// NewRedisStore creates a RedisStore with the given configuration.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func recordKey(specName string, startedAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, specName, startedAt.UnixNano())
}

func indexKey(specName string) string {
	return fmt.Sprintf("%s:index:%s", keyPrefix, specName)
}

// Save writes the record and registers it in the per-spec index,
// scored by start time so List can return newest first.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}

	key := recordKey(rec.SpecName, rec.StartedAt)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return err
	}

	return s.client.ZAdd(ctx, indexKey(rec.SpecName), redis.Z{
		Score:  float64(rec.StartedAt.UnixNano()),
		Member: key,
	}).Err()
}

// List returns records for a spec, newest first.
func (s *RedisStore) List(ctx context.Context, specName string, limit int) ([]Record, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	keys, err := s.client.ZRevRange(ctx, indexKey(specName), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			// Record expired but the index entry survived; drop it.
			s.client.ZRem(ctx, indexKey(specName), key)
			continue
		}
		if err != nil {
			return nil, err
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshaling record %s: %w", key, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// Last returns the most recent record for a spec.
func (s *RedisStore) Last(ctx context.Context, specName string) (*Record, error) {
	records, err := s.List(ctx, specName, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return &records[0], nil
}

// Close closes the connection to Redis.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
