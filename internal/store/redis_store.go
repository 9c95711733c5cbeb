package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"landwatch/internal/land"
)

// RedisStore implements StateStore on top of a Redis connection, matching
// the key layout `app:land:{n}:state`, aggregate hash `app:lands:states`,
// and channel `app:lands:states:channel`.
type RedisStore struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisStore dials redisURL and verifies connectivity before returning.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("store: invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis unreachable: %w", err)
	}

	return &RedisStore{
		client: client,
		logger: log.New(log.Writer(), "store: ", log.LstdFlags),
	}, nil
}

func (s *RedisStore) Put(ctx context.Context, l land.Id, snap land.CachedSnapshot, ttlSeconds int) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	ttl := time.Duration(ttlSeconds) * time.Second

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, landKey(l), payload, ttl)
	pipe.HSet(ctx, aggregateKey, strconv.Itoa(int(l)), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: put land %d: %w", l, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, l land.Id) (*land.CachedSnapshot, error) {
	raw, err := s.client.Get(ctx, landKey(l)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get land %d: %w", l, err)
	}
	var snap land.CachedSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("store: decode land %d: %w", l, err)
	}
	return &snap, nil
}

func (s *RedisStore) Keys(ctx context.Context) ([]land.Id, error) {
	keys, err := s.client.Keys(ctx, landKeyPrefix+"*"+landKeySuffix).Result()
	if err != nil {
		return nil, fmt.Errorf("store: keys: %w", err)
	}
	out := make([]land.Id, 0, len(keys))
	for _, k := range keys {
		trimmed := strings.TrimPrefix(k, landKeyPrefix)
		trimmed = strings.TrimSuffix(trimmed, landKeySuffix)
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			continue
		}
		out = append(out, land.Id(n))
	}
	return out, nil
}

// CachedLandIds reads the `app:lands:states` aggregate hash written by Put,
// rather than scanning individual per-land keys.
func (s *RedisStore) CachedLandIds(ctx context.Context) ([]land.Id, error) {
	fields, err := s.client.HKeys(ctx, aggregateKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store: cached land ids: %w", err)
	}
	out := make([]land.Id, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			continue
		}
		out = append(out, land.Id(n))
	}
	return out, nil
}

func (s *RedisStore) Publish(ctx context.Context, event land.UpdateEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("store: encode update event: %w", err)
	}
	if err := s.client.Publish(ctx, updateChannel, payload).Err(); err != nil {
		return fmt.Errorf("store: publish land %d: %w", event.LandNumber, err)
	}
	return nil
}

func (s *RedisStore) Subscribe(ctx context.Context) (<-chan land.UpdateEvent, error) {
	pubsub := s.client.Subscribe(ctx, updateChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("store: subscribe: %w", err)
	}

	out := make(chan land.UpdateEvent, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event land.UpdateEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.Printf("dropping malformed update event: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
