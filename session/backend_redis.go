package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisBackend stores slots as plain keys "<namespace>:<slot>".
type RedisBackend struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisBackend creates a backend using client. The client is not closed by the backend.
func NewRedisBackend(client redis.UniversalClient, namespace string) *RedisBackend {
	return &RedisBackend{
		redis:  client,
		prefix: namespace,
	}
}

func (r *RedisBackend) key(slot Slot) string {
	return r.prefix + ":" + string(slot)
}

func (r *RedisBackend) Get(ctx context.Context, slot Slot) ([]byte, error) {
	data, err := r.redis.Get(ctx, r.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return data, nil
}

func (r *RedisBackend) Set(ctx context.Context, slot Slot, value []byte) error {
	if err := r.redis.Set(ctx, r.key(slot), value, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// SetAll writes every value inside one MULTI/EXEC block.
func (r *RedisBackend) SetAll(ctx context.Context, values []SlotValue) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, v := range values {
			pipe.Set(ctx, r.key(v.Slot), v.Value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, slots ...Slot) error {
	if len(slots) == 0 {
		return nil
	}
	keys := make([]string, 0, len(slots))
	for _, slot := range slots {
		keys = append(keys, r.key(slot))
	}
	if err := r.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
