package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "retrace:run:"
	// stateTTL bounds how long a crashed run's state lingers.
	stateTTL = 24 * time.Hour
)

// RedisRegistry stores run state in Redis so the API process can observe
// runs executed elsewhere.
type RedisRegistry struct {
	client *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) key(runID string) string {
	return keyPrefix + runID
}

func (r *RedisRegistry) Put(ctx context.Context, state *State) error {
	copied := *state
	copied.UpdatedAt = time.Now()

	data, err := json.Marshal(&copied)
	if err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}

	return r.client.Set(ctx, r.key(state.RunID), data, stateTTL).Err()
}

func (r *RedisRegistry) Get(ctx context.Context, runID string) (*State, error) {
	data, err := r.client.Get(ctx, r.key(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}

	if err != nil {
		return nil, err
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decoding run state: %w", err)
	}

	return state, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, runID string) error {
	return r.client.Del(ctx, r.key(runID)).Err()
}

func (r *RedisRegistry) Active(ctx context.Context) ([]*State, error) {
	var (
		states []*State
		cursor uint64
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			state, err := r.Get(ctx, key[len(keyPrefix):])
			if errors.Is(err, ErrStateNotFound) {
				continue
			}

			if err != nil {
				return nil, err
			}

			states = append(states, state)
		}

		cursor = next
		if cursor == 0 {
			return states, nil
		}
	}
}
