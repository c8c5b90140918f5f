package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/retrace-dev/retrace/pkg/runstate"
)

// NewRunStateRegistry builds the live run state registry. An empty URL
// selects the in-memory registry; anything else must be a Redis URL.
func NewRunStateRegistry(redisURL string) (runstate.Registry, error) {
	if redisURL == "" {
		return runstate.NewMemoryRegistry(), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return runstate.NewRedisRegistry(redis.NewClient(opts)), nil
}
