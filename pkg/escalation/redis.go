// SPDX-FileCopyrightText: 2025 FinOps Cloud
// SPDX-License-Identifier: Apache-2.0

package escalation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/finopscloud/sla-engine/pkg/config"
)

// RedisTimerStore persists timers as JSON values under a key prefix so
// the escalation clock survives process restarts.
type RedisTimerStore struct {
	client *redis.Client
	prefix string
}

// NewRedisClient connects and pings the configured Redis instance.
func NewRedisClient(cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}

// NewRedisTimerStore wires a timer store around an established client.
func NewRedisTimerStore(client *redis.Client, prefix string) *RedisTimerStore {
	if prefix == "" {
		prefix = "sla:escalation:"
	}
	return &RedisTimerStore{client: client, prefix: prefix}
}

func (s *RedisTimerStore) key(taskID string) string {
	return s.prefix + taskID
}

func (s *RedisTimerStore) Get(ctx context.Context, taskID string) (*Timer, error) {
	raw, err := s.client.Get(ctx, s.key(taskID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read escalation timer for task %s", taskID)
	}
	var t Timer
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, errors.Wrapf(err, "corrupt escalation timer for task %s", taskID)
	}
	return &t, nil
}

func (s *RedisTimerStore) Put(ctx context.Context, t Timer) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return errors.Wrap(err, "failed to encode escalation timer")
	}
	if err := s.client.Set(ctx, s.key(t.TaskID), raw, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to persist escalation timer for task %s", t.TaskID)
	}
	return nil
}

func (s *RedisTimerStore) Delete(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, s.key(taskID)).Err(); err != nil {
		return errors.Wrapf(err, "failed to delete escalation timer for task %s", taskID)
	}
	return nil
}

// List scans all timer keys under the prefix. Keys with undecodable
// values are skipped rather than failing the whole listing.
func (s *RedisTimerStore) List(ctx context.Context) ([]Timer, error) {
	var out []Timer
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read escalation timer key %s", iter.Val())
		}
		var t Timer
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to scan escalation timer keys")
	}
	return out, nil
}
