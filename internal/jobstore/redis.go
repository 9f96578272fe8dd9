package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis: a SET per job for state,
// an RPUSH list per job for events, both carrying their own expiry.
type RedisStore struct {
	client     *redis.Client
	jobTTL     time.Duration
	cleanupTTL time.Duration
}

// NewRedisStore builds a RedisStore. jobTTL bounds how long a pending
// or running job survives with no further writes; cleanupTTL is the
// shorter window a job is kept around for after it reaches a terminal
// state, just long enough for a lagging follower to catch the final
// event.
func NewRedisStore(client *redis.Client, jobTTL, cleanupTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, jobTTL: jobTTL, cleanupTTL: cleanupTTL}
}

func stateKey(jobID string) string  { return fmt.Sprintf("job:%s:state", jobID) }
func eventsKey(jobID string) string { return fmt.Sprintf("job:%s:events", jobID) }

func (s *RedisStore) Init(ctx context.Context, jobID string) error {
	return s.SetState(ctx, jobID, StatePending)
}

func (s *RedisStore) SetState(ctx context.Context, jobID string, state State) error {
	return s.client.Set(ctx, stateKey(jobID), string(state), s.jobTTL).Err()
}

func (s *RedisStore) GetState(ctx context.Context, jobID string) (State, error) {
	val, err := s.client.Get(ctx, stateKey(jobID)).Result()
	if err == redis.Nil {
		return StateUnknown, nil
	}
	if err != nil {
		return StateUnknown, err
	}
	return State(val), nil
}

func (s *RedisStore) Append(ctx context.Context, jobID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := eventsKey(jobID)
	if err := s.client.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.jobTTL).Err()
}

func (s *RedisStore) Since(ctx context.Context, jobID string, index int) ([]Event, error) {
	raw, err := s.client.LRange(ctx, eventsKey(jobID), int64(index), -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *RedisStore) Shorten(ctx context.Context, jobID string) error {
	if err := s.client.Expire(ctx, eventsKey(jobID), s.cleanupTTL).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, stateKey(jobID), s.cleanupTTL).Err()
}

// List scans job:*:state keys rather than tracking an index, trading a
// bit of Redis CPU for not having to maintain a second data structure
// that could drift from the per-job keys it would index.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "job:*:state", 100).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			if !strings.HasPrefix(key, "job:") || !strings.HasSuffix(key, ":state") {
				continue
			}
			jobID := strings.TrimSuffix(strings.TrimPrefix(key, "job:"), ":state")
			state, err := s.GetState(ctx, jobID)
			if err != nil {
				return nil, err
			}
			if state == StatePending || state == StateRunning {
				ids = append(ids, jobID)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
