package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "stackcost:history:"

// RedisStore keeps each collection as a Redis list of JSON encoded entries.
// LPUSH puts new entries at the head, so LRANGE returns them newest first.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisStore returns a store using client.
func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, logger: logger, now: time.Now}
}

func (s *RedisStore) key(c Collection) string {
	return redisKeyPrefix + string(c)
}

func (s *RedisStore) Load(ctx context.Context, c Collection) []Entry {
	entries := []Entry{}
	if !c.Valid() {
		return entries
	}

	for _, item := range s.rawItems(ctx, c) {
		entries = append(entries, item.entry)
	}
	return entries
}

func (s *RedisStore) Get(ctx context.Context, c Collection, id string) (Entry, bool) {
	return findEntry(s.Load(ctx, c), id)
}

func (s *RedisStore) Save(ctx context.Context, c Collection, label string, snapshot any) (Entry, error) {
	const operation = "history.RedisStore.Save"

	if !c.Valid() {
		return Entry{}, fmt.Errorf("%s: %w: %q", operation, ErrUnknownCollection, c)
	}

	entry, err := newEntry(s.now(), label, snapshot)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", operation, err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: marshal entry: %w", operation, err)
	}

	if err := s.client.LPush(ctx, s.key(c), data).Err(); err != nil {
		return Entry{}, fmt.Errorf("%s: push entry: %w", operation, err)
	}
	return entry, nil
}

func (s *RedisStore) Delete(ctx context.Context, c Collection, id string) error {
	const operation = "history.RedisStore.Delete"

	if !c.Valid() {
		return nil
	}

	for _, item := range s.rawItems(ctx, c) {
		if item.entry.ID != id {
			continue
		}
		if err := s.client.LRem(ctx, s.key(c), 1, item.raw).Err(); err != nil {
			return fmt.Errorf("%s: remove entry: %w", operation, err)
		}
		return nil
	}
	return nil
}

type redisItem struct {
	raw   string
	entry Entry
}

func (s *RedisStore) rawItems(ctx context.Context, c Collection) []redisItem {
	values, err := s.client.LRange(ctx, s.key(c), 0, -1).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("history list unreadable, treating as empty",
				zap.String("key", s.key(c)),
				zap.Error(err))
		}
		return nil
	}

	items := make([]redisItem, 0, len(values))
	for _, v := range values {
		var e Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			s.logger.Warn("skipping corrupt history item",
				zap.String("key", s.key(c)),
				zap.Error(err))
			continue
		}
		items = append(items, redisItem{raw: v, entry: e})
	}
	return items
}
