package history

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/stackcost/internal/db"
	"github.com/Simplici0/stackcost/internal/migrations"
)

type snapshot struct {
	Tool  string  `json:"tool"`
	Total float64 `json:"total"`
}

func newFileStore(t *testing.T) Store {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "history-test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.Up(database))
	return NewSQLiteStore(database, nil)
}

func newRedisStore(t *testing.T) Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	ctx := context.Background()
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})
	return NewRedisStore(client, nil)
}

var backends = map[string]func(t *testing.T) Store{
	"file":   newFileStore,
	"sqlite": newSQLiteStore,
	"redis":  newRedisStore,
}

func ids(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestStore_SaveOrderAndDelete(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			e1, err := s.Save(ctx, CollectionCost, "first", snapshot{Tool: "A", Total: 1})
			require.NoError(t, err)
			e2, err := s.Save(ctx, CollectionCost, "second", snapshot{Tool: "B", Total: 2})
			require.NoError(t, err)
			e3, err := s.Save(ctx, CollectionCost, "third", snapshot{Tool: "C", Total: 3})
			require.NoError(t, err)

			loaded := s.Load(ctx, CollectionCost)
			require.Len(t, loaded, 3)
			assert.Equal(t, []string{e3.ID, e2.ID, e1.ID}, ids(loaded))
			assert.Equal(t, "third", loaded[0].Label)

			require.NoError(t, s.Delete(ctx, CollectionCost, e2.ID))
			assert.Equal(t, []string{e3.ID, e1.ID}, ids(s.Load(ctx, CollectionCost)))

			require.NoError(t, s.Delete(ctx, CollectionCost, "no-such-id"))
			assert.Len(t, s.Load(ctx, CollectionCost), 2)
		})
	}
}

func TestStore_EmptyCollection(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			loaded := s.Load(context.Background(), CollectionYield)
			assert.NotNil(t, loaded)
			assert.Empty(t, loaded)

			_, ok := s.Get(context.Background(), CollectionYield, "missing")
			assert.False(t, ok)
		})
	}
}

func TestStore_CollectionsAreIndependent(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			cost, err := s.Save(ctx, CollectionCost, "cost", snapshot{Tool: "A"})
			require.NoError(t, err)
			yieldEntry, err := s.Save(ctx, CollectionYield, "yield", snapshot{Tool: "B"})
			require.NoError(t, err)

			assert.Equal(t, []string{cost.ID}, ids(s.Load(ctx, CollectionCost)))
			assert.Equal(t, []string{yieldEntry.ID}, ids(s.Load(ctx, CollectionYield)))

			require.NoError(t, s.Delete(ctx, CollectionYield, cost.ID))
			assert.Len(t, s.Load(ctx, CollectionCost), 1)
		})
	}
}

func TestStore_GetDecodesSnapshot(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			saved, err := s.Save(ctx, CollectionCost, "job", snapshot{Tool: "AL-1", Total: 260.75})
			require.NoError(t, err)

			got, ok := s.Get(ctx, CollectionCost, saved.ID)
			require.True(t, ok)
			assert.Equal(t, "job", got.Label)
			assert.True(t, saved.Timestamp.Equal(got.Timestamp))

			snap, err := Decode[snapshot](got)
			require.NoError(t, err)
			assert.Equal(t, snapshot{Tool: "AL-1", Total: 260.75}, snap)
		})
	}
}

func TestStore_IDsAreUniqueForRapidSaves(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			seen := map[string]bool{}
			for i := 0; i < 50; i++ {
				e, err := s.Save(ctx, CollectionYield, "burst", snapshot{Total: float64(i)})
				require.NoError(t, err)
				require.False(t, seen[e.ID], "duplicate id %s", e.ID)
				seen[e.ID] = true
			}
			assert.Len(t, s.Load(ctx, CollectionYield), 50)
		})
	}
}

func TestStore_UnknownCollection(t *testing.T) {
	s := newFileStore(t)

	_, err := s.Save(context.Background(), Collection("batches"), "x", snapshot{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.Empty(t, s.Load(context.Background(), Collection("batches")))
}

func TestFileStore_CorruptFileLoadsEmpty(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(CollectionCost), []byte("{not json"), 0o644))

	assert.Empty(t, s.Load(context.Background(), CollectionCost))

	e, err := s.Save(context.Background(), CollectionCost, "fresh", snapshot{Tool: "A"})
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, ids(s.Load(context.Background(), CollectionCost)))
}

func TestFileStore_SaveKeepsCorruptFileAside(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(CollectionCost), []byte("{not json"), 0o644))

	_, err = s.Save(context.Background(), CollectionCost, "fresh", snapshot{Tool: "A"})
	require.NoError(t, err)

	aside, err := filepath.Glob(s.Path(CollectionCost) + ".corrupt-*")
	require.NoError(t, err)
	require.Len(t, aside, 1)
	data, err := os.ReadFile(aside[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
	assert.Len(t, s.Load(context.Background(), CollectionCost), 1)
}

func TestFileStore_WritesLeaveNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	e, err := s.Save(context.Background(), CollectionCost, "a", snapshot{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(context.Background(), CollectionCost, e.ID))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "cost_history.json", files[0].Name())
}

func TestFileStore_ReadsFirstHistoryFormat(t *testing.T) {
	s, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	legacy := `[
		{
			"id": "20240105103000",
			"timestamp": "2024-01-05 10:30",
			"tool_name": "AL-102517A Combo",
			"common_inputs": {"yield_pct": 31.97},
			"components_data": []
		}
	]`
	require.NoError(t, os.WriteFile(s.Path(CollectionCost), []byte(legacy), 0o644))

	loaded := s.Load(context.Background(), CollectionCost)
	require.Len(t, loaded, 1)

	e := loaded[0]
	assert.Equal(t, "20240105103000", e.ID)
	assert.Equal(t, "AL-102517A Combo", e.Label)
	assert.Equal(t, 2024, e.Timestamp.Year())
	assert.Equal(t, 30, e.Timestamp.Minute())

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(e.Snapshot, &body))
	assert.Contains(t, body, "common_inputs")
	assert.Contains(t, body, "components_data")

	next, err := s.Save(context.Background(), CollectionCost, "new", snapshot{})
	require.NoError(t, err)
	assert.Equal(t, []string{next.ID, "20240105103000"}, ids(s.Load(context.Background(), CollectionCost)))
}

func TestSQLiteStore_MissingTableLoadsEmpty(t *testing.T) {
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "bare.db"), nil)
	require.NoError(t, err)
	defer database.Close()

	s := NewSQLiteStore(database, nil)
	assert.Empty(t, s.Load(context.Background(), CollectionCost))

	_, err = s.Save(context.Background(), CollectionCost, "x", snapshot{})
	assert.Error(t, err)
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection("yield")
	require.NoError(t, err)
	assert.Equal(t, CollectionYield, c)

	_, err = ParseCollection("batches")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
