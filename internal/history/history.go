// Package history persists calculation snapshots in named collections, newest first.
//
// Every backend follows the same contract: Load never fails (a missing or
// unreadable collection is an empty one), Save prepends a new immutable entry,
// and Delete of an unknown id is a no-op. Errors are only returned when a write
// could not be completed, in which case the previous contents are unchanged.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection names an independent history list.
type Collection string

const (
	// CollectionCost holds cost estimate snapshots.
	CollectionCost Collection = "cost"
	// CollectionYield holds strip yield snapshots.
	CollectionYield Collection = "yield"
)

// ErrUnknownCollection is returned when writing to a collection that does not exist.
var ErrUnknownCollection = errors.New("unknown history collection")

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	return c == CollectionCost || c == CollectionYield
}

// ParseCollection converts a path or CLI argument into a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
	}
	return c, nil
}

// Entry is one saved snapshot. Snapshot holds the full inputs and every derived
// value so that a report can be reproduced without recalculation.
type Entry struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Label     string          `json:"label"`
	Snapshot  json.RawMessage `json:"snapshot"`
}

// Store persists history collections.
type Store interface {
	Load(ctx context.Context, c Collection) []Entry
	Get(ctx context.Context, c Collection, id string) (Entry, bool)
	Save(ctx context.Context, c Collection, label string, snapshot any) (Entry, error)
	Delete(ctx context.Context, c Collection, id string) error
}

// Decode unmarshals an entry's snapshot into T.
func Decode[T any](e Entry) (T, error) {
	var v T
	if len(e.Snapshot) == 0 {
		return v, fmt.Errorf("decode snapshot %s: empty snapshot", e.ID)
	}
	if err := json.Unmarshal(e.Snapshot, &v); err != nil {
		return v, fmt.Errorf("decode snapshot %s: %w", e.ID, err)
	}
	return v, nil
}

// newEntry builds an entry with a UUIDv7 id. UUIDv7 ids are time ordered and
// sort lexically, and they stay unique for saves within the same millisecond.
func newEntry(now time.Time, label string, snapshot any) (Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, fmt.Errorf("generate entry id: %w", err)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal snapshot: %w", err)
	}

	return Entry{
		ID:        id.String(),
		Timestamp: now,
		Label:     label,
		Snapshot:  data,
	}, nil
}

func findEntry(entries []Entry, id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// legacyTimestampLayout is the minute-resolution timestamp of the first history file format.
const legacyTimestampLayout = "2006-01-02 15:04"

// UnmarshalJSON also reads entries of the first history file format, where the
// label was stored as tool_name, the timestamp used legacyTimestampLayout and the
// snapshot fields sat directly on the entry.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Timestamp string          `json:"timestamp"`
		Label     string          `json:"label"`
		ToolName  string          `json:"tool_name"`
		Snapshot  json.RawMessage `json:"snapshot"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Entry{ID: raw.ID, Label: raw.Label, Snapshot: raw.Snapshot}
	if out.Label == "" {
		out.Label = raw.ToolName
	}
	if out.Snapshot == nil {
		out.Snapshot = append(json.RawMessage(nil), data...)
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp); err == nil {
		out.Timestamp = ts
	} else if ts, err := time.ParseInLocation(legacyTimestampLayout, raw.Timestamp, time.Local); err == nil {
		out.Timestamp = ts
	}

	*e = out
	return nil
}
