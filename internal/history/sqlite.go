package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SQLiteStore keeps every collection in the history_entries table. Rows are
// ordered by their insertion sequence, newest first.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore returns a store backed by db. The schema comes from the
// migrations package.
func NewSQLiteStore(db *sql.DB, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{db: db, logger: logger, now: time.Now}
}

func (s *SQLiteStore) Load(ctx context.Context, c Collection) []Entry {
	const operation = "history.SQLiteStore.Load"

	entries := []Entry{}
	if !c.Valid() {
		return entries
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, created_at, snapshot
		FROM history_entries
		WHERE collection = ?
		ORDER BY seq DESC
	`, string(c))
	if err != nil {
		s.logger.Warn("history query failed, treating as empty",
			zap.String("operation", operation),
			zap.String("collection", string(c)),
			zap.Error(err))
		return entries
	}
	defer rows.Close()

	for rows.Next() {
		e, err := s.scan(rows)
		if err != nil {
			s.logger.Warn("skipping unreadable history row",
				zap.String("operation", operation),
				zap.String("collection", string(c)),
				zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("history rows iteration failed",
			zap.String("operation", operation),
			zap.String("collection", string(c)),
			zap.Error(err))
	}
	return entries
}

func (s *SQLiteStore) Get(ctx context.Context, c Collection, id string) (Entry, bool) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, created_at, snapshot
		FROM history_entries
		WHERE collection = ? AND id = ?
	`, string(c), id)

	e, err := s.scan(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("history get failed",
				zap.String("collection", string(c)),
				zap.String("id", id),
				zap.Error(err))
		}
		return Entry{}, false
	}
	return e, true
}

func (s *SQLiteStore) Save(ctx context.Context, c Collection, label string, snapshot any) (Entry, error) {
	const operation = "history.SQLiteStore.Save"

	if !c.Valid() {
		return Entry{}, fmt.Errorf("%s: %w: %q", operation, ErrUnknownCollection, c)
	}

	entry, err := newEntry(s.now(), label, snapshot)
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w", operation, err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO history_entries (id, collection, label, created_at, snapshot)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, string(c), entry.Label, entry.Timestamp.Format(time.RFC3339Nano), string(entry.Snapshot)); err != nil {
		return Entry{}, fmt.Errorf("%s: insert entry: %w", operation, err)
	}

	return entry, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, c Collection, id string) error {
	const operation = "history.SQLiteStore.Delete"

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM history_entries WHERE collection = ? AND id = ?
	`, string(c), id); err != nil {
		return fmt.Errorf("%s: delete entry: %w", operation, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scan(row rowScanner) (Entry, error) {
	var (
		e         Entry
		createdAt string
		snapshot  string
	)
	if err := row.Scan(&e.ID, &e.Label, &createdAt, &snapshot); err != nil {
		return Entry{}, err
	}
	if !json.Valid([]byte(snapshot)) {
		return Entry{}, fmt.Errorf("entry %s: snapshot is not valid JSON", e.ID)
	}
	e.Snapshot = json.RawMessage(snapshot)

	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		e.Timestamp = ts
	}
	return e, nil
}
