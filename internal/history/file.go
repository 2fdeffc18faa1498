package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileStore keeps each collection as a JSON array in its own file under dir.
// Writes go to a temporary file in the same directory that is renamed over the
// collection file, so a reader sees either the old or the new list.
type FileStore struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Path returns the file backing collection c.
func (s *FileStore) Path(c Collection) string {
	return filepath.Join(s.dir, string(c)+"_history.json")
}

func (s *FileStore) Load(_ context.Context, c Collection) []Entry {
	if !c.Valid() {
		return []Entry{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _ := s.read(c)
	return entries
}

func (s *FileStore) Get(ctx context.Context, c Collection, id string) (Entry, bool) {
	return findEntry(s.Load(ctx, c), id)
}

func (s *FileStore) Save(_ context.Context, c Collection, label string, snapshot any) (Entry, error) {
	if !c.Valid() {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}

	entry, err := newEntry(s.now(), label, snapshot)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.read(c)
	if !ok {
		if err := s.moveAside(c); err != nil {
			return Entry{}, err
		}
	}

	entries := append([]Entry{entry}, existing...)
	if err := s.write(c, entries); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *FileStore) Delete(_ context.Context, c Collection, id string) error {
	if !c.Valid() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, _ := s.read(c)
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.write(c, kept)
}

// read returns the stored entries. ok is false when the file exists but could
// not be read or parsed.
func (s *FileStore) read(c Collection) (entries []Entry, ok bool) {
	path := s.Path(c)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Entry{}, true
		}
		s.logger.Warn("history file unreadable, treating as empty",
			zap.String("path", path),
			zap.Error(err))
		return []Entry{}, false
	}

	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("history file corrupt, treating as empty",
			zap.String("path", path),
			zap.Error(err))
		return []Entry{}, false
	}
	if entries == nil {
		return []Entry{}, true
	}
	return entries, true
}

// moveAside renames an unusable collection file so the next write does not
// replace its contents.
func (s *FileStore) moveAside(c Collection) error {
	const operation = "history.FileStore.moveAside"

	path := s.Path(c)
	aside := path + ".corrupt-" + s.now().UTC().Format("20060102T150405.000000000")
	if err := os.Rename(path, aside); err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	s.logger.Warn("history file moved aside",
		zap.String("path", path),
		zap.String("moved_to", aside))
	return nil
}

func (s *FileStore) write(c Collection, entries []Entry) error {
	const operation = "history.FileStore.write"

	data, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return fmt.Errorf("%s: marshal entries: %w", operation, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(c)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: create temp file: %w", operation, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: write temp file: %w", operation, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%s: sync temp file: %w", operation, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%s: close temp file: %w", operation, err)
	}

	if err := os.Rename(tmpName, s.Path(c)); err != nil {
		return fmt.Errorf("%s: replace history file: %w", operation, err)
	}
	return nil
}
