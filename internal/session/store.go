package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// Store holds the active session for a long-running process. Readers get the
// session value current at call time; a commit swaps in a new value and never
// mutates one that was handed out.
type Store struct {
	mu     sync.RWMutex
	commit sync.Mutex // serializes writers
	dir    string     // "" keeps the session in memory only
	sess   *Session
}

// NewStore returns an empty store persisting to dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Open restores a previously saved session, if any.
func (s *Store) Open() error {
	if s.dir == "" {
		return nil
	}
	sess, err := Load(s.dir)
	if errors.Is(err, errs.ErrNoDataLoaded) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	return nil
}

// Session returns the active session or errs.ErrNoDataLoaded.
func (s *Store) Session() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil, errs.ErrNoDataLoaded
	}
	return s.sess, nil
}

// Current returns the table operations should run on.
func (s *Store) Current() (*table.Table, error) {
	sess, err := s.Session()
	if err != nil {
		return nil, err
	}
	return sess.Current(), nil
}

// Replace starts a new session for t, discarding any previous one. The new session
// is saved over the old files; if that fails the previous session stays active.
func (s *Store) Replace(source string, t *table.Table) (*Session, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	sess := New(source, t, s.dir)
	if s.dir != "" {
		if err := sess.Save(); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	}
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	slog.Info("session loaded", "id", sess.ID, "source", source, "rows", t.NumRows(), "cols", t.NumCols())
	return sess, nil
}

// CommitCleaned runs build on the original table and, only if it succeeds, stores the
// result as the cleaned variant. At most one commit runs at a time; readers are never
// blocked while build runs.
func (s *Store) CommitCleaned(build func(original *table.Table) (*table.Table, error)) (*Session, error) {
	s.commit.Lock()
	defer s.commit.Unlock()

	cur, err := s.Session()
	if err != nil {
		return nil, err
	}
	cleaned, err := build(cur.Original)
	if err != nil {
		return nil, err
	}
	next := cur.WithCleaned(cleaned)
	if s.dir != "" {
		if err := next.Save(); err != nil {
			return nil, fmt.Errorf("save cleaned table: %w", err)
		}
	}
	s.mu.Lock()
	s.sess = next
	s.mu.Unlock()
	slog.Debug("cleaned table committed", "id", next.ID, "rows", cleaned.NumRows())
	return next, nil
}

// Clear drops the active session and its files.
func (s *Store) Clear() error {
	s.commit.Lock()
	defer s.commit.Unlock()
	if s.dir != "" {
		if err := Clear(s.dir); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()
	return nil
}
