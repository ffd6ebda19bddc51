// Package session keeps the active dataset: the table as loaded, the latest cleaned
// variant, and their on-disk copy.
package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/ingest"
	"github.com/KaramelBytes/datapro-cli/internal/table"
	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

const (
	metaFileName     = "session.json"
	originalFileName = "original.csv"
	cleanedFileName  = "cleaned.csv"
)

// ErrNoCleanedData reports an export of a session that was never cleaned.
var ErrNoCleanedData = fmt.Errorf("no cleaned data to export: %w", errs.ErrNoDataLoaded)

// Session is one loaded dataset. Tables are treated as read-only once attached.
type Session struct {
	ID            string        `json:"id"`
	SourceName    string        `json:"source_name"`
	Schema        []table.Field `json:"schema"`
	CleanedSchema []table.Field `json:"cleaned_schema,omitempty"`
	Rows          int           `json:"rows"`
	CleanedRows   int           `json:"cleaned_rows,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Original *table.Table `json:"-"`
	Cleaned  *table.Table `json:"-"`

	rootDir       string
	originalSaved bool
}

// New starts a session for a freshly ingested table. Call Save to persist it.
func New(source string, t *table.Table, dir string) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		SourceName: source,
		Schema:     t.Schema(),
		Rows:       t.NumRows(),
		CreatedAt:  now,
		UpdatedAt:  now,
		Original:   t,
		rootDir:    dir,
	}
}

// RootDir returns the directory the session persists to.
func (s *Session) RootDir() string { return s.rootDir }

// Current is the table downstream operations run on: the cleaned variant if any.
func (s *Session) Current() *table.Table {
	if s.Cleaned != nil {
		return s.Cleaned
	}
	return s.Original
}

// HasCleaned reports whether a cleaned variant exists.
func (s *Session) HasCleaned() bool { return s.Cleaned != nil }

// WithCleaned returns a copy of s carrying t as its cleaned variant.
func (s *Session) WithCleaned(t *table.Table) *Session {
	out := *s
	out.Cleaned = t
	out.CleanedSchema = t.Schema()
	out.CleanedRows = t.NumRows()
	out.UpdatedAt = time.Now()
	return &out
}

// Load reads the session stored in dir. A directory without a session yields
// errs.ErrNoDataLoaded.
func Load(dir string) (*Session, error) {
	b, err := os.ReadFile(filepath.Join(dir, metaFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.ErrNoDataLoaded
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	s.rootDir = dir
	s.Original, err = readTable(filepath.Join(dir, originalFileName), s.SourceName, s.Schema)
	if err != nil {
		return nil, fmt.Errorf("load original table: %w", err)
	}
	s.originalSaved = true
	if len(s.CleanedSchema) > 0 {
		s.Cleaned, err = readTable(filepath.Join(dir, cleanedFileName), s.SourceName, s.CleanedSchema)
		if err != nil {
			return nil, fmt.Errorf("load cleaned table: %w", err)
		}
	}
	return &s, nil
}

func readTable(path, name string, schema []table.Field) (*table.Table, error) {
	kinds := make(map[string]table.Kind, len(schema))
	for _, f := range schema {
		kinds[f.Name] = f.Kind
	}
	t, err := ingest.ReadFile(path, ingest.Options{Kinds: kinds})
	if err != nil {
		return nil, err
	}
	return t.WithName(name), nil
}

// Save writes the tables and then session.json, each atomically. A session without a
// cleaned variant then removes any stale cleaned.csv; Load ignores that file anyway, so
// a failed removal is only logged.
func (s *Session) Save() error {
	if s.rootDir == "" {
		return errors.New("session directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if !s.originalSaved {
		if err := writeTable(filepath.Join(s.rootDir, originalFileName), s.Original); err != nil {
			return err
		}
		s.originalSaved = true
	}
	cleanedPath := filepath.Join(s.rootDir, cleanedFileName)
	if s.Cleaned != nil {
		if err := writeTable(cleanedPath, s.Cleaned); err != nil {
			return err
		}
	}
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(filepath.Join(s.rootDir, metaFileName), data); err != nil {
		return err
	}
	if s.Cleaned == nil {
		if err := os.Remove(cleanedPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("stale cleaned table not removed", "path", cleanedPath, "error", err)
		}
	}
	return nil
}

func writeTable(path string, t *table.Table) error {
	var buf bytes.Buffer
	if err := ingest.WriteCSV(&buf, t); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Clear removes the persisted session files from dir. Clearing an empty dir is not an error.
func Clear(dir string) error {
	for _, name := range []string{metaFileName, originalFileName, cleanedFileName} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}
