// Package ingest turns files on disk or uploaded bytes into typed tables and writes them back out.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// Options controls reading behavior.
type Options struct {
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// Delimiter for CSV. If 0, picked from the file name (',' or '\t' for .tsv).
	Delimiter rune
	// Numeric locale. When both are 0 values must be plain decimal floats.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// SheetName selects an XLSX sheet; SheetIndex (1-based) is used when the name is empty.
	SheetName  string
	SheetIndex int
	// Kinds forces the declared kind of named columns instead of inferring it.
	Kinds map[string]table.Kind
}

// Reader decodes one tabular format.
type Reader interface {
	CanRead(filename string) bool
	Read(name string, r io.Reader, opt Options) (*table.Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates no registered reader accepts the file name.
var ErrUnsupported = errors.New("unsupported file format (expected .csv, .tsv or .xlsx)")

// ErrLegacyExcel is returned for BIFF .xls workbooks, which excelize cannot open.
var ErrLegacyExcel = fmt.Errorf("legacy .xls workbooks are not supported, save the file as .xlsx: %w", ErrUnsupported)

// Supported reports whether a reader is registered for the file name.
func Supported(filename string) bool {
	return lookup(filename) != nil
}

// Unsupported returns the error for a file name no reader accepts.
func Unsupported(filename string) error {
	if strings.EqualFold(filepath.Ext(filename), ".xls") {
		return fmt.Errorf("%s: %w", filename, ErrLegacyExcel)
	}
	return fmt.Errorf("%s: %w", filename, ErrUnsupported)
}

// ReadFile opens path and decodes it with the first reader that accepts its name.
func ReadFile(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return Decode(filepath.Base(path), f, opt)
}

// Decode reads r using the reader registered for name's extension.
func Decode(name string, r io.Reader, opt Options) (*table.Table, error) {
	rd := lookup(name)
	if rd == nil {
		return nil, Unsupported(name)
	}
	t, err := rd.Read(name, r, opt)
	if err != nil {
		return nil, err
	}
	slog.Debug("table ingested", "name", name, "rows", t.NumRows(), "cols", t.NumCols())
	return t.WithName(name), nil
}

func lookup(name string) Reader {
	for _, rd := range registry {
		if rd.CanRead(name) {
			return rd
		}
	}
	return nil
}

func init() {
	Register(csvReader{})
	Register(xlsxReader{})
}
