package ingest

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"#N/A": {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
}

func isNullToken(s string) bool {
	_, ok := nullTokens[s]
	return ok
}

// FromRecords builds a table from a header row and string records. Each column's kind is
// inferred once: numeric when every non-null cell parses as a number, datetime when every
// non-null cell parses as a date, categorical otherwise. An all-null column is numeric.
func FromRecords(header []string, rows [][]string, opt Options) (*table.Table, error) {
	names := headerNames(header)
	ncol := len(names)
	if opt.MaxRows > 0 && len(rows) > opt.MaxRows {
		slog.Warn("row limit reached, truncating", "rows", len(rows), "max_rows", opt.MaxRows)
		rows = rows[:opt.MaxRows]
	}
	for i, rec := range rows {
		if len(rec) > ncol {
			// trailing empty fields are tolerated
			for _, v := range rec[ncol:] {
				if strings.TrimSpace(v) != "" {
					return nil, fmt.Errorf("row %d has %d fields, header has %d", i+1, len(rec), ncol)
				}
			}
		}
	}

	cols := make([]*table.Column, ncol)
	cells := make([]string, len(rows))
	for j, name := range names {
		for i, rec := range rows {
			v := ""
			if j < len(rec) {
				v = strings.TrimSpace(rec[j])
			}
			cells[i] = v
		}
		kind, forced := opt.Kinds[name]
		if !forced {
			kind = inferKind(cells, opt)
		}
		c, err := buildColumn(name, kind, cells, opt)
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	return table.New(cols...)
}

// headerNames trims names, fills blanks and disambiguates duplicates as name, name.1, name.2.
func headerNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if _, dup := seen[name]; dup {
			base, n := name, seen[name]
			for {
				n++
				cand := fmt.Sprintf("%s.%d", base, n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n
					name = cand
					break
				}
			}
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

func inferKind(cells []string, opt Options) table.Kind {
	numeric, datetime := true, true
	for _, v := range cells {
		if isNullToken(v) {
			continue
		}
		if numeric {
			if _, ok := parseNumeric(v, opt); !ok {
				numeric = false
			}
		}
		if datetime {
			if _, ok := parseTimeMaybe(v); !ok {
				datetime = false
			}
		}
		if !numeric && !datetime {
			return table.KindCategorical
		}
	}
	if numeric {
		return table.KindNumeric
	}
	return table.KindDatetime
}

func buildColumn(name string, kind table.Kind, cells []string, opt Options) (*table.Column, error) {
	c := table.NewColumn(name, kind, len(cells))
	for i, v := range cells {
		if isNullToken(v) {
			continue
		}
		switch kind {
		case table.KindNumeric:
			x, ok := parseNumeric(v, opt)
			if !ok {
				return nil, &errs.ColumnError{Column: name, Reason: fmt.Sprintf("row %d: %q is not numeric", i+1, v)}
			}
			c.SetFloat(i, x)
		case table.KindDatetime:
			ts, ok := parseTimeMaybe(v)
			if !ok {
				return nil, &errs.ColumnError{Column: name, Reason: fmt.Sprintf("row %d: %q is not a date", i+1, v)}
			}
			c.SetTime(i, ts)
		default:
			c.SetString(i, v)
		}
	}
	return c, nil
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseNumeric parses a plain float, or a localized one when separators are configured.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	if opt.DecimalSeparator != 0 || opt.ThousandsSeparator != 0 {
		raw = strings.ReplaceAll(raw, "\u00A0", "")
		dec := opt.DecimalSeparator
		if dec == 0 {
			dec = '.'
		}
		if thou := opt.ThousandsSeparator; thou != 0 && thou != dec {
			raw = strings.ReplaceAll(raw, string(thou), "")
		}
		if dec != '.' {
			raw = strings.ReplaceAll(raw, string(dec), ".")
		}
	}
	if !plainNumber(raw) {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// plainNumber rejects spellings ParseFloat accepts but a data cell should not be read as,
// such as "inf", "nan" or hex floats.
func plainNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}
