// Package cleaning derives a cleaned table from a raw one. Every function returns a
// new table and leaves its input untouched.
package cleaning

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// Clean validates cfg and applies the enabled steps in fixed order, each consuming
// the previous step's output. With no step enabled the result equals t.
func Clean(t *table.Table, cfg Config) (*table.Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	out := t
	var err error
	if cfg.HandleMissing {
		if out, err = HandleMissing(out, cfg.MissingMethod); err != nil {
			return nil, err
		}
	}
	if cfg.RemoveDuplicates {
		out = RemoveDuplicates(out)
	}
	if cfg.HandleOutliers {
		if out, err = HandleOutliers(out, cfg.OutlierMethod, cfg.OutlierColumns); err != nil {
			return nil, err
		}
	}
	if cfg.Normalize {
		if out, err = Normalize(out, cfg.NormalizeMethod, cfg.NormalizeColumns); err != nil {
			return nil, err
		}
	}
	if out == t {
		out = t.Clone()
	}
	return out, nil
}

// HandleMissing removes or fills null cells.
func HandleMissing(t *table.Table, method MissingMethod) (*table.Table, error) {
	var out *table.Table
	switch method {
	case MissingDrop, "":
		keep := make([]int, 0, t.NumRows())
		for i := 0; i < t.NumRows(); i++ {
			if !t.RowHasNull(i) {
				keep = append(keep, i)
			}
		}
		out = t.Take(keep)
	case MissingMean, MissingMedian:
		cols := t.Columns()
		for j, c := range cols {
			if c.Kind() != table.KindNumeric || c.NullCount() == 0 {
				continue
			}
			vals := c.Floats()
			if len(vals) == 0 {
				continue
			}
			fill := stats.Mean(vals)
			if method == MissingMedian {
				fill = stats.Median(vals)
			}
			nc := c.Clone()
			for i := 0; i < nc.Len(); i++ {
				if nc.IsNull(i) {
					nc.SetFloat(i, fill)
				}
			}
			cols[j] = nc
		}
		out = table.MustNew(cols...).WithName(t.Name())
	case MissingForwardFill, MissingBackwardFill:
		cols := t.Columns()
		for j, c := range cols {
			if c.NullCount() == 0 {
				continue
			}
			cols[j] = fillColumn(c, method == MissingForwardFill)
		}
		out = table.MustNew(cols...).WithName(t.Name())
	default:
		return nil, &errs.UnknownMethodError{Param: "missing_method", Value: string(method),
			Allowed: []string{"drop", "mean", "median", "forward_fill", "backward_fill"}}
	}
	slog.Debug("cleaning step", "step", "missing", "method", string(method),
		"rows_before", t.NumRows(), "rows_after", out.NumRows())
	return out, nil
}

// fillColumn propagates the nearest non-null value forward or backward; edge nulls stay.
func fillColumn(c *table.Column, forward bool) *table.Column {
	nc := c.Clone()
	n := nc.Len()
	last := -1
	for k := 0; k < n; k++ {
		i := k
		if !forward {
			i = n - 1 - k
		}
		if !c.IsNull(i) {
			last = i
			continue
		}
		if last >= 0 {
			nc.CopyCell(i, c, last)
		}
	}
	return nc
}

// RemoveDuplicates keeps the first occurrence of each distinct row, nulls comparing equal.
func RemoveDuplicates(t *table.Table) *table.Table {
	seen := make(map[string]struct{}, t.NumRows())
	keep := make([]int, 0, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		k := t.RowKey(i)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, i)
	}
	out := t.Take(keep)
	slog.Debug("cleaning step", "step", "duplicates",
		"rows_before", t.NumRows(), "rows_after", out.NumRows())
	return out
}

// HandleOutliers clips (iqr) or drops (zscore) outlying values.
//
// iqr clamps each selected numeric column to [Q1-1.5*IQR, Q3+1.5*IQR] and keeps every row;
// columns empty means all numeric columns. zscore drops every row where any numeric
// column has |z| >= 3 under the population standard deviation; columns is ignored.
func HandleOutliers(t *table.Table, method OutlierMethod, columns []string) (*table.Table, error) {
	var out *table.Table
	switch method {
	case OutlierIQR, "":
		targets, err := numericTargets(t, columns, true)
		if err != nil {
			return nil, err
		}
		out = t
		for _, c := range targets {
			vals := c.Floats()
			if len(vals) == 0 {
				continue
			}
			q1, q3 := stats.Quartiles(vals)
			iqr := q3 - q1
			lo, hi := q1-1.5*iqr, q3+1.5*iqr
			nc := c.Clone()
			for i := 0; i < nc.Len(); i++ {
				if nc.IsNull(i) {
					continue
				}
				nc.SetFloat(i, math.Min(math.Max(nc.Float(i), lo), hi))
			}
			if out, err = out.WithColumn(nc); err != nil {
				return nil, err
			}
		}
		if out == t {
			out = t.Clone()
		}
	case OutlierZScore:
		drop := make([]bool, t.NumRows())
		for _, c := range t.NumericColumns() {
			vals := c.Floats()
			if len(vals) == 0 {
				continue
			}
			mean, std := stats.Mean(vals), stats.PopStdDev(vals)
			if std == 0 || math.IsNaN(std) {
				continue
			}
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					continue
				}
				if math.Abs((c.Float(i)-mean)/std) >= 3 {
					drop[i] = true
				}
			}
		}
		keep := make([]int, 0, t.NumRows())
		for i, d := range drop {
			if !d {
				keep = append(keep, i)
			}
		}
		out = t.Take(keep)
	default:
		return nil, &errs.UnknownMethodError{Param: "outlier_method", Value: string(method),
			Allowed: []string{"iqr", "zscore"}}
	}
	slog.Debug("cleaning step", "step", "outliers", "method", string(method),
		"rows_before", t.NumRows(), "rows_after", out.NumRows())
	return out, nil
}

// Normalize rescales the listed numeric columns. An empty list is a no-op.
// standard maps x to (x-mean)/std with the population std; minmax maps x to
// (x-min)/(max-min). A zero std or range leaves the divisor at 1.
func Normalize(t *table.Table, method NormalizeMethod, columns []string) (*table.Table, error) {
	switch method {
	case NormalizeStandard, NormalizeMinMax, "":
	default:
		return nil, &errs.UnknownMethodError{Param: "normalize_method", Value: string(method),
			Allowed: []string{"standard", "minmax"}}
	}
	if len(columns) == 0 {
		return t.Clone(), nil
	}
	targets, err := numericTargets(t, columns, false)
	if err != nil {
		return nil, err
	}
	out := t
	for _, c := range targets {
		vals := c.Floats()
		if len(vals) == 0 {
			continue
		}
		var shift, scale float64
		if method == NormalizeMinMax {
			lo, hi := stats.MinMax(vals)
			shift, scale = lo, hi-lo
		} else {
			shift, scale = stats.Mean(vals), stats.PopStdDev(vals)
		}
		if scale == 0 || math.IsNaN(scale) {
			scale = 1
		}
		nc := c.Clone()
		for i := 0; i < nc.Len(); i++ {
			if !nc.IsNull(i) {
				nc.SetFloat(i, (nc.Float(i)-shift)/scale)
			}
		}
		if out, err = out.WithColumn(nc); err != nil {
			return nil, err
		}
	}
	slog.Debug("cleaning step", "step", "normalize", "method", string(method), "columns", columns)
	return out, nil
}

// numericTargets resolves column names to numeric columns. An empty list selects every
// numeric column when allByDefault is set.
func numericTargets(t *table.Table, names []string, allByDefault bool) ([]*table.Column, error) {
	if len(names) == 0 {
		if allByDefault {
			return t.NumericColumns(), nil
		}
		return nil, nil
	}
	out := make([]*table.Column, 0, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, &errs.ColumnError{Column: name, Reason: "not found"}
		}
		if c.Kind() != table.KindNumeric {
			return nil, &errs.ColumnError{Column: name, Reason: fmt.Sprintf("is %s, not numeric", c.Kind())}
		}
		out = append(out, c)
	}
	return out, nil
}
