package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// Options controls the dataset profile.
type Options struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// GroupBy computes per-group numeric summaries for the given column names.
	GroupBy []string
	// Correlations includes the Pearson matrix.
	Correlations bool
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
}

// DefaultOptions returns reasonable defaults for a dataset profile.
func DefaultOptions() Options {
	return Options{SampleRows: 5, Correlations: true, Outliers: true, OutlierThreshold: 3.5}
}

// Report is a markdown-friendly profile of a table.
type Report struct {
	Name     string          `json:"name,omitempty"`
	Rows     int             `json:"rows"`
	Cols     []ColumnSummary `json:"columns"`
	Samples  [][]string      `json:"head"`
	Warnings []string        `json:"warnings,omitempty"`
	Groups   []GroupResult   `json:"groups,omitempty"`
	Corr     *CorrMatrix     `json:"correlations,omitempty"`
}

// Shape returns rows and columns.
func (r *Report) Shape() [2]int { return [2]int{r.Rows, len(r.Cols)} }

// ColumnSummary captures declared kind and statistics per column.
type ColumnSummary struct {
	Name    string     `json:"name"`
	Kind    table.Kind `json:"kind"`
	NonNull int        `json:"non_null"`
	Missing int        `json:"missing"`
	Unique  int        `json:"unique"`
	// Numeric stats
	Min  *stats.Number `json:"min,omitempty"`
	Max  *stats.Number `json:"max,omitempty"`
	Mean *stats.Number `json:"mean,omitempty"`
	Std  *stats.Number `json:"std,omitempty"`
	// Outliers (robust Z via MAD)
	OutliersCount    int     `json:"outliers,omitempty"`
	OutliersMaxAbsZ  float64 `json:"outliers_max_abs_z,omitempty"`
	OutlierThreshold float64 `json:"outlier_threshold,omitempty"`
	// Datetime range
	Earliest string `json:"earliest,omitempty"`
	Latest   string `json:"latest,omitempty"`
	// Categorical top values
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// GroupResult captures aggregated metrics per group key.
type GroupResult struct {
	Key     string                `json:"key"`
	Size    int                   `json:"size"`
	Metrics map[string]NumSummary `json:"metrics"`
}

type NumSummary struct {
	Count int          `json:"count"`
	Min   stats.Number `json:"min"`
	Max   stats.Number `json:"max"`
	Mean  stats.Number `json:"mean"`
}

// Profile builds the dataset report shown after loading a file.
func Profile(t *table.Table, opt Options) *Report {
	rep := &Report{Name: t.Name(), Rows: t.NumRows(), Cols: make([]ColumnSummary, 0, t.NumCols())}
	sampleRows := opt.SampleRows
	if sampleRows <= 0 {
		sampleRows = 5
	}
	rep.Samples = t.Records(min(sampleRows, t.NumRows()))
	if t.NumRows() == 0 {
		rep.Samples = [][]string{}
	}

	for _, c := range t.Columns() {
		s := ColumnSummary{Name: c.Name(), Kind: c.Kind(), Missing: c.NullCount()}
		s.NonNull = c.Len() - s.Missing
		all := ValueCounts(c, 0)
		s.Unique = len(all)
		switch c.Kind() {
		case table.KindNumeric:
			vals := c.Floats()
			if len(vals) == 0 {
				break
			}
			lo, hi := stats.MinMax(vals)
			s.Min, s.Max = num(lo), num(hi)
			s.Mean = num(stats.Mean(vals))
			if len(vals) > 1 {
				s.Std = num(stats.StdDev(vals))
			}
			if opt.Outliers && len(vals) >= 8 {
				s.OutliersCount, s.OutliersMaxAbsZ, s.OutlierThreshold = robustOutliers(vals, opt.OutlierThreshold)
			}
		case table.KindDatetime:
			lo, hi := -1, -1
			for i := 0; i < c.Len(); i++ {
				if c.IsNull(i) {
					continue
				}
				if lo < 0 || c.Time(i).Before(c.Time(lo)) {
					lo = i
				}
				if hi < 0 || c.Time(i).After(c.Time(hi)) {
					hi = i
				}
			}
			if lo >= 0 {
				s.Earliest, s.Latest = c.Text(lo), c.Text(hi)
			}
		default:
			tops := append([]ValueCount(nil), all...)
			sort.SliceStable(tops, func(i, j int) bool {
				if tops[i].Count == tops[j].Count {
					return tops[i].Value < tops[j].Value
				}
				return tops[i].Count > tops[j].Count
			})
			if len(tops) > 8 {
				tops = tops[:8]
			}
			s.TopValues = tops
		}
		rep.Cols = append(rep.Cols, s)
	}

	if len(opt.GroupBy) > 0 {
		groups, warn := groupSummaries(t, opt.GroupBy)
		rep.Groups = groups
		rep.Warnings = append(rep.Warnings, warn...)
	}
	if opt.Correlations {
		if m := Correlations(t); len(m.Columns) >= 2 {
			rep.Corr = m
		}
	}
	if t.NumRows() > len(rep.Samples) {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("showing first %d of %d rows", len(rep.Samples), t.NumRows()))
	}
	return rep
}

func robustOutliers(vals []float64, thr float64) (count int, maxAbsZ, threshold float64) {
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := stats.MedianMAD(vals)
	if mad > 0 {
		for _, v := range vals {
			az := math.Abs(0.6745 * (v - median) / mad)
			if az > thr {
				count++
			}
			if az > maxAbsZ {
				maxAbsZ = az
			}
		}
	}
	return count, maxAbsZ, thr
}

func groupSummaries(t *table.Table, by []string) ([]GroupResult, []string) {
	var keys []*table.Column
	var warnings []string
	for _, name := range by {
		c, ok := t.Column(strings.TrimSpace(name))
		if !ok {
			warnings = append(warnings, fmt.Sprintf("group-by column %q not found", name))
			continue
		}
		keys = append(keys, c)
	}
	if len(keys) == 0 {
		return nil, warnings
	}
	type acc struct {
		size int
		vals map[string][]float64
	}
	groups := map[string]*acc{}
	numeric := t.NumericColumns()
	for i := 0; i < t.NumRows(); i++ {
		parts := make([]string, len(keys))
		for k, c := range keys {
			parts[k] = fmt.Sprintf("%s=%s", c.Name(), safeVal(c.Text(i)))
		}
		key := strings.Join(parts, " | ")
		g := groups[key]
		if g == nil {
			g = &acc{vals: map[string][]float64{}}
			groups[key] = g
		}
		g.size++
		for _, c := range numeric {
			if !c.IsNull(i) {
				g.vals[c.Name()] = append(g.vals[c.Name()], c.Float(i))
			}
		}
	}
	out := make([]GroupResult, 0, len(groups))
	for key, g := range groups {
		gr := GroupResult{Key: key, Size: g.size, Metrics: map[string]NumSummary{}}
		for name, vals := range g.vals {
			lo, hi := stats.MinMax(vals)
			gr.Metrics[name] = NumSummary{Count: len(vals), Min: stats.Number(lo), Max: stats.Number(hi), Mean: stats.Number(stats.Mean(vals))}
		}
		out = append(out, gr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size == out[j].Size {
			return out[i].Key < out[j].Key
		}
		return out[i].Size > out[j].Size
	})
	if len(out) > 20 {
		out = out[:20]
		warnings = append(warnings, fmt.Sprintf("showing 20 of %d groups", len(groups)))
	}
	return out, warnings
}

func num(f float64) *stats.Number {
	n := stats.Number(f)
	return &n
}
