// Package analysis computes descriptive statistics over a table: per-column summaries,
// the Pearson correlation matrix, value distributions, and a human-readable dataset profile.
package analysis

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// TopN is the number of values kept per column distribution.
const TopN = 10

// Result bundles the three analyses.
type Result struct {
	Summary       []ColumnStats  `json:"summary_statistics"`
	Correlations  *CorrMatrix    `json:"correlations"`
	Distributions []Distribution `json:"distributions"`
}

// ColumnStats summarizes one numeric column over its non-null values.
// Std is the sample (n-1) standard deviation.
type ColumnStats struct {
	Column string       `json:"column"`
	Count  int          `json:"count"`
	Mean   stats.Number `json:"mean"`
	Median stats.Number `json:"median"`
	Std    stats.Number `json:"std"`
	Min    stats.Number `json:"min"`
	Max    stats.Number `json:"max"`
	Q25    stats.Number `json:"q25"`
	Q75    stats.Number `json:"q75"`
}

// CorrMatrix is a symmetric Pearson correlation matrix across numeric columns.
// Undefined coefficients (zero variance, fewer than two paired rows) are NaN.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// Get returns the coefficient for a column pair.
func (m *CorrMatrix) Get(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, name := range m.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// MarshalJSON encodes the matrix as {"a": {"a": 1, "b": 0.5}, ...} in column order, NaN as null.
func (m *CorrMatrix) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range m.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(":{")
		for j, b := range m.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(b)
			if err != nil {
				return nil, err
			}
			val, err := stats.Number(m.Values[i][j]).MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Distribution holds the most frequent non-null values of a column.
type Distribution struct {
	Column string       `json:"column"`
	Values []ValueCount `json:"values"`
}

type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Analyze runs every analysis. t is never modified.
func Analyze(t *table.Table) *Result {
	return &Result{
		Summary:       SummaryStatistics(t),
		Correlations:  Correlations(t),
		Distributions: Distributions(t),
	}
}

// SummaryStatistics describes every numeric column.
func SummaryStatistics(t *table.Table) []ColumnStats {
	out := []ColumnStats{}
	for _, c := range t.NumericColumns() {
		vals := c.Floats()
		lo, hi := stats.MinMax(vals)
		q1, q3 := stats.Quartiles(vals)
		out = append(out, ColumnStats{
			Column: c.Name(),
			Count:  len(vals),
			Mean:   stats.Number(stats.Mean(vals)),
			Median: stats.Number(stats.Median(vals)),
			Std:    stats.Number(stats.StdDev(vals)),
			Min:    stats.Number(lo),
			Max:    stats.Number(hi),
			Q25:    stats.Number(q1),
			Q75:    stats.Number(q3),
		})
	}
	return out
}

// Correlations computes pairwise-complete Pearson coefficients. With fewer than two
// numeric columns the matrix is empty.
func Correlations(t *table.Table) *CorrMatrix {
	cols := t.NumericColumns()
	m := &CorrMatrix{Columns: []string{}, Values: [][]float64{}}
	if len(cols) < 2 {
		return m
	}
	n := len(cols)
	m.Columns = make([]string, n)
	m.Values = make([][]float64, n)
	for i, c := range cols {
		m.Columns[i] = c.Name()
		m.Values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			x, y := paired(cols[i], cols[j])
			r := stats.Pearson(x, y)
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m
}

// paired returns the rows where both columns are non-null.
func paired(a, b *table.Column) (x, y []float64) {
	for i := 0; i < a.Len(); i++ {
		if a.IsNull(i) || b.IsNull(i) {
			continue
		}
		x = append(x, a.Float(i))
		y = append(y, b.Float(i))
	}
	return x, y
}

// Distributions lists the TopN most frequent values of every column. Numeric columns count
// discrete values. Ties keep the order in which values first appear.
func Distributions(t *table.Table) []Distribution {
	out := make([]Distribution, 0, t.NumCols())
	for _, c := range t.Columns() {
		out = append(out, Distribution{Column: c.Name(), Values: ValueCounts(c, TopN)})
	}
	return out
}

// ValueCounts counts the non-null values of c, most frequent first. limit <= 0 keeps all.
func ValueCounts(c *table.Column, limit int) []ValueCount {
	idx := map[string]int{}
	counts := []ValueCount{}
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			continue
		}
		k := c.Key(i)
		if p, ok := idx[k]; ok {
			counts[p].Count++
			continue
		}
		idx[k] = len(counts)
		counts = append(counts, ValueCount{Value: c.Text(i), Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if limit > 0 && len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}
