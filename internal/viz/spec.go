package viz

import (
	"fmt"
	"math"
	"time"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

// MaxBars caps the number of categories drawn by a bar chart.
const MaxBars = 50

// Spec is the data behind one chart. Exactly one of Points, Bars, Heatmap or Boxes is set.
type Spec struct {
	Kind   Kind   `json:"viz_type"`
	Title  string `json:"title"`
	Color  string `json:"color"`
	XLabel string `json:"x_label,omitempty"`
	YLabel string `json:"y_label,omitempty"`

	Points  *Points              `json:"points,omitempty"`
	Bars    []BarValue           `json:"bars,omitempty"`
	Omitted int                  `json:"omitted,omitempty"` // categories beyond MaxBars
	Heatmap *analysis.CorrMatrix `json:"heatmap,omitempty"`
	Boxes   []BoxStats           `json:"boxes,omitempty"`
}

// Points holds an x/y series in row order. XTimes is set instead of X for datetime axes.
type Points struct {
	X      []float64   `json:"x,omitempty"`
	XTimes []time.Time `json:"x_times,omitempty"`
	Y      []float64   `json:"y"`
}

func (p *Points) Len() int { return len(p.Y) }

// BarValue is one bar. Histogram bins carry their [Lo, Hi) edges; the last bin is closed.
type BarValue struct {
	Label string        `json:"label"`
	Value float64       `json:"value"`
	Lo    *stats.Number `json:"lo,omitempty"`
	Hi    *stats.Number `json:"hi,omitempty"`
}

// BoxStats is a five-number summary with Tukey whiskers.
type BoxStats struct {
	Column       string       `json:"column"`
	Count        int          `json:"count"`
	Min          stats.Number `json:"min"`
	Q1           stats.Number `json:"q1"`
	Median       stats.Number `json:"median"`
	Q3           stats.Number `json:"q3"`
	Max          stats.Number `json:"max"`
	LowerWhisker stats.Number `json:"lower_whisker"`
	UpperWhisker stats.Number `json:"upper_whisker"`
	Outliers     []float64    `json:"outliers"`
}

// Build validates req against t and computes the chart data. t is never modified.
func Build(t *table.Table, req Request) (*Spec, error) {
	if err := req.check(); err != nil {
		return nil, err
	}
	kind, err := ParseKind(string(req.Kind))
	if err != nil {
		return nil, err
	}
	req.Kind = kind
	if err := Validate(kind, req.Columns); err != nil {
		return nil, err
	}
	req = req.withDefaults()
	s := &Spec{Kind: kind, Title: req.Title, Color: req.Color}

	switch kind {
	case Scatter, Line:
		x, err := lookup(t, req.Columns[0])
		if err != nil {
			return nil, err
		}
		y, err := numericColumn(t, req.Columns[1])
		if err != nil {
			return nil, err
		}
		if x.Kind() == table.KindCategorical {
			return nil, &errs.ColumnError{Column: x.Name(), Reason: "x axis must be numeric or datetime"}
		}
		s.XLabel, s.YLabel = x.Name(), y.Name()
		s.Points = points(x, y)
	case Bar:
		c, err := lookup(t, req.Columns[0])
		if err != nil {
			return nil, err
		}
		counts := analysis.ValueCounts(c, 0)
		if len(counts) > MaxBars {
			s.Omitted = len(counts) - MaxBars
			counts = counts[:MaxBars]
		}
		s.Bars = make([]BarValue, len(counts))
		for i, vc := range counts {
			s.Bars[i] = BarValue{Label: vc.Value, Value: float64(vc.Count)}
		}
		s.XLabel, s.YLabel = c.Name(), "count"
	case Histogram:
		c, err := numericColumn(t, req.Columns[0])
		if err != nil {
			return nil, err
		}
		s.Bars = histogram(c.Floats(), HistogramBins)
		s.XLabel, s.YLabel = c.Name(), "count"
	case Heatmap:
		s.Heatmap = analysis.Correlations(t)
	case Box:
		for _, name := range req.Columns {
			c, err := numericColumn(t, name)
			if err != nil {
				return nil, err
			}
			s.Boxes = append(s.Boxes, box(c))
		}
	}
	return s, nil
}

func lookup(t *table.Table, name string) (*table.Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, &errs.ColumnError{Column: name, Reason: "not found"}
	}
	return c, nil
}

func numericColumn(t *table.Table, name string) (*table.Column, error) {
	c, err := lookup(t, name)
	if err != nil {
		return nil, err
	}
	if c.Kind() != table.KindNumeric {
		return nil, &errs.ColumnError{Column: name, Reason: fmt.Sprintf("is %s, not numeric", c.Kind())}
	}
	return c, nil
}

// points keeps rows where both cells are present.
func points(x, y *table.Column) *Points {
	p := &Points{Y: []float64{}}
	for i := 0; i < x.Len(); i++ {
		if x.IsNull(i) || y.IsNull(i) {
			continue
		}
		if x.Kind() == table.KindDatetime {
			p.XTimes = append(p.XTimes, x.Time(i))
		} else {
			p.X = append(p.X, x.Float(i))
		}
		p.Y = append(p.Y, y.Float(i))
	}
	return p
}

// histogram bins vals into n equal-width bins over [min, max]. A constant input is
// centred in a unit-wide range; empty input bins over [0, 1].
func histogram(vals []float64, n int) []BarValue {
	lo, hi := 0.0, 1.0
	if len(vals) > 0 {
		lo, hi = stats.MinMax(vals)
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
	}
	width := (hi - lo) / float64(n)
	counts := make([]int, n)
	for _, v := range vals {
		b := int((v - lo) / width)
		if b >= n {
			b = n - 1
		}
		if b < 0 {
			b = 0
		}
		counts[b]++
	}
	out := make([]BarValue, n)
	for i := range out {
		l := lo + float64(i)*width
		h := lo + float64(i+1)*width
		if i == n-1 {
			h = hi
		}
		ln, hn := stats.Number(l), stats.Number(h)
		out[i] = BarValue{
			Label: fmt.Sprintf("%.4g", l+(h-l)/2),
			Value: float64(counts[i]),
			Lo:    &ln,
			Hi:    &hn,
		}
	}
	return out
}

func box(c *table.Column) BoxStats {
	vals := c.Floats()
	b := BoxStats{Column: c.Name(), Count: len(vals), Outliers: []float64{}}
	if len(vals) == 0 {
		nan := stats.Number(math.NaN())
		b.Min, b.Q1, b.Median, b.Q3, b.Max = nan, nan, nan, nan, nan
		b.LowerWhisker, b.UpperWhisker = nan, nan
		return b
	}
	lo, hi := stats.MinMax(vals)
	q1, q3 := stats.Quartiles(vals)
	iqr := q3 - q1
	lf, uf := q1-1.5*iqr, q3+1.5*iqr
	lw, uw := math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		if v < lf || v > uf {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		lw = math.Min(lw, v)
		uw = math.Max(uw, v)
	}
	b.Min, b.Max = stats.Number(lo), stats.Number(hi)
	b.Q1, b.Q3 = stats.Number(q1), stats.Number(q3)
	b.Median = stats.Number(stats.Median(vals))
	b.LowerWhisker, b.UpperWhisker = stats.Number(lw), stats.Number(uw)
	return b
}
