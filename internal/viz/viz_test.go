package viz

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func sample() *table.Table {
	return table.MustNew(
		table.Numeric("x", 1, 2, math.NaN(), 4, 5),
		table.Numeric("y", 2, math.NaN(), 6, 8, 10),
		table.Categorical("city", "a", "b", "a", "", "a"),
		table.Datetime("day",
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)),
	)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		kind    Kind
		columns []string
		want    errs.Kind
	}{
		{Scatter, []string{"x", "y"}, errs.KindUnknown},
		{Scatter, []string{"x"}, errs.KindValidation},
		{Line, nil, errs.KindValidation},
		{Bar, []string{"x"}, errs.KindUnknown},
		{Bar, nil, errs.KindValidation},
		{Histogram, nil, errs.KindValidation},
		{Box, []string{"x", "y", "city"}, errs.KindUnknown},
		{Box, []string{}, errs.KindValidation},
		{Heatmap, nil, errs.KindUnknown},
		{Kind("pie"), []string{"x"}, errs.KindUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := Validate(tt.kind, tt.columns)
			if tt.want == errs.KindUnknown {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, errs.KindOf(err), "err=%v", err)
		})
	}
	var ve *errs.ValidationError
	require.True(t, errors.As(Validate(Scatter, []string{"x"}), &ve))
	assert.Equal(t, "scatter plot needs 2 columns", ve.Message)
}

func TestBuildScatterSkipsIncompleteRows(t *testing.T) {
	s, err := Build(sample(), Request{Kind: Scatter, Columns: []string{"x", "y"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 5}, s.Points.X)
	assert.Equal(t, []float64{2, 8, 10}, s.Points.Y)
	assert.Equal(t, "scatter Chart", s.Title)
	assert.Equal(t, DefaultColor, s.Color)
	assert.Equal(t, "x", s.XLabel)
	assert.Equal(t, "y", s.YLabel)
}

func TestBuildLineOverDates(t *testing.T) {
	s, err := Build(sample(), Request{Kind: Line, Columns: []string{"day", "y"}, Title: "trend", Color: "#ff0000"})
	require.NoError(t, err)
	assert.Len(t, s.Points.XTimes, 4)
	assert.Empty(t, s.Points.X)
	assert.Equal(t, "trend", s.Title)
	assert.Equal(t, "#ff0000", s.Color)
}

func TestBuildBar(t *testing.T) {
	s, err := Build(sample(), Request{Kind: Bar, Columns: []string{"city"}})
	require.NoError(t, err)
	require.Len(t, s.Bars, 2)
	assert.Equal(t, BarValue{Label: "a", Value: 3}, s.Bars[0])
	assert.Equal(t, BarValue{Label: "b", Value: 1}, s.Bars[1])
}

func TestBuildBarCapsCategories(t *testing.T) {
	vals := make([]float64, MaxBars+5)
	for i := range vals {
		vals[i] = float64(i)
	}
	s, err := Build(table.MustNew(table.Numeric("id", vals...)), Request{Kind: Bar, Columns: []string{"id"}})
	require.NoError(t, err)
	assert.Len(t, s.Bars, MaxBars)
	assert.Equal(t, 5, s.Omitted)
}

func TestHistogram(t *testing.T) {
	vals := make([]float64, 11)
	for i := range vals {
		vals[i] = float64(i)
	}
	bins := histogram(vals, HistogramBins)
	require.Len(t, bins, HistogramBins)
	total := 0.0
	for _, b := range bins {
		total += b.Value
	}
	assert.Equal(t, 11.0, total)
	assert.Equal(t, 1.0, bins[0].Value)
	assert.Equal(t, 1.0, bins[HistogramBins-1].Value)
	assert.Equal(t, 0.0, float64(*bins[0].Lo))
	assert.Equal(t, 10.0, float64(*bins[HistogramBins-1].Hi))

	constant := histogram([]float64{5, 5}, HistogramBins)
	assert.Equal(t, 4.5, float64(*constant[0].Lo))
	assert.Equal(t, 5.5, float64(*constant[HistogramBins-1].Hi))

	empty := histogram(nil, 3)
	assert.Len(t, empty, 3)
	assert.Equal(t, 1.0, float64(*empty[2].Hi))
}

func TestBuildBox(t *testing.T) {
	tb := table.MustNew(table.Numeric("v", 1, 2, 3, 4, 100))
	s, err := Build(tb, Request{Kind: Box, Columns: []string{"v"}})
	require.NoError(t, err)
	require.Len(t, s.Boxes, 1)
	b := s.Boxes[0]
	assert.Equal(t, 5, b.Count)
	assert.Equal(t, 2.0, float64(b.Q1))
	assert.Equal(t, 3.0, float64(b.Median))
	assert.Equal(t, 4.0, float64(b.Q3))
	assert.Equal(t, 1.0, float64(b.LowerWhisker))
	assert.Equal(t, 4.0, float64(b.UpperWhisker))
	assert.Equal(t, 100.0, float64(b.Max))
	assert.Equal(t, []float64{100}, b.Outliers)
}

func TestBuildHeatmap(t *testing.T) {
	s, err := Build(sample(), Request{Kind: Heatmap})
	require.NoError(t, err)
	require.NotNil(t, s.Heatmap)
	assert.Equal(t, []string{"x", "y"}, s.Heatmap.Columns)
	assert.Equal(t, "Correlation Heatmap", s.Title)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"heatmap":{"x":{"x":1`)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want errs.Kind
	}{
		{"unknown kind", Request{Kind: "pie", Columns: []string{"x"}}, errs.KindUnknownMethod},
		{"missing kind", Request{Columns: []string{"x"}}, errs.KindValidation},
		{"too few columns", Request{Kind: Scatter, Columns: []string{"x"}}, errs.KindValidation},
		{"blank column", Request{Kind: Bar, Columns: []string{""}}, errs.KindValidation},
		{"bad color", Request{Kind: Bar, Columns: []string{"x"}, Color: "blue"}, errs.KindValidation},
		{"missing column", Request{Kind: Bar, Columns: []string{"nope"}}, errs.KindColumn},
		{"categorical y", Request{Kind: Scatter, Columns: []string{"x", "city"}}, errs.KindColumn},
		{"categorical x", Request{Kind: Line, Columns: []string{"city", "y"}}, errs.KindColumn},
		{"categorical histogram", Request{Kind: Histogram, Columns: []string{"city"}}, errs.KindColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(sample(), tt.req)
			assert.Equal(t, tt.want, errs.KindOf(err), "err=%v", err)
		})
	}
	var ve *errs.ValidationError
	_, err := Build(sample(), Request{Kind: Bar, Columns: []string{"x"}, Color: "blue"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "color", ve.Field)
}

func TestBuildDoesNotMutate(t *testing.T) {
	tb := sample()
	before := tb.Clone()
	for _, k := range []Kind{Scatter, Bar, Histogram, Heatmap, Box} {
		_, err := Build(tb, Request{Kind: k, Columns: []string{"x", "y"}})
		require.NoError(t, err)
	}
	assert.True(t, tb.Equal(before))
}

func TestPNGRenderer(t *testing.T) {
	r := NewPNGRenderer(0, 0)
	assert.Equal(t, 1200, r.Width)
	assert.Equal(t, 600, r.Height)

	reqs := []Request{
		{Kind: Scatter, Columns: []string{"x", "y"}, Color: "#2ca02c"},
		{Kind: Line, Columns: []string{"day", "y"}},
		{Kind: Bar, Columns: []string{"city"}},
		{Kind: Histogram, Columns: []string{"x"}},
		{Kind: Heatmap},
	}
	for _, req := range reqs {
		t.Run(string(req.Kind), func(t *testing.T) {
			s, err := Build(sample(), req)
			require.NoError(t, err)
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, s))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestPNGRendererConstantSeries(t *testing.T) {
	tb := table.MustNew(table.Numeric("a", 1, 1, 1), table.Numeric("b", 3, 3, 3))
	s, err := Build(tb, Request{Kind: Scatter, Columns: []string{"a", "b"}})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, NewPNGRenderer(400, 300).Render(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPNGRendererUnsupported(t *testing.T) {
	s, err := Build(sample(), Request{Kind: Box, Columns: []string{"x"}})
	require.NoError(t, err)
	err = NewPNGRenderer(0, 0).Render(&bytes.Buffer{}, s)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestPNGRendererHeatmap(t *testing.T) {
	tb := table.MustNew(
		table.Numeric("a_rather_long_column_name", 1, 2, 3, 4),
		table.Numeric("b", 4, 3, 2, 1),
		table.Numeric("flat", 5, 5, 5, 5),
	)
	s, err := Build(tb, Request{Kind: Heatmap})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, NewPNGRenderer(480, 360).Render(&buf, s))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	// no numeric columns leaves nothing to draw
	empty, err := Build(table.MustNew(table.Categorical("city", "a", "b")), Request{Kind: Heatmap})
	require.NoError(t, err)
	err = NewPNGRenderer(0, 0).Render(&bytes.Buffer{}, empty)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestHeatColor(t *testing.T) {
	assert.Equal(t, heatMid, heatColor(0))
	assert.Equal(t, heatHot, heatColor(1))
	assert.Equal(t, heatCold, heatColor(-1))
	assert.Equal(t, heatHot, heatColor(1.5))
	assert.Equal(t, heatNaN, heatColor(math.NaN()))
}

func TestPNGRendererNothingToPlot(t *testing.T) {
	tb := table.MustNew(table.Numeric("a", 1, math.NaN()), table.Numeric("b", math.NaN(), 2))
	s, err := Build(tb, Request{Kind: Scatter, Columns: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Points.Len())
	err = NewPNGRenderer(0, 0).Render(&bytes.Buffer{}, s)
	var verr *errs.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "columns", verr.Field)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "hist.png")
	s, err := Build(sample(), Request{Kind: Histogram, Columns: []string{"y"}})
	require.NoError(t, err)
	require.NoError(t, WriteFile(path, NewPNGRenderer(640, 480), s))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))

	bx, _ := Build(sample(), Request{Kind: Box, Columns: []string{"x"}})
	bad := filepath.Join(t.TempDir(), "box.png")
	assert.ErrorIs(t, WriteFile(bad, NewPNGRenderer(0, 0), bx), ErrUnsupported)
	_, err = os.Stat(bad)
	assert.True(t, os.IsNotExist(err))
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, drawing.Color{R: 255, G: 255, B: 255, A: 255}, parseColor("#fff"))
	assert.Equal(t, drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, parseColor("#1f77b4"))
	assert.Equal(t, drawing.Color{R: 0x1f, G: 0x77, B: 0xb4, A: 255}, parseColor("garbage"))
}
