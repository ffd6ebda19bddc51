package cleaning

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

var nan = math.NaN()

func floatsOf(t *testing.T, tb *table.Table, name string) []float64 {
	t.Helper()
	c, ok := tb.Column(name)
	require.True(t, ok, "column %s", name)
	out := make([]float64, c.Len())
	for i := range out {
		out[i] = c.Float(i)
	}
	return out
}

func sample() *table.Table {
	return table.MustNew(
		table.Numeric("a", 1, nan, 3, 1, 100),
		table.Numeric("b", 10, 20, nan, 10, 30),
		table.Categorical("c", "x", "y", "", "x", "z"),
	)
}

func TestEmptyConfigIsIdentity(t *testing.T) {
	in := sample()
	out, err := Clean(in, Config{})
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.NotSame(t, in, out)
}

func TestCleanDoesNotMutateInput(t *testing.T) {
	in := sample()
	snapshot := in.Clone()
	_, err := Clean(in, Config{
		HandleMissing: true, MissingMethod: MissingMean,
		RemoveDuplicates: true,
		HandleOutliers:   true, OutlierMethod: OutlierIQR,
		Normalize: true, NormalizeMethod: NormalizeMinMax, NormalizeColumns: []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.True(t, in.Equal(snapshot))
}

func TestHandleMissing(t *testing.T) {
	in := sample()

	dropped, err := HandleMissing(in, MissingDrop)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 100}, floatsOf(t, dropped, "a"))

	mean, err := HandleMissing(in, MissingMean)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 26.25, 3, 1, 100}, floatsOf(t, mean, "a"))
	assert.Equal(t, []float64{10, 20, 17.5, 10, 30}, floatsOf(t, mean, "b"))
	c, _ := mean.Column("c")
	assert.True(t, c.IsNull(2), "categorical nulls persist under mean fill")

	median, err := HandleMissing(in, MissingMedian)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 100}, floatsOf(t, median, "a"))
}

func TestFillDirections(t *testing.T) {
	in := table.MustNew(
		table.Numeric("n", nan, 1, nan, 3, nan),
		table.Categorical("s", "", "p", "", "q", ""),
	)
	ff, err := HandleMissing(in, MissingForwardFill)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"", ""}, {"1", "p"}, {"1", "p"}, {"3", "q"}, {"3", "q"}}, ff.Records(0))

	bf, err := HandleMissing(in, MissingBackwardFill)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "p"}, {"1", "p"}, {"3", "q"}, {"3", "q"}, {"", ""}}, bf.Records(0))
}

func TestAllNullNumericColumnStaysNull(t *testing.T) {
	in := table.MustNew(table.Numeric("n", nan, nan))
	out, err := HandleMissing(in, MissingMean)
	require.NoError(t, err)
	c, _ := out.Column("n")
	assert.Equal(t, 2, c.NullCount())
}

func TestRemoveDuplicates(t *testing.T) {
	in := table.MustNew(
		table.Numeric("id", 1, 2, 1, 3, 2, 4, 5, 3, 6, 7),
		table.Categorical("v", "a", "b", "a", "c", "b", "d", "e", "c", "f", "g"),
	)
	out := RemoveDuplicates(in)
	assert.Equal(t, 7, out.NumRows())
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7}, floatsOf(t, out, "id"))

	again := RemoveDuplicates(out)
	assert.True(t, out.Equal(again))
}

func TestRemoveDuplicatesNullsCompareEqual(t *testing.T) {
	in := table.MustNew(table.Numeric("a", nan, nan, 1), table.Categorical("b", "", "", ""))
	assert.Equal(t, 2, RemoveDuplicates(in).NumRows())
}

func TestIQRClipsToFence(t *testing.T) {
	in := table.MustNew(table.Numeric("v", 1, 2, 3, 4, 100))
	out, err := HandleOutliers(in, OutlierIQR, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, out.NumRows())
	assert.Equal(t, []float64{1, 2, 3, 4, 7}, floatsOf(t, out, "v"))
}

func TestIQRSelectedColumnsOnly(t *testing.T) {
	in := table.MustNew(
		table.Numeric("v", 1, 2, 3, 4, 100),
		table.Numeric("w", 1, 2, 3, 4, 100),
	)
	out, err := HandleOutliers(in, OutlierIQR, []string{"w"})
	require.NoError(t, err)
	assert.Equal(t, 100.0, floatsOf(t, out, "v")[4])
	assert.Equal(t, 7.0, floatsOf(t, out, "w")[4])

	_, err = HandleOutliers(in, OutlierIQR, []string{"nope"})
	var ce *errs.ColumnError
	assert.True(t, errors.As(err, &ce))
}

func TestZScoreDropsRowsAndNeverGrows(t *testing.T) {
	vals := make([]float64, 21)
	other := make([]float64, 21)
	for i := range other {
		other[i] = float64(i)
	}
	vals[20] = 100
	other[3] = nan
	in := table.MustNew(table.Numeric("v", vals...), table.Numeric("o", other...))

	out, err := HandleOutliers(in, OutlierZScore, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, out.NumRows())
	assert.LessOrEqual(t, out.NumRows(), in.NumRows())

	// rows kept by iqr, possibly dropped by zscore
	iqr, err := HandleOutliers(in, OutlierIQR, nil)
	require.NoError(t, err)
	assert.Equal(t, in.NumRows(), iqr.NumRows())
}

func TestZScoreConstantColumn(t *testing.T) {
	in := table.MustNew(table.Numeric("k", 5, 5, 5))
	out, err := HandleOutliers(in, OutlierZScore, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NumRows())
}

func TestNormalize(t *testing.T) {
	in := table.MustNew(
		table.Numeric("a", 1, 2, 3, 4, 5),
		table.Numeric("k", 7, 7, 7, 7, 7),
		table.Categorical("c", "p", "q", "r", "s", "t"),
	)

	std, err := Normalize(in, NormalizeStandard, []string{"a", "k"})
	require.NoError(t, err)
	a := floatsOf(t, std, "a")
	assert.InDelta(t, 0, stats.Mean(a), 1e-12)
	assert.InDelta(t, 1, stats.PopStdDev(a), 1e-12)
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, floatsOf(t, std, "k"))

	mm, err := Normalize(in, NormalizeMinMax, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, floatsOf(t, mm, "a"))
	assert.Equal(t, []float64{7, 7, 7, 7, 7}, floatsOf(t, mm, "k"))

	same, err := Normalize(in, NormalizeStandard, nil)
	require.NoError(t, err)
	assert.True(t, in.Equal(same))

	_, err = Normalize(in, NormalizeStandard, []string{"c"})
	var ce *errs.ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "c", ce.Column)
}

func TestStepOrder(t *testing.T) {
	in := table.MustNew(table.Numeric("a", 1, nan, 1), table.Categorical("b", "x", "x", "x"))
	out, err := Clean(in, Config{HandleMissing: true, MissingMethod: MissingMean, RemoveDuplicates: true})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
}

func TestUnknownMethodFailsFast(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		param string
	}{
		{"missing", Config{HandleMissing: true, MissingMethod: "zap"}, "missing_method"},
		{"outlier", Config{HandleOutliers: true, OutlierMethod: "mad"}, "outlier_method"},
		{"normalize", Config{Normalize: true, NormalizeMethod: "robust", NormalizeColumns: []string{"a"}}, "normalize_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Clean(sample(), tt.cfg)
			var um *errs.UnknownMethodError
			require.True(t, errors.As(err, &um), "got %v", err)
			assert.Equal(t, tt.param, um.Param)
			assert.NotEmpty(t, um.Allowed)
			assert.Equal(t, errs.KindUnknownMethod, errs.KindOf(err))
		})
	}
}

func TestLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "clean.yaml")
	require.NoError(t, os.WriteFile(p, []byte("handle_missing: true\nmissing_method: median\nnormalize: true\nnormalize_columns: [a]\n"), 0o644))
	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, MissingMedian, cfg.MissingMethod)
	assert.Equal(t, OutlierIQR, cfg.OutlierMethod)
	assert.Equal(t, []string{"missing:median", "normalize:standard"}, cfg.Steps())

	require.NoError(t, os.WriteFile(p, []byte("outlier_method: mad\n"), 0o644))
	_, err = LoadConfig(p)
	assert.Equal(t, errs.KindUnknownMethod, errs.KindOf(err))
}

func TestSummarize(t *testing.T) {
	in := sample()
	cfg := Config{HandleMissing: true}
	out, err := Clean(in, cfg)
	require.NoError(t, err)
	s := Summarize(in, out, cfg)
	assert.Equal(t, 5, s.RowsBefore)
	assert.Equal(t, 3, s.RowsAfter)
	assert.Equal(t, []string{"missing:drop"}, s.Steps)
	assert.Equal(t, map[string]int{"a": 0, "b": 0, "c": 0}, s.Missing)
}
