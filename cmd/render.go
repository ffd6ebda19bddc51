package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/modeling"
	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

func newTable(w io.Writer, header ...any) prettytable.Writer {
	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row(header))
	return t
}

func formatNumber(n stats.Number) string {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "-"
	}
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func renderRecords(w io.Writer, t *table.Table, n int) {
	if t.NumRows() == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	header := make(prettytable.Row, 0, t.NumCols())
	for _, name := range t.ColumnNames() {
		header = append(header, name)
	}
	tw := newTable(w, header...)
	for _, rec := range t.Records(n) {
		row := make(prettytable.Row, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		tw.AppendRow(row)
	}
	tw.Render()
	fmt.Fprintf(w, "(%d of %d rows)\n", min(n, t.NumRows()), t.NumRows())
}

func renderSchema(w io.Writer, rep *analysis.Report) {
	tw := newTable(w, "column", "kind", "non-null", "missing", "unique")
	for _, c := range rep.Cols {
		tw.AppendRow(prettytable.Row{c.Name, c.Kind.String(), c.NonNull, c.Missing, c.Unique})
	}
	tw.Render()
}

func renderStats(w io.Writer, rows []analysis.ColumnStats) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(no numeric columns)")
		return
	}
	tw := newTable(w, "column", "count", "mean", "median", "std", "min", "q25", "q75", "max")
	for _, s := range rows {
		tw.AppendRow(prettytable.Row{
			s.Column, s.Count, formatNumber(s.Mean), formatNumber(s.Median), formatNumber(s.Std),
			formatNumber(s.Min), formatNumber(s.Q25), formatNumber(s.Q75), formatNumber(s.Max),
		})
	}
	tw.Render()
}

func renderCorrelations(w io.Writer, m *analysis.CorrMatrix) {
	if m == nil || len(m.Columns) < 2 {
		return
	}
	header := prettytable.Row{""}
	for _, c := range m.Columns {
		header = append(header, c)
	}
	tw := newTable(w, header...)
	for _, a := range m.Columns {
		row := prettytable.Row{a}
		for _, b := range m.Columns {
			v, _ := m.Get(a, b)
			row = append(row, formatNumber(stats.Number(v)))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func renderDistributions(w io.Writer, dists []analysis.Distribution) {
	for _, d := range dists {
		fmt.Fprintf(w, "%s\n", d.Column)
		tw := newTable(w, "value", "count")
		for _, vc := range d.Values {
			tw.AppendRow(prettytable.Row{vc.Value, vc.Count})
		}
		tw.Render()
	}
}

func renderModel(w io.Writer, res *modeling.Result) {
	if res.NoFeatures {
		fmt.Fprintln(w, res.Message)
		return
	}
	fmt.Fprintf(w, "Features: %v\n", res.Features)
	if res.Target != "" {
		fmt.Fprintf(w, "Target: %s (train %d, test %d)\n", res.Target, res.TrainRows, res.TestRows)
	}
	switch {
	case res.Regression != nil:
		r := res.Regression
		tw := newTable(w, "model", "r2", "rmse", "mse")
		tw.AppendRow(prettytable.Row{modeling.ModelLinear, formatNumber(r.LinearRegression.R2), formatNumber(r.LinearRegression.RMSE), formatNumber(r.LinearRegression.MSE)})
		tw.AppendRow(prettytable.Row{modeling.ModelForest, formatNumber(r.RandomForest.R2), formatNumber(r.RandomForest.RMSE), formatNumber(r.RandomForest.MSE)})
		tw.Render()
		fmt.Fprintf(w, "Best model: %s\n", r.BestModel)
	case res.Classification != nil:
		c := res.Classification
		fmt.Fprintf(w, "%s accuracy: %s\nClasses: %v\n", c.Model, formatNumber(c.Accuracy), c.Classes)
	case res.Clustering != nil:
		c := res.Clustering
		tw := newTable(w, "cluster", "size")
		for i, n := range c.ClusterSizes {
			tw.AppendRow(prettytable.Row{i, n})
		}
		tw.Render()
		fmt.Fprintf(w, "Inertia: %s\nSilhouette: %s\n", formatNumber(c.Inertia), c.SilhouetteScore.Status)
	}
}
