package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/datapro-cli/internal/table"
)

var nan = math.NaN()

func TestSummaryStatistics(t *testing.T) {
	tb := table.MustNew(
		table.Numeric("v", 1, 2, 3, 4, 100, nan),
		table.Categorical("c", "a", "b", "c", "d", "e", "f"),
	)
	got := SummaryStatistics(tb)
	if len(got) != 1 || got[0].Column != "v" {
		t.Fatalf("expected stats for v only, got %+v", got)
	}
	s := got[0]
	if s.Count != 5 || s.Mean != 22 || s.Median != 3 || s.Min != 1 || s.Max != 100 || s.Q25 != 2 || s.Q75 != 4 {
		t.Fatalf("unexpected stats: %+v", s)
	}
	if math.Abs(float64(s.Std)-math.Sqrt(7610.0/4)) > 1e-9 {
		t.Fatalf("std should be the sample std, got %v", s.Std)
	}
}

func TestCorrelationsSymmetricWithUnitDiagonal(t *testing.T) {
	tb := table.MustNew(
		table.Numeric("x", 1, 2, 3, 4),
		table.Numeric("y", 2, 4, 6, 8),
		table.Numeric("z", 4, 3, 2, 1),
		table.Numeric("k", 5, 5, 5, 5),
		table.Categorical("c", "p", "q", "r", "s"),
	)
	m := Correlations(tb)
	if strings.Join(m.Columns, ",") != "x,y,z,k" {
		t.Fatalf("columns: %v", m.Columns)
	}
	for i := range m.Columns {
		for j := range m.Columns {
			a, b := m.Values[i][j], m.Values[j][i]
			if !(a == b || (math.IsNaN(a) && math.IsNaN(b))) {
				t.Fatalf("asymmetric at %d,%d: %v vs %v", i, j, a, b)
			}
		}
	}
	for _, name := range []string{"x", "y", "z"} {
		if r, _ := m.Get(name, name); r != 1 {
			t.Fatalf("diagonal %s = %v", name, r)
		}
	}
	if r, _ := m.Get("x", "y"); math.Abs(r-1) > 1e-12 {
		t.Fatalf("x~y = %v", r)
	}
	if r, _ := m.Get("x", "z"); math.Abs(r+1) > 1e-12 {
		t.Fatalf("x~z = %v", r)
	}
	if r, _ := m.Get("k", "k"); !math.IsNaN(r) {
		t.Fatalf("zero-variance diagonal should be undefined, got %v", r)
	}
	if _, ok := m.Get("x", "c"); ok {
		t.Fatalf("categorical column must not be in the matrix")
	}

	b, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]map[string]*float64
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	if decoded["x"]["k"] != nil || math.Abs(*decoded["y"]["x"]-1) > 1e-12 {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestCorrelationsPairwiseComplete(t *testing.T) {
	tb := table.MustNew(
		table.Numeric("x", 1, 2, 3, nan),
		table.Numeric("y", 2, 4, 6, 100),
	)
	if r, _ := Correlations(tb).Get("x", "y"); math.Abs(r-1) > 1e-12 {
		t.Fatalf("x~y over complete pairs = %v", r)
	}
}

func TestCorrelationsNeedTwoNumericColumns(t *testing.T) {
	tb := table.MustNew(table.Numeric("x", 1, 2), table.Categorical("c", "a", "b"))
	m := Correlations(tb)
	if len(m.Columns) != 0 {
		t.Fatalf("expected empty matrix, got %v", m.Columns)
	}
	b, _ := json.Marshal(m)
	if string(b) != "{}" {
		t.Fatalf("json = %s", b)
	}
}

func TestDistributions(t *testing.T) {
	many := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		many = append(many, fmt.Sprintf("v%02d", i))
	}
	tb := table.MustNew(
		table.Categorical("c", "b", "a", "b", "a", "c", "", "", "", "", "", "", ""),
		table.Numeric("n", 1, 1, 2, nan, 2.5, 3, 4, 5, 6, 7, 8, 9),
		table.Categorical("m", many...),
	)
	d := Distributions(tb)
	if len(d) != 3 {
		t.Fatalf("expected all columns, got %d", len(d))
	}
	want := []ValueCount{{"b", 2}, {"a", 2}, {"c", 1}}
	if fmt.Sprint(d[0].Values) != fmt.Sprint(want) {
		t.Fatalf("c distribution = %v", d[0].Values)
	}
	if d[1].Values[0] != (ValueCount{"1", 2}) || d[1].Values[2] != (ValueCount{"2.5", 1}) {
		t.Fatalf("n distribution = %v", d[1].Values)
	}
	if len(d[2].Values) != TopN || d[2].Values[0].Value != "v00" {
		t.Fatalf("m distribution = %v", d[2].Values)
	}
}

func TestAnalyzeLeavesInputUntouched(t *testing.T) {
	tb := table.MustNew(table.Numeric("x", 3, 1, 2), table.Numeric("y", 1, 2, nan))
	before := tb.Clone()
	res := Analyze(tb)
	if !tb.Equal(before) {
		t.Fatalf("input mutated")
	}
	if len(res.Summary) != 2 || len(res.Correlations.Columns) != 2 || len(res.Distributions) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestProfileAndMarkdown(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	vals := []float64{10, 11, 9.5, 10.5, 9.8, 10.2, 8.8, 9.7, 50, nan}
	tb := table.MustNew(
		table.Categorical("group", "A", "A", "A", "B", "B", "B", "A", "B", "A", "B"),
		table.Numeric("score", vals...),
		table.Numeric("temp", 70, 71, 69, 75, 74, 73, 68, 76, 95, 72),
		table.Datetime("day", day, day.AddDate(0, 0, 3), day.AddDate(0, 0, 1), time.Time{}, day, day, day, day, day, day),
	).WithName("metrics.csv")

	opt := DefaultOptions()
	opt.SampleRows = 3
	opt.GroupBy = []string{"group", "missing"}
	rep := Profile(tb, opt)

	if rep.Shape() != [2]int{10, 4} {
		t.Fatalf("shape = %v", rep.Shape())
	}
	score := rep.Cols[1]
	if score.Missing != 1 || score.NonNull != 9 || score.OutliersCount != 1 {
		t.Fatalf("score summary = %+v", score)
	}
	if day := rep.Cols[3]; day.Earliest != "2024-01-01" || day.Latest != "2024-01-04" {
		t.Fatalf("day range = %s..%s", day.Earliest, day.Latest)
	}
	if top := rep.Cols[0].TopValues; len(top) != 2 || top[0] != (ValueCount{"A", 5}) {
		t.Fatalf("top values = %v", top)
	}
	if len(rep.Groups) != 2 || rep.Groups[0].Key != "group=A" {
		t.Fatalf("groups = %+v", rep.Groups)
	}
	if m := rep.Groups[0].Metrics["temp"]; m.Count != 5 || m.Max != 95 {
		t.Fatalf("group A temp = %+v", m)
	}

	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: metrics.csv",
		"Rows: 10",
		"- score: numeric (non-null 9, missing 10.0%, unique 9)",
		"outliers: 1 above |z|>3.5",
		"- group: categorical",
		"top: A(5), B(5)",
		"range 2024-01-01 .. 2024-01-04",
		"[GROUP-BY SUMMARY]",
		"[CORRELATIONS]",
		"- score ~ temp: r=",
		"| group | score | temp | day |",
		"group-by column \"missing\" not found",
		"showing first 3 of 10 rows",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if _, err := json.Marshal(rep); err != nil {
		t.Fatalf("marshal report: %v", err)
	}
}

func TestProfileEmptyTable(t *testing.T) {
	rep := Profile(table.MustNew(), DefaultOptions())
	if rep.Rows != 0 || len(rep.Cols) != 0 || rep.Samples == nil {
		t.Fatalf("unexpected report %+v", rep)
	}
	if !strings.Contains(rep.Markdown(), "Columns: 0") {
		t.Fatalf("markdown: %s", rep.Markdown())
	}
}
