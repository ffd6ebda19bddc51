package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
)

// resetFlags restores every flag of c and its subcommands to its default so
// Changed state and bound variables do not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execute(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("x,y,label\n")
	for i := 0; i < 10; i++ {
		y := fmt.Sprint(2*i + 1)
		if i == 3 {
			y = ""
		}
		label := "low"
		if i >= 5 {
			label = "high"
		}
		fmt.Fprintf(&b, "%d,%s,%s\n", i, y, label)
	}
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestCLI_Load_Clean_Analyze_Model_Export(t *testing.T) {
	home := isolatedHome(t)
	data := writeSample(t, home)

	out := runCmd(t, "load", data)
	if !strings.Contains(out, "Loaded data.csv: 10 rows × 3 columns") {
		t.Fatalf("unexpected load output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".datapro", "session", "session.json")); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}

	out = runCmd(t, "columns")
	if !strings.Contains(out, "numeric: x, y") || !strings.Contains(out, "all: x, y, label") {
		t.Fatalf("unexpected columns output:\n%s", out)
	}

	out = runCmd(t, "clean", "--missing", "drop", "--drop-duplicates")
	if !strings.Contains(out, "10 → 9 rows") {
		t.Fatalf("unexpected clean output:\n%s", out)
	}

	out = runCmd(t, "preview", "--rows", "3")
	if !strings.Contains(out, "(cleaned): 9 rows") || !strings.Contains(out, "(3 of 9 rows)") {
		t.Fatalf("unexpected preview output:\n%s", out)
	}

	edaPath := filepath.Join(home, "eda.json")
	runCmd(t, "analyze", "--format", "json", "-o", edaPath)
	body, err := os.ReadFile(edaPath)
	if err != nil {
		t.Fatalf("read analysis: %v", err)
	}
	if !strings.Contains(string(body), `"summary_statistics"`) || !strings.Contains(string(body), `"correlations"`) {
		t.Fatalf("analysis json missing sections:\n%s", body)
	}

	out = runCmd(t, "analyze")
	if !strings.Contains(out, "[DATASET SUMMARY]") {
		t.Fatalf("expected markdown report:\n%s", out)
	}

	out = runCmd(t, "model", "regression", "--target", "y", "--format", "json")
	if !strings.Contains(out, `"best_model"`) || !strings.Contains(out, `"r2_score"`) {
		t.Fatalf("unexpected model output:\n%s", out)
	}

	out = runCmd(t, "model", "clustering", "-k", "2")
	if !strings.Contains(out, "Inertia:") || !strings.Contains(out, "Silhouette: unavailable") {
		t.Fatalf("unexpected clustering output:\n%s", out)
	}

	png := filepath.Join(home, "chart.png")
	runCmd(t, "visualize", "scatter", "--columns", "x,y", "-o", png)
	img, err := os.ReadFile(png)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("chart is not a PNG")
	}

	out = runCmd(t, "visualize", "heatmap")
	if !strings.Contains(out, `"viz_type": "heatmap"`) {
		t.Fatalf("unexpected heatmap spec:\n%s", out)
	}
	heat := filepath.Join(home, "heat.png")
	runCmd(t, "visualize", "heatmap", "-o", heat)
	if img, err = os.ReadFile(heat); err != nil || !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Fatalf("heatmap not rendered: %v", err)
	}

	csvPath := filepath.Join(home, "out.csv")
	runCmd(t, "export", "-o", csvPath)
	exported, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(exported)), "\n")
	if len(lines) != 10 || lines[0] != "x,y,label" {
		t.Fatalf("unexpected export:\n%s", exported)
	}

	runCmd(t, "clear")
	if _, err := execute("preview"); !errors.Is(err, errs.ErrNoDataLoaded) {
		t.Fatalf("expected no data loaded after clear, got %v", err)
	}
}

func TestCLI_ExportRequiresCleanedData(t *testing.T) {
	home := isolatedHome(t)
	runCmd(t, "load", writeSample(t, home))

	_, err := execute("export", "-o", filepath.Join(home, "out.csv"))
	if !errors.Is(err, errs.ErrNoDataLoaded) {
		t.Fatalf("expected no cleaned data error, got %v", err)
	}
}

func TestCLI_CommandErrorsKeepTheirKind(t *testing.T) {
	home := isolatedHome(t)
	runCmd(t, "load", writeSample(t, home))
	runCmd(t, "clean", "--missing", "mean")

	cases := []struct {
		args []string
		kind errs.Kind
	}{
		{[]string{"clean", "--missing", "interpolate"}, errs.KindUnknownMethod},
		{[]string{"model", "ranking"}, errs.KindUnknownMethod},
		{[]string{"model", "regression", "--target", "nope"}, errs.KindInvalidTarget},
		{[]string{"visualize", "scatter", "--columns", "x"}, errs.KindValidation},
		{[]string{"visualize", "histogram", "--columns", "label"}, errs.KindColumn},
	}
	for _, tc := range cases {
		_, err := execute(tc.args...)
		if err == nil {
			t.Fatalf("%v: expected error", tc.args)
		}
		if got := errs.KindOf(err); got != tc.kind {
			t.Fatalf("%v: kind %s, want %s (%v)", tc.args, got, tc.kind, err)
		}
	}

	// the failed clean kept the earlier cleaned variant
	out := runCmd(t, "preview")
	if !strings.Contains(out, "(cleaned): 10 rows") {
		t.Fatalf("cleaned variant lost:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolatedHome(t)

	runCmd(t, "config", "set", "sample_rows", "3")
	if _, err := os.Stat(filepath.Join(home, ".datapro", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "sample_rows: 3") {
		t.Fatalf("unexpected config:\n%s", out)
	}
	if _, err := execute("config", "set", "bogus_key", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if _, err := execute("config", "set", "test_size", "1.5"); err == nil {
		t.Fatalf("expected out of range test_size to be rejected")
	}
}

func TestCLI_ProfileWritesSummaries(t *testing.T) {
	home := isolatedHome(t)

	// two files with the same basename in different directories
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	for _, d := range []string{"d1", "d2"} {
		dir := filepath.Join(home, d)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "metrics.csv"), []byte(csv), 0o644); err != nil {
			t.Fatalf("write %s: %v", d, err)
		}
	}
	outDir := filepath.Join(home, "summaries")
	runCmd(t, "profile", filepath.Join(home, "d*", "metrics.csv"), "--output-dir", outDir, "--no-samples", "--quiet")

	for _, name := range []string{"metrics.summary.md", "metrics__2.summary.md"} {
		body, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("missing summary %s: %v", name, err)
		}
		if !strings.Contains(string(body), "Rows: 3") {
			t.Fatalf("unexpected summary %s:\n%s", name, body)
		}
		if strings.Contains(string(body), "[HEAD]") {
			t.Fatalf("expected no sample rows in %s", name)
		}
	}

	if _, err := execute("profile", filepath.Join(home, "nothing*.csv")); err == nil {
		t.Fatalf("expected error for unmatched inputs")
	}
}
