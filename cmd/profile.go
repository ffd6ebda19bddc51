package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/ingest"
	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

var (
	profFlags     readFlags
	profOutDir    string
	profGroupBy   []string
	profOutlierZ  float64
	profNoSamples bool
	profQuiet     bool
)

// expandInputs resolves globs and literal paths into a sorted, de-duplicated file list.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// summaryPath picks <dir>/<base>.summary.md, adding a __N suffix instead of overwriting.
func summaryPath(dir, file string) string {
	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	out := filepath.Join(dir, base+".summary.md")
	for idx := 2; ; idx++ {
		if _, err := os.Stat(out); os.IsNotExist(err) {
			return out
		}
		out = filepath.Join(dir, fmt.Sprintf("%s__%d.summary.md", base, idx))
	}
}

var profileCmd = &cobra.Command{
	Use:   "profile <files...>",
	Short: "Profile CSV/TSV/XLSX files without loading them into the session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		ropt, err := profFlags.options(c.MaxRows)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		opt.SampleRows = c.SampleRows
		opt.GroupBy = profGroupBy
		if profOutlierZ > 0 {
			opt.OutlierThreshold = profOutlierZ
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !profQuiet {
				fmt.Fprintf(out, "[%d/%d] Profiling %s...\n", i+1, total, filepath.Base(path))
			}
			t, err := ingest.ReadFile(path, ropt)
			if err != nil {
				return err
			}
			rep := analysis.Profile(t, opt)
			if profNoSamples {
				rep.Samples = nil
			}
			md := rep.Markdown()
			if profOutDir == "" {
				if !profQuiet {
					fmt.Fprintln(out, md)
				}
				continue
			}
			if err := utils.EnsureDir(profOutDir); err != nil {
				return err
			}
			dest := summaryPath(profOutDir, path)
			if err := utils.SafeWriteFile(dest, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !profQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", dest)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profFlags.register(profileCmd)
	f := profileCmd.Flags()
	f.StringVarP(&profOutDir, "output-dir", "o", "", "write one <name>.summary.md per file into this directory")
	f.StringSliceVar(&profGroupBy, "group-by", nil, "column names to group numeric summaries by")
	f.Float64Var(&profOutlierZ, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	f.BoolVar(&profNoSamples, "no-samples", false, "omit the head rows from each summary")
	f.BoolVar(&profQuiet, "quiet", false, "suppress progress and non-essential output")
}
