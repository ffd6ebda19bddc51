package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

var (
	anaFormat     string
	anaOutputPath string
	anaGroupBy    []string
	anaOutlierThr float64
	anaOriginal   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summary statistics, correlations and value distributions of the active dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		t := sess.Current()
		if anaOriginal {
			t = sess.Original
		}

		var buf bytes.Buffer
		switch anaFormat {
		case "md", "markdown":
			opt := analysis.DefaultOptions()
			opt.SampleRows = cfg.SampleRows
			opt.GroupBy = anaGroupBy
			if anaOutlierThr > 0 {
				opt.OutlierThreshold = anaOutlierThr
			}
			buf.WriteString(analysis.Profile(t, opt).Markdown())
		case "json":
			b, err := utils.PrettyJSON(analysis.Analyze(t))
			if err != nil {
				return err
			}
			buf.Write(b)
			buf.WriteByte('\n')
		case "table":
			res := analysis.Analyze(t)
			renderStats(&buf, res.Summary)
			renderCorrelations(&buf, res.Correlations)
			renderDistributions(&buf, res.Distributions)
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json|table)", anaFormat)
		}

		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		_, err = cmd.OutOrStdout().Write(buf.Bytes())
		return err
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "md", "output format: md|json|table")
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the analysis")
	analyzeCmd.Flags().StringSliceVar(&anaGroupBy, "group-by", nil, "md: column names to group numeric summaries by")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "md: robust |z| threshold for outliers (MAD-based)")
	analyzeCmd.Flags().BoolVar(&anaOriginal, "original", false, "analyze the original table even when a cleaned variant exists")
}
