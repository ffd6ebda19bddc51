package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/cleaning"
)

var (
	cleanFile             string
	cleanMissing          string
	cleanDropDuplicates   bool
	cleanOutliers         string
	cleanOutlierColumns   []string
	cleanNormalize        string
	cleanNormalizeColumns []string
)

// cleaningConfig builds the step configuration from --file, then applies explicit flags on top.
func cleaningConfig(cmd *cobra.Command) (cleaning.Config, error) {
	cc := cleaning.DefaultConfig()
	if cleanFile != "" {
		loaded, err := cleaning.LoadConfig(cleanFile)
		if err != nil {
			return cc, err
		}
		cc = loaded
	}
	f := cmd.Flags()
	if f.Changed("missing") {
		cc.HandleMissing = true
		cc.MissingMethod = cleaning.MissingMethod(strings.ToLower(cleanMissing))
	}
	if f.Changed("drop-duplicates") {
		cc.RemoveDuplicates = cleanDropDuplicates
	}
	if f.Changed("outliers") {
		cc.HandleOutliers = true
		cc.OutlierMethod = cleaning.OutlierMethod(strings.ToLower(cleanOutliers))
	}
	if f.Changed("outlier-columns") {
		cc.OutlierColumns = cleanOutlierColumns
	}
	if f.Changed("normalize") {
		cc.Normalize = true
		cc.NormalizeMethod = cleaning.NormalizeMethod(strings.ToLower(cleanNormalize))
	}
	if f.Changed("normalize-columns") {
		cc.NormalizeColumns = cleanNormalizeColumns
	}
	return cc, cc.Validate()
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the original table and store the result as the cleaned variant",
	Long: `Clean always starts from the original table. Steps run in a fixed order:
missing values, duplicates, outliers, normalization. A failed run keeps the previous
cleaned variant.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cc, err := cleaningConfig(cmd)
		if err != nil {
			return err
		}
		sess, err := loadSession()
		if err != nil {
			return err
		}
		out, err := cleaning.Clean(sess.Original, cc)
		if err != nil {
			return err
		}
		next := sess.WithCleaned(out)
		if err := next.Save(); err != nil {
			return fmt.Errorf("save cleaned table: %w", err)
		}
		sum := cleaning.Summarize(sess.Original, out, cc)
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Data cleaned: %d → %d rows, %d columns\n", sum.RowsBefore, sum.RowsAfter, sum.Columns)
		if len(sum.Steps) == 0 {
			fmt.Fprintln(w, "No cleaning steps selected; cleaned table is a copy of the original")
		} else {
			fmt.Fprintf(w, "Steps: %s\n", strings.Join(sum.Steps, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	f := cleanCmd.Flags()
	f.StringVarP(&cleanFile, "file", "f", "", "YAML/JSON cleaning config; flags override its values")
	f.StringVar(&cleanMissing, "missing", "", "handle missing values: drop|mean|median|forward_fill|backward_fill")
	f.BoolVar(&cleanDropDuplicates, "drop-duplicates", false, "remove duplicate rows")
	f.StringVar(&cleanOutliers, "outliers", "", "handle outliers: iqr|zscore")
	f.StringSliceVar(&cleanOutlierColumns, "outlier-columns", nil, "numeric columns to clip with iqr (default: all numeric)")
	f.StringVar(&cleanNormalize, "normalize", "", "normalize columns: standard|minmax")
	f.StringSliceVar(&cleanNormalizeColumns, "normalize-columns", nil, "numeric columns to normalize")
}
