package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/session"
)

var (
	previewRows     int
	previewOriginal bool
)

// loadSession opens the persisted session of the configured session dir.
func loadSession() (*session.Session, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	return session.Load(c.SessionDir)
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the first rows of the active dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		t, variant := sess.Current(), "cleaned"
		if previewOriginal || !sess.HasCleaned() {
			t, variant = sess.Original, "original"
		}
		n := previewRows
		if n <= 0 {
			n = cfg.SampleRows
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s): %d rows × %d columns\n", sess.SourceName, variant, t.NumRows(), t.NumCols())
		renderRecords(out, t, n)
		return nil
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "List the columns of the loaded dataset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "numeric: %s\n", strings.Join(sess.Original.NumericNames(), ", "))
		fmt.Fprintf(out, "all: %s\n", strings.Join(sess.Original.ColumnNames(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(columnsCmd)
	previewCmd.Flags().IntVarP(&previewRows, "rows", "n", 0, "rows to show (default: config sample_rows)")
	previewCmd.Flags().BoolVar(&previewOriginal, "original", false, "show the original table even when a cleaned variant exists")
}
