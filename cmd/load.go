package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/analysis"
	"github.com/KaramelBytes/datapro-cli/internal/ingest"
	"github.com/KaramelBytes/datapro-cli/internal/session"
)

// readFlags are the ingestion flags shared by load and profile.
type readFlags struct {
	delimiter string
	decimal   string
	thousands string
	sheetName string
	sheetIdx  int
	maxRows   int
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	cmd.Flags().StringVar(&f.decimal, "decimal", "", "decimal separator for numbers: '.'|'comma'")
	cmd.Flags().StringVar(&f.thousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space'")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIdx, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = config max_rows)")
}

func (f *readFlags) options(defaultMaxRows int) (ingest.Options, error) {
	opt := ingest.Options{
		MaxRows:    defaultMaxRows,
		SheetName:  f.sheetName,
		SheetIndex: f.sheetIdx,
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	switch strings.ToLower(strings.TrimSpace(f.decimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", f.decimal)
	}
	switch strings.ToLower(strings.TrimSpace(f.thousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", f.thousands)
	}
	if opt.DecimalSeparator != 0 && opt.DecimalSeparator == opt.ThousandsSeparator {
		return opt, fmt.Errorf("--decimal and --thousands must differ")
	}
	return opt, nil
}

var loadFlags readFlags

var loadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load a CSV/TSV/XLSX file as the active dataset",
	Long:  "Load replaces the active session: the file becomes the original table and any previous cleaned variant is discarded.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt, err := loadFlags.options(c.MaxRows)
		if err != nil {
			return err
		}
		t, err := ingest.ReadFile(args[0], opt)
		if err != nil {
			return err
		}
		store := session.NewStore(c.SessionDir)
		sess, err := store.Replace(t.Name(), t)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Loaded %s: %d rows × %d columns\n", sess.SourceName, t.NumRows(), t.NumCols())
		renderSchema(out, analysis.Profile(t, analysis.Options{SampleRows: 1}))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadFlags.register(loadCmd)
}
