package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/ingest"
	"github.com/KaramelBytes/datapro-cli/internal/session"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the cleaned table to a CSV file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		if !sess.HasCleaned() {
			return session.ErrNoCleanedData
		}
		path := exportOutput
		if path == "" {
			path = fmt.Sprintf("cleaned_data_%s.csv", time.Now().Format("20060102_150405"))
		}
		if err := ingest.WriteCSVFile(path, sess.Cleaned); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rows to %s\n", sess.Cleaned.NumRows(), path)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard the active dataset and its cleaned variant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := session.Clear(c.SessionDir); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Data cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output CSV path (default: cleaned_data_<timestamp>.csv)")
}
