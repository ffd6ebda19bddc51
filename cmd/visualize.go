package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/utils"
	"github.com/KaramelBytes/datapro-cli/internal/viz"
)

var (
	vizColumns []string
	vizColor   string
	vizTitle   string
	vizOutput  string
)

var visualizeCmd = &cobra.Command{
	Use:   "visualize <" + strings.Join(viz.Kinds(), "|") + ">",
	Short: "Build a chart of the active dataset as a PNG or JSON spec",
	Long: `Visualize validates the requested columns and builds the chart data. With --output
ending in .png the chart is rendered with go-chart; any other --output path (or none)
receives the JSON chart spec. Box plots are available as JSON only.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		spec, err := viz.Build(sess.Current(), viz.Request{
			Kind:    viz.Kind(strings.ToLower(args[0])),
			Columns: vizColumns,
			Color:   vizColor,
			Title:   vizTitle,
		})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if strings.EqualFold(filepath.Ext(vizOutput), ".png") {
			r := viz.NewPNGRenderer(cfg.ChartWidth, cfg.ChartHeight)
			if err := viz.WriteFile(vizOutput, r, spec); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Chart written to %s\n", vizOutput)
			return nil
		}
		b, err := utils.PrettyJSON(spec)
		if err != nil {
			return err
		}
		if vizOutput == "" {
			fmt.Fprintln(out, string(b))
			return nil
		}
		if err := utils.SafeWriteFile(vizOutput, b); err != nil {
			return fmt.Errorf("write chart spec: %w", err)
		}
		fmt.Fprintf(out, "✓ Chart spec written to %s\n", vizOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(visualizeCmd)
	f := visualizeCmd.Flags()
	f.StringSliceVarP(&vizColumns, "columns", "c", nil, "columns to plot, in order (x,y for scatter and line)")
	f.StringVar(&vizColor, "color", "", "series color as hex, e.g. #1f77b4")
	f.StringVar(&vizTitle, "title", "", "chart title (default: '<Kind> Chart')")
	f.StringVarP(&vizOutput, "output", "o", "", "write to a .png image or a .json spec instead of stdout")
}
