package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/metrics"
	"github.com/KaramelBytes/datapro-cli/internal/modeling"
	"github.com/KaramelBytes/datapro-cli/internal/server"
	"github.com/KaramelBytes/datapro-cli/internal/session"
	"github.com/KaramelBytes/datapro-cli/internal/viz"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve exposes upload, cleaning, analysis, modeling, charts and export as a JSON API
under /api, with Prometheus metrics at /metrics. The session directory is shared
with the other commands, so a dataset loaded on the command line is served as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		store := session.NewStore(c.SessionDir)
		if err := store.Open(); err != nil {
			return fmt.Errorf("open session: %w", err)
		}
		seed := c.RandomSeed
		srv := server.New(store, metrics.New(), server.Options{
			PreviewRows: c.SampleRows,
			MaxRows:     c.MaxRows,
			Model: modeling.Params{
				NClusters:   c.DefaultClusters,
				Seed:        &seed,
				TestSize:    c.TestSize,
				NEstimators: c.NEstimators,
			},
			Renderer: viz.NewPNGRenderer(c.ChartWidth, c.ChartHeight),
		})
		addr := c.ServerAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (Ctrl+C to stop)\n", addr)
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: config server_addr)")
}
