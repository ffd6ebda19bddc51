package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datapro-cli/internal/modeling"
	"github.com/KaramelBytes/datapro-cli/internal/utils"
)

var (
	modTarget   string
	modClusters int
	modSeed     int64
	modTestSize float64
	modTrees    int
	modMaxDepth int
	modFormat   string
)

// modelParams merges explicit flags over the configured modeling defaults.
func modelParams(cmd *cobra.Command) modeling.Params {
	f := cmd.Flags()
	seed := cfg.RandomSeed
	if f.Changed("seed") {
		seed = modSeed
	}
	p := modeling.Params{
		NClusters:   cfg.DefaultClusters,
		Seed:        &seed,
		TestSize:    cfg.TestSize,
		NEstimators: cfg.NEstimators,
		MaxDepth:    modMaxDepth,
	}
	if f.Changed("clusters") {
		p.NClusters = modClusters
	}
	if f.Changed("test-size") {
		p.TestSize = modTestSize
	}
	if f.Changed("trees") {
		p.NEstimators = modTrees
	}
	return p
}

var modelCmd = &cobra.Command{
	Use:       "model <regression|classification|clustering>",
	Short:     "Fit models on the active dataset and report held-out metrics",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(modeling.TaskRegression), string(modeling.TaskClassification), string(modeling.TaskClustering)},
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := modeling.ParseTask(args[0])
		if err != nil {
			return err
		}
		sess, err := loadSession()
		if err != nil {
			return err
		}
		res, err := modeling.Run(cmd.Context(), sess.Current(), task, modTarget, modelParams(cmd))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch modFormat {
		case "json":
			b, err := utils.PrettyJSON(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
		case "table":
			renderModel(out, res)
		default:
			return fmt.Errorf("unsupported --format: %s (use table|json)", modFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	f := modelCmd.Flags()
	f.StringVarP(&modTarget, "target", "t", "", "target column (optional for clustering)")
	f.IntVarP(&modClusters, "clusters", "k", 0, "clustering: number of clusters (default: config default_clusters)")
	f.Int64Var(&modSeed, "seed", 0, "random seed (default: config random_seed)")
	f.Float64Var(&modTestSize, "test-size", 0, "held-out fraction (default: config test_size)")
	f.IntVar(&modTrees, "trees", 0, "random forest size (default: config n_estimators)")
	f.IntVar(&modMaxDepth, "max-depth", 0, "random forest tree depth limit (0 = unlimited)")
	f.StringVar(&modFormat, "format", "table", "output format: table|json")
}
