package modeling

import (
	"context"
	"errors"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Forest is a bagged ensemble of CART trees. Each tree sees a bootstrap sample and
// draws its randomness from Seed + tree index, so fits are reproducible regardless
// of scheduling.
type Forest struct {
	NEstimators int
	MaxDepth    int
	// MaxFeatures is the number of features considered per split; 0 => all.
	MaxFeatures int
	Bootstrap   bool
	Seed        int64
	// Classes > 0 makes the forest a classifier over labels 0..Classes-1.
	Classes int

	trees []*tree
}

// ForestOption configures a Forest.
type ForestOption func(*Forest)

func WithTrees(n int) ForestOption       { return func(f *Forest) { f.NEstimators = n } }
func WithMaxDepth(d int) ForestOption    { return func(f *Forest) { f.MaxDepth = d } }
func WithMaxFeatures(k int) ForestOption { return func(f *Forest) { f.MaxFeatures = k } }
func WithSeed(seed int64) ForestOption   { return func(f *Forest) { f.Seed = seed } }
func WithBootstrap(b bool) ForestOption  { return func(f *Forest) { f.Bootstrap = b } }

// NewForestRegressor returns a regressor considering all features at every split.
func NewForestRegressor(opts ...ForestOption) *Forest {
	f := &Forest{NEstimators: 100, Bootstrap: true, Seed: DefaultSeed}
	for _, o := range opts {
		o(f)
	}
	return f
}

// NewForestClassifier returns a classifier over the given number of classes.
func NewForestClassifier(classes int, opts ...ForestOption) *Forest {
	f := NewForestRegressor(opts...)
	f.Classes = classes
	return f
}

// Fit trains the trees concurrently, bounded by GOMAXPROCS. A cancelled ctx aborts the fit.
func (f *Forest) Fit(ctx context.Context, X [][]float64, y []float64) error {
	n := len(X)
	if n == 0 || len(y) != n {
		return errors.New("forest: empty or mismatched input")
	}
	if f.NEstimators < 1 {
		return errors.New("forest: need at least one tree")
	}
	trees := make([]*tree, f.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(f.Seed + int64(i)))
			idx := make([]int, n)
			for j := range idx {
				if f.Bootstrap {
					idx[j] = rng.Intn(n)
				} else {
					idx[j] = j
				}
			}
			tr := &tree{
				maxDepth:    f.MaxDepth,
				maxFeatures: f.MaxFeatures,
				classes:     f.Classes,
				rng:         rng,
			}
			tr.fit(X, y, idx)
			trees[i] = tr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	f.trees = trees
	return nil
}

// Predict averages the trees' outputs (regression).
func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		s := 0.0
		for _, t := range f.trees {
			s += t.leafFor(x).value
		}
		out[i] = s / float64(len(f.trees))
	}
	return out
}

// PredictClass averages class probabilities over trees and returns the argmax,
// lowest class index on ties.
func (f *Forest) PredictClass(X [][]float64) []int {
	out := make([]int, len(X))
	probas := make([]float64, f.Classes)
	for i, x := range X {
		for c := range probas {
			probas[c] = 0
		}
		for _, t := range f.trees {
			for c, p := range t.leafFor(x).probas {
				probas[c] += p
			}
		}
		best := 0
		for c := 1; c < len(probas); c++ {
			if probas[c] > probas[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out
}
