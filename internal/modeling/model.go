// Package modeling fits regression, classification and clustering models on a table
// and reports evaluation metrics. Fitted models never leave the package.
package modeling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datapro-cli/internal/errs"
	"github.com/KaramelBytes/datapro-cli/internal/stats"
	"github.com/KaramelBytes/datapro-cli/internal/table"
)

type Task string

const (
	TaskRegression     Task = "regression"
	TaskClassification Task = "classification"
	TaskClustering     Task = "clustering"
)

var tasks = []string{string(TaskRegression), string(TaskClassification), string(TaskClustering)}

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	switch t := Task(strings.ToLower(strings.TrimSpace(s))); t {
	case TaskRegression, TaskClassification, TaskClustering:
		return t, nil
	}
	return "", &errs.UnknownMethodError{Param: "task_type", Value: s, Allowed: tasks}
}

const (
	DefaultSeed     int64   = 42
	DefaultTestSize float64 = 0.2
	DefaultTrees            = 100
	DefaultClusters         = 3

	NoFeaturesMessage = "No numeric features available"

	ModelLinear     = "Linear Regression"
	ModelForest     = "Random Forest"
	ModelClassifier = "Random Forest Classifier"
)

// Params tunes a run. Zero values select the defaults.
type Params struct {
	NClusters   int     `json:"n_clusters,omitempty" yaml:"n_clusters,omitempty"`
	Seed        *int64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	TestSize    float64 `json:"test_size,omitempty" yaml:"test_size,omitempty"`
	NEstimators int     `json:"n_estimators,omitempty" yaml:"n_estimators,omitempty"`
	MaxDepth    int     `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`
}

func (p Params) withDefaults() Params {
	if p.NClusters == 0 {
		p.NClusters = DefaultClusters
	}
	if p.Seed == nil {
		s := DefaultSeed
		p.Seed = &s
	}
	if p.TestSize == 0 {
		p.TestSize = DefaultTestSize
	}
	if p.NEstimators == 0 {
		p.NEstimators = DefaultTrees
	}
	return p
}

// Result is tagged by Task; exactly one of the task fields is set unless NoFeatures.
type Result struct {
	Task       Task   `json:"task"`
	NoFeatures bool   `json:"no_features,omitempty"`
	Message    string `json:"message,omitempty"`

	Features  []string `json:"features,omitempty"`
	Target    string   `json:"target,omitempty"`
	TrainRows int      `json:"train_rows,omitempty"`
	TestRows  int      `json:"test_rows,omitempty"`

	Regression     *RegressionResult     `json:"regression,omitempty"`
	Classification *ClassificationResult `json:"classification,omitempty"`
	Clustering     *ClusteringResult     `json:"clustering,omitempty"`
}

// Scores are held-out regression metrics.
type Scores struct {
	R2   stats.Number `json:"r2_score"`
	RMSE stats.Number `json:"rmse"`
	MSE  stats.Number `json:"mse"`
}

type RegressionResult struct {
	LinearRegression Scores `json:"linear_regression"`
	RandomForest     Scores `json:"random_forest"`
	BestModel        string `json:"best_model"`
}

type ClassificationResult struct {
	Accuracy stats.Number `json:"accuracy"`
	Model    string       `json:"model"`
	Classes  []string     `json:"classes"`
}

type ClusteringResult struct {
	NClusters       int          `json:"n_clusters"`
	Inertia         stats.Number `json:"inertia"`
	SilhouetteScore Metric       `json:"silhouette_score"`
	ClusterSizes    []int        `json:"cluster_sizes"`
}

type MetricStatus string

const (
	MetricComputed    MetricStatus = "computed"
	MetricUnavailable MetricStatus = "unavailable"
)

// Metric is a value that may not have been computed.
type Metric struct {
	Status MetricStatus  `json:"status"`
	Value  *stats.Number `json:"value,omitempty"`
}

func Unavailable() Metric { return Metric{Status: MetricUnavailable} }

// Run fits the models for task on t. target may be empty only for clustering; when
// given it must name a column for every task. t is never modified.
func Run(ctx context.Context, t *table.Table, task Task, target string, params Params) (*Result, error) {
	if _, err := ParseTask(string(task)); err != nil {
		return nil, err
	}
	task = Task(strings.ToLower(strings.TrimSpace(string(task))))
	if (target != "" || task != TaskClustering) && !t.Has(target) {
		return nil, &errs.InvalidTargetError{Column: target}
	}
	params = params.withDefaults()

	var (
		res *Result
		err error
	)
	switch task {
	case TaskRegression:
		res, err = runRegression(ctx, t, target, params)
	case TaskClassification:
		res, err = runClassification(ctx, t, target, params)
	default:
		res, err = runClustering(ctx, t, params)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("model run", "task", string(task), "target", target,
		"features", len(res.Features), "train_rows", res.TrainRows, "test_rows", res.TestRows)
	return res, nil
}

func noFeatures(task Task) *Result {
	return &Result{Task: task, NoFeatures: true, Message: NoFeaturesMessage}
}

// design collects the feature matrix over rows where every listed column is non-null.
func design(t *table.Table, features []string, extra string) (X [][]float64, rows []int) {
	cols := make([]*table.Column, 0, len(features)+1)
	for _, name := range features {
		c, _ := t.Column(name)
		cols = append(cols, c)
	}
	if extra != "" {
		c, _ := t.Column(extra)
		cols = append(cols, c)
	}
	for i := 0; i < t.NumRows(); i++ {
		ok := true
		for _, c := range cols {
			if c.IsNull(i) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		row := make([]float64, len(features))
		for j := range features {
			row[j] = cols[j].Float(i)
		}
		X = append(X, row)
		rows = append(rows, i)
	}
	return X, rows
}

func featureNames(t *table.Table, exclude string) []string {
	var out []string
	for _, name := range t.NumericNames() {
		if name != exclude {
			out = append(out, name)
		}
	}
	return out
}

func pick[T any](src []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

func fitErr(model string, err error) error {
	return &errs.FitError{Model: model, Err: err}
}

func runRegression(ctx context.Context, t *table.Table, target string, p Params) (*Result, error) {
	features := featureNames(t, target)
	if len(features) == 0 {
		return noFeatures(TaskRegression), nil
	}
	tc, _ := t.Column(target)
	if tc.Kind() != table.KindNumeric {
		return nil, fitErr("regression", fmt.Errorf("target %q is %s, not numeric", target, tc.Kind()))
	}
	X, rows := design(t, features, target)
	y := make([]float64, len(rows))
	for i, r := range rows {
		y[i] = tc.Float(r)
	}
	train, test, err := TrainTestSplit(len(rows), p.TestSize, *p.Seed)
	if err != nil {
		return nil, fitErr("regression", err)
	}
	Xtr, ytr := pick(X, train), pick(y, train)
	Xte, yte := pick(X, test), pick(y, test)

	var lr LinearRegression
	if err := lr.Fit(Xtr, ytr); err != nil {
		return nil, fitErr(ModelLinear, err)
	}
	rf := NewForestRegressor(WithTrees(p.NEstimators), WithMaxDepth(p.MaxDepth), WithSeed(*p.Seed))
	if err := rf.Fit(ctx, Xtr, ytr); err != nil {
		return nil, fitErr(ModelForest, err)
	}
	lrScores := score(yte, lr.Predict(Xte))
	rfScores := score(yte, rf.Predict(Xte))
	best := ModelLinear
	if float64(rfScores.R2) > float64(lrScores.R2) {
		best = ModelForest
	}
	return &Result{
		Task: TaskRegression, Features: features, Target: target,
		TrainRows: len(train), TestRows: len(test),
		Regression: &RegressionResult{LinearRegression: lrScores, RandomForest: rfScores, BestModel: best},
	}, nil
}

func score(yTrue, yPred []float64) Scores {
	return Scores{
		R2:   stats.Number(R2(yTrue, yPred)),
		RMSE: stats.Number(RMSE(yTrue, yPred)),
		MSE:  stats.Number(MSE(yTrue, yPred)),
	}
}

func runClassification(ctx context.Context, t *table.Table, target string, p Params) (*Result, error) {
	features := featureNames(t, target)
	if len(features) == 0 {
		return noFeatures(TaskClassification), nil
	}
	tc, _ := t.Column(target)
	X, rows := design(t, features, target)
	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = tc.Text(r)
	}
	classes := sortedClasses(labels)
	if len(classes) < 2 {
		return nil, fitErr(ModelClassifier, fmt.Errorf("target %q needs at least 2 classes, found %d", target, len(classes)))
	}
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]float64, len(labels))
	for i, l := range labels {
		y[i] = float64(index[l])
	}
	train, test, err := TrainTestSplit(len(rows), p.TestSize, *p.Seed)
	if err != nil {
		return nil, fitErr(ModelClassifier, err)
	}
	mf := int(math.Sqrt(float64(len(features))))
	if mf < 1 {
		mf = 1
	}
	rf := NewForestClassifier(len(classes), WithTrees(p.NEstimators), WithMaxDepth(p.MaxDepth),
		WithMaxFeatures(mf), WithSeed(*p.Seed))
	if err := rf.Fit(ctx, pick(X, train), pick(y, train)); err != nil {
		return nil, fitErr(ModelClassifier, err)
	}
	pred := rf.PredictClass(pick(X, test))
	truth := make([]int, len(test))
	for i, r := range test {
		truth[i] = int(y[r])
	}
	return &Result{
		Task: TaskClassification, Features: features, Target: target,
		TrainRows: len(train), TestRows: len(test),
		Classification: &ClassificationResult{
			Accuracy: stats.Number(Accuracy(truth, pred)),
			Model:    ModelClassifier,
			Classes:  classes,
		},
	}, nil
}

// sortedClasses returns the distinct labels, numerically ordered when all of them are numbers.
func sortedClasses(labels []string) []string {
	seen := map[string]struct{}{}
	var out []string
	numeric := true
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
		if _, err := strconv.ParseFloat(l, 64); err != nil {
			numeric = false
		}
	}
	if numeric {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.ParseFloat(out[i], 64)
			b, _ := strconv.ParseFloat(out[j], 64)
			return a < b
		})
	} else {
		sort.Strings(out)
	}
	return out
}

func runClustering(ctx context.Context, t *table.Table, p Params) (*Result, error) {
	features := t.NumericNames()
	if len(features) == 0 {
		return noFeatures(TaskClustering), nil
	}
	X, _ := design(t, features, "")
	km := NewKMeans(p.NClusters, WithKMeansSeed(*p.Seed))
	if len(X) == 0 {
		return nil, fitErr("kmeans", errors.New("no complete rows to cluster"))
	}
	if err := km.Fit(ctx, X); err != nil {
		return nil, fitErr("kmeans", err)
	}
	sizes := make([]int, km.K)
	for _, l := range km.Labels {
		sizes[l]++
	}
	return &Result{
		Task: TaskClustering, Features: features, TrainRows: len(X),
		Clustering: &ClusteringResult{
			NClusters:       km.K,
			Inertia:         stats.Number(km.Inertia),
			SilhouetteScore: Unavailable(),
			ClusterSizes:    sizes,
		},
	}, nil
}
