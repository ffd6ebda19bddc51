package modeling

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// KMeans partitions rows into K clusters with Lloyd's algorithm, seeded by k-means++.
// The best of NInit restarts (lowest inertia) is kept.
type KMeans struct {
	K       int
	MaxIter int
	NInit   int
	Seed    int64

	Centroids [][]float64
	Labels    []int
	Inertia   float64 // Sum of squared distances to nearest centroid
}

type KMeansOption func(*KMeans)

func WithKMeansSeed(seed int64) KMeansOption { return func(m *KMeans) { m.Seed = seed } }
func WithNInit(n int) KMeansOption           { return func(m *KMeans) { m.NInit = n } }
func WithMaxIter(n int) KMeansOption         { return func(m *KMeans) { m.MaxIter = n } }

func NewKMeans(k int, opts ...KMeansOption) *KMeans {
	m := &KMeans{K: k, MaxIter: 300, NInit: 10, Seed: DefaultSeed}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *KMeans) Fit(ctx context.Context, X [][]float64) error {
	n := len(X)
	if n == 0 {
		return errors.New("kmeans: input data cannot be empty")
	}
	if m.K < 1 || m.K > n {
		return fmt.Errorf("kmeans: n_clusters=%d must be between 1 and the number of rows (%d)", m.K, n)
	}
	runs := m.NInit
	if runs < 1 {
		runs = 1
	}
	m.Inertia = math.Inf(1)
	for r := 0; r < runs; r++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rng := rand.New(rand.NewSource(m.Seed + int64(r)))
		centroids, labels, inertia := m.lloyd(X, initPlusPlus(X, m.K, rng))
		if inertia < m.Inertia {
			m.Centroids, m.Labels, m.Inertia = centroids, labels, inertia
		}
	}
	return nil
}

func (m *KMeans) lloyd(X [][]float64, centroids [][]float64) ([][]float64, []int, float64) {
	n, p := len(X), len(X[0])
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	for it := 0; it < m.MaxIter; it++ {
		changed := false
		for i, x := range X {
			best := nearest(x, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, len(centroids))
		counts := make([]int, len(centroids))
		for k := range sums {
			sums[k] = make([]float64, p)
		}
		for i, x := range X {
			k := labels[i]
			counts[k]++
			for j, v := range x {
				sums[k][j] += v
			}
		}
		for k := range centroids {
			if counts[k] == 0 {
				continue // empty cluster keeps its centroid
			}
			for j := range centroids[k] {
				centroids[k][j] = sums[k][j] / float64(counts[k])
			}
		}
	}
	inertia := 0.0
	for i, x := range X {
		labels[i] = nearest(x, centroids)
		inertia += euclidSquared(x, centroids[labels[i]])
	}
	return centroids, labels, inertia
}

// initPlusPlus picks the first center uniformly and each next one with probability
// proportional to its squared distance from the nearest chosen center.
func initPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(X)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), X[rng.Intn(n)]...))
	d2 := make([]float64, n)
	for len(centers) < k {
		total := 0.0
		for i, x := range X {
			d2[i] = euclidSquared(x, centers[nearest(x, centers)])
			total += d2[i]
		}
		next := rng.Intn(n)
		if total > 0 {
			for i, d := range d2 {
				if d > 0 {
					next = i
				}
			}
			r := rng.Float64() * total
			for i, d := range d2 {
				r -= d
				if r <= 0 && d > 0 {
					next = i
					break
				}
			}
		}
		centers = append(centers, append([]float64(nil), X[next]...))
	}
	return centers
}

func nearest(x []float64, centroids [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for k, c := range centroids {
		if d := euclidSquared(x, c); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

func euclidSquared(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
