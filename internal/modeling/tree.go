package modeling

import (
	"math"
	"math/rand"
	"sort"
)

// tree is a CART tree. With classes == 0 it regresses on y (MSE criterion);
// otherwise y holds class indices and splits minimize gini impurity.
type tree struct {
	maxDepth        int // 0 => no limit
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 => all features
	classes         int
	rng             *rand.Rand

	root *treeNode
}

type treeNode struct {
	leaf      bool
	feature   int
	threshold float64 // x <= threshold => left
	left      *treeNode
	right     *treeNode

	value  float64   // regression mean
	probas []float64 // class distribution
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

func (t *tree) fit(X [][]float64, y []float64, idx []int) {
	if t.minSamplesSplit < 2 {
		t.minSamplesSplit = 2
	}
	if t.minSamplesLeaf < 1 {
		t.minSamplesLeaf = 1
	}
	t.root = t.build(X, y, idx, 0)
}

func (t *tree) build(X [][]float64, y []float64, idx []int, depth int) *treeNode {
	nd := t.leafNode(y, idx)
	if len(idx) < t.minSamplesSplit || (t.maxDepth > 0 && depth >= t.maxDepth) || t.impurity(y, idx) <= 1e-12 {
		return nd
	}
	sp, ok := t.bestSplit(X, y, idx)
	if !ok {
		return nd
	}
	var left, right []int
	for _, i := range idx {
		if X[i][sp.feature] <= sp.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return nd
	}
	nd.leaf = false
	nd.feature = sp.feature
	nd.threshold = sp.threshold
	nd.left = t.build(X, y, left, depth+1)
	nd.right = t.build(X, y, right, depth+1)
	return nd
}

func (t *tree) leafNode(y []float64, idx []int) *treeNode {
	nd := &treeNode{leaf: true}
	if t.classes == 0 {
		s := 0.0
		for _, i := range idx {
			s += y[i]
		}
		nd.value = s / float64(len(idx))
		return nd
	}
	nd.probas = make([]float64, t.classes)
	for _, i := range idx {
		nd.probas[int(y[i])]++
	}
	for c := range nd.probas {
		nd.probas[c] /= float64(len(idx))
	}
	return nd
}

// impurity is the node variance (regression) or gini index (classification).
func (t *tree) impurity(y []float64, idx []int) float64 {
	n := float64(len(idx))
	if t.classes == 0 {
		s, sq := 0.0, 0.0
		for _, i := range idx {
			s += y[i]
			sq += y[i] * y[i]
		}
		return sq/n - (s/n)*(s/n)
	}
	counts := make([]float64, t.classes)
	for _, i := range idx {
		counts[int(y[i])]++
	}
	g := 1.0
	for _, c := range counts {
		g -= (c / n) * (c / n)
	}
	return g
}

// bestSplit scans features in random order. After maxFeatures features it stops
// as soon as a valid split has been found.
func (t *tree) bestSplit(X [][]float64, y []float64, idx []int) (split, bool) {
	p := len(X[idx[0]])
	mf := t.maxFeatures
	if mf <= 0 || mf > p {
		mf = p
	}
	best := split{score: math.Inf(1)}
	found := false
	sorted := make([]int, len(idx))
	n := len(idx)

	var lc, rc []float64
	if t.classes > 0 {
		lc = make([]float64, t.classes)
		rc = make([]float64, t.classes)
	}
	for k, f := range t.rng.Perm(p) {
		if k >= mf && found {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })
		if X[sorted[0]][f] == X[sorted[n-1]][f] {
			continue
		}

		var lsum, lsq, rsum, rsq float64
		if t.classes > 0 {
			for c := range lc {
				lc[c], rc[c] = 0, 0
			}
			for _, i := range sorted {
				rc[int(y[i])]++
			}
		} else {
			for _, i := range sorted {
				rsum += y[i]
				rsq += y[i] * y[i]
			}
		}

		for s := 0; s < n-1; s++ {
			i := sorted[s]
			if t.classes > 0 {
				c := int(y[i])
				lc[c]++
				rc[c]--
			} else {
				lsum += y[i]
				lsq += y[i] * y[i]
				rsum -= y[i]
				rsq -= y[i] * y[i]
			}
			xv, xn := X[i][f], X[sorted[s+1]][f]
			if xv == xn {
				continue
			}
			nl, nr := float64(s+1), float64(n-s-1)
			if s+1 < t.minSamplesLeaf || n-s-1 < t.minSamplesLeaf {
				continue
			}
			var score float64
			if t.classes > 0 {
				var l2, r2 float64
				for c := range lc {
					l2 += lc[c] * lc[c]
					r2 += rc[c] * rc[c]
				}
				score = (nl - l2/nl) + (nr - r2/nr)
			} else {
				score = (lsq - lsum*lsum/nl) + (rsq - rsum*rsum/nr)
			}
			if score < best.score {
				thr := xv + (xn-xv)/2
				if thr >= xn {
					thr = xv
				}
				best = split{feature: f, threshold: thr, score: score}
				found = true
			}
		}
	}
	return best, found
}

func (t *tree) leafFor(x []float64) *treeNode {
	nd := t.root
	for !nd.leaf {
		if x[nd.feature] <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd
}
