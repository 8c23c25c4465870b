package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// GBTConfig holds the classifier hyperparameters. They are fixed in
// production (see DefaultGBTConfig); the struct exists so tests can train
// small ensembles quickly.
type GBTConfig struct {
	Trees        int
	MaxDepth     int
	LearningRate float64
	MinLeaf      int
	Lambda       float64 // L2 penalty on leaf values
	Seed         int64
}

// DefaultGBTConfig mirrors the production classifier settings: 100 trees,
// depth 6, learning rate 0.1, fixed seed for reproducibility.
func DefaultGBTConfig() GBTConfig {
	return GBTConfig{
		Trees:        100,
		MaxDepth:     6,
		LearningRate: 0.1,
		MinLeaf:      1,
		Lambda:       1.0,
		Seed:         42,
	}
}

// GBT is a gradient-boosted tree classifier for binary outcomes, trained
// with logistic loss and Newton leaf updates.
type GBT struct {
	cfg   GBTConfig
	base  float64
	trees []*treeNode
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// NewGBT returns an untrained classifier.
func NewGBT(cfg GBTConfig) *GBT {
	if cfg.Trees <= 0 {
		cfg = DefaultGBTConfig()
	}
	return &GBT{cfg: cfg}
}

// Fit trains the ensemble on a 0/1 outcome vector.
func (g *GBT) Fit(x [][]float64, y []float64) error {
	n := len(x)
	if n == 0 || n != len(y) {
		return fmt.Errorf("gbt fit: %d rows, %d labels", n, len(y))
	}

	// Initial score is the log-odds of the base rate, clamped so a
	// single-class training set stays finite.
	var pos float64
	for _, v := range y {
		pos += v
	}
	p0 := pos / float64(n)
	const eps = 1e-6
	p0 = math.Min(math.Max(p0, eps), 1-eps)
	g.base = math.Log(p0 / (1 - p0))

	rng := rand.New(rand.NewSource(g.cfg.Seed))

	raw := make([]float64, n) // accumulated raw score per row
	for i := range raw {
		raw[i] = g.base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	g.trees = make([]*treeNode, 0, g.cfg.Trees)
	for t := 0; t < g.cfg.Trees; t++ {
		for i := range raw {
			p := sigmoid(raw[i])
			grad[i] = y[i] - p
			hess[i] = p * (1 - p)
		}

		root := g.buildNode(x, grad, hess, indices, 0, rng)
		g.trees = append(g.trees, root)

		for i := range raw {
			raw[i] += g.cfg.LearningRate * root.eval(x[i])
		}
	}
	return nil
}

func (g *GBT) buildNode(x [][]float64, grad, hess []float64, idx []int, depth int, rng *rand.Rand) *treeNode {
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grad[i]
		hSum += hess[i]
	}

	if depth >= g.cfg.MaxDepth || len(idx) < 2*g.cfg.MinLeaf {
		return g.leaf(gSum, hSum)
	}

	feature, threshold, gain := g.bestSplit(x, grad, hess, idx, gSum, hSum, rng)
	if gain <= 0 {
		return g.leaf(gSum, hSum)
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < g.cfg.MinLeaf || len(right) < g.cfg.MinLeaf {
		return g.leaf(gSum, hSum)
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      g.buildNode(x, grad, hess, left, depth+1, rng),
		right:     g.buildNode(x, grad, hess, right, depth+1, rng),
	}
}

func (g *GBT) leaf(gSum, hSum float64) *treeNode {
	return &treeNode{leaf: true, value: gSum / (hSum + g.cfg.Lambda)}
}

// bestSplit scans every feature for the split maximizing the usual
// second-order gain. Nodes with many distinct values subsample candidate
// positions with the seeded rng to bound the scan.
func (g *GBT) bestSplit(x [][]float64, grad, hess []float64, idx []int, gSum, hSum float64, rng *rand.Rand) (int, float64, float64) {
	const maxCandidates = 256

	nFeatures := len(x[idx[0]])
	parent := gSum * gSum / (hSum + g.cfg.Lambda)

	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0
	order := make([]int, len(idx))

	for j := 0; j < nFeatures; j++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][j] < x[order[b]][j] })

		stride := 1
		if len(order) > maxCandidates {
			stride = len(order) / maxCandidates
		}
		offset := 0
		if stride > 1 {
			offset = rng.Intn(stride)
		}

		var gl, hl float64
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			gl += grad[i]
			hl += hess[i]

			if (k-offset)%stride != 0 {
				continue
			}
			// No valid threshold between equal values.
			if x[order[k]][j] == x[order[k+1]][j] {
				continue
			}

			gr := gSum - gl
			hr := hSum - hl
			gain := gl*gl/(hl+g.cfg.Lambda) + gr*gr/(hr+g.cfg.Lambda) - parent
			if gain > bestGain {
				bestFeature = j
				bestThreshold = (x[order[k]][j] + x[order[k+1]][j]) / 2
				bestGain = gain
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

func (n *treeNode) eval(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// Score returns the predicted probability of the positive class.
func (g *GBT) Score(x []float64) float64 {
	raw := g.base
	for _, t := range g.trees {
		raw += g.cfg.LearningRate * t.eval(x)
	}
	return sigmoid(raw)
}

// Class returns the hard decision at the 0.5 probability boundary.
func (g *GBT) Class(x []float64) int {
	if g.Score(x) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
