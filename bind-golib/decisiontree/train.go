package decisiontree

import (
	"math/rand"
	"sort"

	"github.com/bindlab/bind/bind-golib/errors"
)

// TreeOptions controls how a regression tree is grown
type TreeOptions struct {
	// MaxDepth limits the number of decisions on any path; zero means unlimited.
	MaxDepth int
	// MinSamplesSplit is the minimum number of samples a node needs to be split.
	MinSamplesSplit int
	// MinSamplesLeaf is the minimum number of samples on each side of a split.
	MinSamplesLeaf int
	// MaxFeatures is the fraction of features examined at each split; values outside (0, 1) mean all.
	MaxFeatures float64
}

func (o TreeOptions) withDefaults() TreeOptions {
	if o.MinSamplesSplit < 2 {
		o.MinSamplesSplit = 2
	}
	if o.MinSamplesLeaf < 1 {
		o.MinSamplesLeaf = 1
	}
	return o
}

// TrainRegressionTree grows a CART regression tree that minimizes squared error over the
// rows of X listed in idx (repeats allowed, nil means every row). Nodes are split until they
// are pure or no split satisfies opts; each leaf outputs the mean target of its rows.
func TrainRegressionTree(X [][]float64, y []float64, idx []int, opts TreeOptions, rng *rand.Rand) (DecisionTree, error) {
	featureSize, err := checkTrainingSet(X, y)
	if err != nil {
		return DecisionTree{}, err
	}
	if idx == nil {
		idx = make([]int, len(X))
		for i := range idx {
			idx[i] = i
		}
	}
	if len(idx) == 0 {
		return DecisionTree{}, errors.Errorf("cannot grow a tree from zero samples")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(0))
	}

	b := &treeBuilder{
		X:    X,
		y:    y,
		opts: opts.withDefaults(),
		rng:  rng,
		tree: DecisionTree{FeatureSize: featureSize},
	}
	b.grow(append([]int(nil), idx...), 0)
	return b.tree, nil
}

func checkTrainingSet(X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.Errorf("empty training set")
	}
	if len(X) != len(y) {
		return 0, errors.Errorf("got %d feature rows but %d targets", len(X), len(y))
	}
	featureSize := len(X[0])
	for i, row := range X {
		if len(row) != featureSize {
			return 0, errors.Errorf("row %d has %d features, expected %d", i, len(row), featureSize)
		}
	}
	if featureSize == 0 {
		return 0, errors.Errorf("feature vectors are empty")
	}
	return featureSize, nil
}

type pair struct {
	x, y float64
}

type split struct {
	feature   int
	threshold float64
	score     float64
}

type treeBuilder struct {
	X    [][]float64
	y    []float64
	opts TreeOptions
	rng  *rand.Rand
	tree DecisionTree

	pairs []pair
}

// grow builds the subtree for idx and returns its index in Nodes, or in Outputs if it is a leaf.
func (b *treeBuilder) grow(idx []int, depth int) (int, bool) {
	if len(idx) < b.opts.MinSamplesSplit ||
		len(idx) < 2*b.opts.MinSamplesLeaf ||
		(b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth) ||
		b.pure(idx) {
		return b.leaf(idx, depth), true
	}

	s, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx, depth), true
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][s.feature] < s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		FeatureIndex: s.feature,
		Threshold:    s.threshold,
	})

	l, lLeaf := b.grow(left, depth+1)
	r, rLeaf := b.grow(right, depth+1)

	n := &b.tree.Nodes[node]
	n.LeftChild, n.LeftIsLeaf = l, lLeaf
	n.RightChild, n.RightIsLeaf = r, rLeaf
	return node, false
}

func (b *treeBuilder) leaf(idx []int, depth int) int {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	b.tree.Outputs = append(b.tree.Outputs, sum/float64(len(idx)))
	if depth > b.tree.Depth {
		b.tree.Depth = depth
	}
	return len(b.tree.Outputs) - 1
}

func (b *treeBuilder) pure(idx []int) bool {
	first := b.y[idx[0]]
	for _, i := range idx[1:] {
		if b.y[i] != first {
			return false
		}
	}
	return true
}

func (b *treeBuilder) candidateFeatures() []int {
	n := b.tree.FeatureSize
	if b.opts.MaxFeatures <= 0 || b.opts.MaxFeatures >= 1 {
		features := make([]int, n)
		for i := range features {
			features[i] = i
		}
		return features
	}
	k := int(b.opts.MaxFeatures * float64(n))
	if k < 1 {
		k = 1
	}
	features := b.rng.Perm(n)[:k]
	sort.Ints(features)
	return features
}

// bestSplit maximizes sum_l^2/n_l + sum_r^2/n_r, which is equivalent to minimizing the
// summed squared error of the two children.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	minLeaf := b.opts.MinSamplesLeaf

	var total float64
	for _, i := range idx {
		total += b.y[i]
	}

	var best split
	var found bool
	for _, f := range b.candidateFeatures() {
		pairs := b.pairs[:0]
		for _, i := range idx {
			pairs = append(pairs, pair{x: b.X[i][f], y: b.y[i]})
		}
		b.pairs = pairs

		sort.Slice(pairs, func(i, j int) bool { return pairs[i].x < pairs[j].x })
		if pairs[0].x == pairs[n-1].x {
			continue
		}

		var left float64
		for k := 0; k < n-1; k++ {
			left += pairs[k].y
			if pairs[k].x == pairs[k+1].x {
				continue
			}
			nl := k + 1
			if nl < minLeaf || n-nl < minLeaf {
				continue
			}
			right := total - left
			score := left*left/float64(nl) + right*right/float64(n-nl)
			if found && score <= best.score {
				continue
			}

			threshold := (pairs[k].x + pairs[k+1].x) / 2
			if threshold <= pairs[k].x {
				threshold = pairs[k+1].x
			}
			best = split{feature: f, threshold: threshold, score: score}
			found = true
		}
	}
	return best, found
}
