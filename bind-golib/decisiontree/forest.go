package decisiontree

import (
	"math/rand"

	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/workerpool"
)

// ForestOptions controls random forest training
type ForestOptions struct {
	// NTrees is the number of trees in the forest
	NTrees int
	// Bootstrap trains each tree on a resample (with replacement) of the training rows
	Bootstrap bool
	// Seed makes training reproducible; tree i is grown from a source seeded with Seed+i
	Seed int64
	// Workers is the number of trees grown concurrently
	Workers int
	Tree    TreeOptions
}

// DefaultForestOptions returns 50 bootstrapped, fully grown trees
func DefaultForestOptions() ForestOptions {
	return ForestOptions{
		NTrees:    50,
		Bootstrap: true,
		Seed:      1,
		Workers:   1,
	}
}

// A Forest averages the outputs of its trees
type Forest struct {
	Ensemble
	FeatureSize int `json:"feature_size"`
}

// Evaluate returns the mean output of the trees
func (f *Forest) Evaluate(x []float64) float64 {
	if len(f.Trees) == 0 {
		panic("forest has no trees")
	}
	return f.Ensemble.Evaluate(x) / float64(len(f.Trees))
}

// Predict evaluates every row of X
func (f *Forest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = f.Evaluate(x)
	}
	return out
}

// TrainForest grows a random forest regressor on X, y
func TrainForest(X [][]float64, y []float64, opts ForestOptions) (*Forest, error) {
	featureSize, err := checkTrainingSet(X, y)
	if err != nil {
		return nil, err
	}
	if opts.NTrees < 1 {
		return nil, errors.Errorf("forest needs at least one tree, got %d", opts.NTrees)
	}

	trees := make([]DecisionTree, opts.NTrees)
	pool := workerpool.New(opts.Workers)
	defer pool.Stop()

	var jobs []workerpool.Job
	for i := range trees {
		i := i
		jobs = append(jobs, func() error {
			rng := rand.New(rand.NewSource(opts.Seed + int64(i)))

			var idx []int
			if opts.Bootstrap {
				idx = make([]int, len(X))
				for j := range idx {
					idx[j] = rng.Intn(len(X))
				}
			}

			tree, err := TrainRegressionTree(X, y, idx, opts.Tree, rng)
			if err != nil {
				return errors.Wrapf(err, "tree %d", i)
			}
			trees[i] = tree
			return nil
		})
	}
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	return &Forest{
		Ensemble:    Ensemble{Trees: trees},
		FeatureSize: featureSize,
	}, nil
}
