package affinity

import (
	"github.com/bindlab/bind/bind-golib/decisiontree"
	"github.com/bindlab/bind/bind-golib/gridsearch"
)

// Config controls how a bin width is modeled
type Config struct {
	// Folds is the k of the cross-validated grid search
	Folds int `yaml:"folds"`
	// Trees is the size of each random forest
	Trees int `yaml:"trees"`
	// Grid lists the hyperparameter values searched; see Pipeline.SetParams for the names
	Grid gridsearch.Grid `yaml:"grid"`
	// RefitMinDF and RefitMaxDF are the document-frequency bounds of the final model
	RefitMinDF float64 `yaml:"refit_min_df"`
	RefitMaxDF float64 `yaml:"refit_max_df"`
	// RefitFromBest applies the winning grid parameters to the final model, overriding the refit bounds
	RefitFromBest bool `yaml:"refit_from_best"`
	// Workers bounds the concurrent fits within a grid search
	Workers int   `yaml:"workers"`
	Seed    int64 `yaml:"seed"`
	// ModelPath, when set, is where the final forest is saved; "%v" is replaced by the bin width
	ModelPath string `yaml:"model_path"`
}

// DefaultConfig returns 4 folds, 50 trees, a single-point grid and refit bounds [0.1, 1.0]
func DefaultConfig() Config {
	return Config{
		Folds: 4,
		Trees: 50,
		Grid: gridsearch.Grid{
			MinDFParam: {0},
			MaxDFParam: {1},
		},
		RefitMinDF: 0.1,
		RefitMaxDF: 1.0,
		Workers:    1,
		Seed:       1,
	}
}

func (c Config) forestOptions() decisiontree.ForestOptions {
	opts := decisiontree.DefaultForestOptions()
	if c.Trees > 0 {
		opts.NTrees = c.Trees
	}
	if c.Seed != 0 {
		opts.Seed = c.Seed
	}
	return opts
}
