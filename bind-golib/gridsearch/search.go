package gridsearch

import (
	"math"
	"time"

	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/workerpool"
	"go.uber.org/zap"
)

// Estimator is a regressor over text documents whose hyperparameters can be set by name
type Estimator interface {
	SetParams(Params) error
	Fit(docs []string, y []float64) error
	Predict(docs []string) ([]float64, error)
}

// Factory returns a fresh, unfitted Estimator
type Factory func() Estimator

// Options for Search
type Options struct {
	// Folds is the k of k-fold cross-validation
	Folds int
	// Workers is the number of (candidate, fold) fits run concurrently
	Workers int
	// Scorer rates each fold; defaults to NegMSE
	Scorer Scorer
	Logger *zap.Logger
}

// Candidate is the cross-validated outcome of one parameter combination
type Candidate struct {
	Params     Params
	FoldScores []float64
	MeanScore  float64
}

// Result of a grid search
type Result struct {
	// BestScore is the mean fold score of the best candidate
	BestScore  float64
	BestParams Params
	BestIndex  int
	Candidates []Candidate
}

// Search fits a fresh estimator for every (candidate, fold) pair of the expanded grid and
// returns the candidate with the greatest mean fold score; ties go to the earlier candidate.
// Any failed fit fails the whole search.
func Search(newEstimator Factory, docs []string, y []float64, grid Grid, opts Options) (*Result, error) {
	if len(docs) != len(y) {
		return nil, errors.Errorf("got %d documents but %d targets", len(docs), len(y))
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = NegMSE
	}
	logger := binlog.OrNop(opts.Logger)

	folds, err := KFold(len(docs), opts.Folds)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0)
	for _, params := range grid.Expand() {
		candidates = append(candidates, Candidate{
			Params:     params,
			FoldScores: make([]float64, len(folds)),
		})
	}
	if len(candidates) == 0 {
		return nil, errors.Errorf("grid %v has no candidates", grid)
	}

	logger.Info("fitting grid search",
		zap.Int("folds", len(folds)),
		zap.Int("candidates", len(candidates)),
		zap.Int("fits", len(folds)*len(candidates)))

	pool := workerpool.New(opts.Workers)
	defer pool.Stop()

	var jobs []workerpool.Job
	for ci := range candidates {
		for fi := range folds {
			ci, fi := ci, fi
			jobs = append(jobs, func() error {
				start := time.Now()
				score, err := fitAndScore(newEstimator, candidates[ci].Params, folds[fi], docs, y, scorer)
				if err != nil {
					return errors.Wrapf(err, "candidate %s, fold %d", candidates[ci].Params, fi)
				}
				candidates[ci].FoldScores[fi] = score
				logger.Debug("fold scored",
					zap.Stringer("params", candidates[ci].Params),
					zap.Int("fold", fi),
					zap.Float64("score", score),
					zap.Duration("took", time.Since(start)))
				return nil
			})
		}
	}
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	res := &Result{BestScore: math.Inf(-1), BestIndex: -1, Candidates: candidates}
	for i := range candidates {
		var sum float64
		for _, s := range candidates[i].FoldScores {
			sum += s
		}
		candidates[i].MeanScore = sum / float64(len(folds))
		if res.BestIndex < 0 || candidates[i].MeanScore > res.BestScore {
			res.BestScore = candidates[i].MeanScore
			res.BestParams = candidates[i].Params
			res.BestIndex = i
		}
	}
	return res, nil
}

func fitAndScore(newEstimator Factory, params Params, fold Fold, docs []string, y []float64, scorer Scorer) (float64, error) {
	est := newEstimator()
	if err := est.SetParams(params); err != nil {
		return 0, err
	}
	trainDocs, trainY := subset(fold.Train, docs, y)
	if err := est.Fit(trainDocs, trainY); err != nil {
		return 0, err
	}
	testDocs, testY := subset(fold.Test, docs, y)
	pred, err := est.Predict(testDocs)
	if err != nil {
		return 0, err
	}
	if len(pred) != len(testY) {
		return 0, errors.Errorf("estimator returned %d predictions for %d documents", len(pred), len(testY))
	}
	return scorer(testY, pred), nil
}

func subset(idx []int, docs []string, y []float64) ([]string, []float64) {
	d := make([]string, len(idx))
	t := make([]float64, len(idx))
	for i, j := range idx {
		d[i], t[i] = docs[j], y[j]
	}
	return d, t
}
