package affinity

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/bindlab/bind/bind-go/dataset"
	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/gridsearch"
	humanize "github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Report summarizes the modeling of one bin width
type Report struct {
	BinWidth       float64
	TrainRows      int
	TestRows       int
	VocabularySize int
	// Features is the number of terms the final model kept
	Features int

	// BestScore is the winning mean cross-validation score (negative MSE)
	BestScore  float64
	BestParams gridsearch.Params
	Candidates []gridsearch.Candidate

	// MSE and RMSE of the final model on the held-out rows
	MSE  float64
	RMSE float64
}

// Print writes a human-readable report
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "bin width %v\n", r.BinWidth)
	fmt.Fprintf(w, "  training rows:   %s\n", humanize.Comma(int64(r.TrainRows)))
	fmt.Fprintf(w, "  held-out rows:   %s\n", humanize.Comma(int64(r.TestRows)))
	fmt.Fprintf(w, "  vocabulary size: %s\n", humanize.Comma(int64(r.VocabularySize)))
	fmt.Fprintf(w, "  best CV score:   %.4f (MSE %.4f)\n", r.BestScore, -r.BestScore)
	fmt.Fprintf(w, "  best params:     %s\n", r.BestParams)
	if len(r.Candidates) > 1 {
		for _, c := range r.Candidates {
			fmt.Fprintf(w, "    %-40s %.4f\n", c.Params, c.MeanScore)
		}
	}
	fmt.Fprintf(w, "  final features:  %s\n", humanize.Comma(int64(r.Features)))
	fmt.Fprintf(w, "  held-out MSE:    %.4f\n", r.MSE)
	fmt.Fprintf(w, "  held-out RMSE:   %.4f\n", r.RMSE)
}

// Evaluate cross-validates the configured grid on train, refits on all of train and scores
// the refit model on test.
func Evaluate(binWidth float64, train, test dataset.Dataset, cfg Config, logger *zap.Logger) (*Report, error) {
	logger = binlog.OrNop(logger).With(zap.Float64("bin_width", binWidth))
	var durations binlog.Durations
	defer durations.Flush(logger, "modeling durations")

	switch {
	case len(train) == 0:
		return nil, errors.Errorf("training set is empty")
	case len(test) == 0:
		return nil, errors.Errorf("evaluation set is empty")
	}
	for _, ds := range []dataset.Dataset{train, test} {
		for _, r := range ds {
			if math.IsNaN(r.Label) || math.IsInf(r.Label, 0) {
				return nil, errors.Errorf("%s: non-finite label %v", r.ID, r.Label)
			}
		}
	}

	rep := &Report{
		BinWidth:       binWidth,
		TrainRows:      len(train),
		TestRows:       len(test),
		VocabularySize: len(train.Vocabulary()),
	}
	logger.Info("vocabulary", zap.Int("size", rep.VocabularySize))

	forestOpts := cfg.forestOptions()
	newPipeline := func() gridsearch.Estimator {
		return NewPipeline(0, 1, forestOpts)
	}

	start := time.Now()
	res, err := gridsearch.Search(newPipeline, train.Documents(), train.Labels(), cfg.Grid, gridsearch.Options{
		Folds:   cfg.Folds,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "grid search failed")
	}
	durations.Since("grid search", start)
	rep.BestScore = res.BestScore
	rep.BestParams = res.BestParams
	rep.Candidates = res.Candidates
	logger.Info("grid search done",
		zap.Float64("best_score", res.BestScore),
		zap.Stringer("best_params", res.BestParams))

	start = time.Now()
	final := NewPipeline(cfg.RefitMinDF, cfg.RefitMaxDF, forestOpts)
	if cfg.RefitFromBest {
		if err := final.SetParams(res.BestParams); err != nil {
			return nil, err
		}
	}
	if err := final.Fit(train.Documents(), train.Labels()); err != nil {
		return nil, errors.Wrapf(err, "refit failed")
	}
	durations.Since("refit", start)
	rep.Features = final.Vectorizer.NumFeatures()

	pred, err := final.Predict(test.Documents())
	if err != nil {
		return nil, err
	}
	rep.MSE = MSE(test.Labels(), pred)
	rep.RMSE = RMSE(test.Labels(), pred)
	logger.Info("held-out score", zap.Float64("mse", rep.MSE), zap.Float64("rmse", rep.RMSE))

	if cfg.ModelPath != "" {
		path := cfg.ModelPath
		if strings.Contains(path, "%v") {
			path = fmt.Sprintf(path, dataset.FormatBinWidth(binWidth))
		}
		if err := final.Forest.Save(path); err != nil {
			return nil, errors.Wrapf(err, "error saving model")
		}
		logger.Info("saved model", zap.String("path", path))
	}
	return rep, nil
}
