package dataset

import (
	"sort"
	"sync"

	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-go/tokens"
	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/workerpool"
	"go.uber.org/zap"
)

// Result holds the datasets produced by Build
type Result struct {
	Refined Dataset
	Core    Dataset
	// Failures maps structures that could not be tokenized to the reason
	Failures map[string]error
}

// Options for Build
type Options struct {
	Workers int
	Logger  *zap.Logger
}

// Build tokenizes every structure at the given bin width and joins the token strings with
// the refined and core label tables. Structures without a label in a table are left out of
// that table's dataset. A structure that fails to tokenize is recorded in Failures and does
// not affect the others.
func Build(profiles profile.Profiles, binWidth float64, refined, core LabelTable, opts Options) (*Result, error) {
	if err := tokens.ValidateBinWidth(binWidth); err != nil {
		return nil, err
	}
	logger := binlog.OrNop(opts.Logger)
	gen := tokens.Generator{BinWidth: binWidth}

	var m sync.Mutex
	toks := make(map[string]string, len(profiles))
	failures := make(map[string]error)

	pool := workerpool.New(opts.Workers)
	defer pool.Stop()

	var jobs []workerpool.Job
	for id, s := range profiles {
		id, s := id, s
		jobs = append(jobs, func() error {
			t, err := gen.Tokenize(id, s)

			m.Lock()
			defer m.Unlock()
			if err != nil {
				failures[id] = err
				logger.Warn("skipping structure", zap.String("id", id), zap.Error(err))
				return nil
			}
			toks[id] = t
			return nil
		})
	}
	pool.Add(jobs)
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Refined:  join(toks, refined),
		Core:     join(toks, core),
		Failures: failures,
	}
	logger.Info("built datasets",
		zap.Float64("bin_width", binWidth),
		zap.Int("structures", len(profiles)),
		zap.Int("failures", len(failures)),
		zap.Int("refined", len(res.Refined)),
		zap.Int("core", len(res.Core)))
	return res, nil
}

func join(toks map[string]string, labels LabelTable) Dataset {
	ds := make(Dataset, 0)
	if labels == nil {
		return ds
	}
	for id, t := range toks {
		if y, ok := labels.Label(id); ok {
			ds = append(ds, Row{ID: id, Tokens: t, Label: y})
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
	return ds
}
