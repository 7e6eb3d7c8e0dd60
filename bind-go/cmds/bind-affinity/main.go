package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/bindlab/bind/bind-go/dataset"
	"github.com/bindlab/bind/bind-go/explore"
	"github.com/bindlab/bind/bind-go/profile"
	"github.com/bindlab/bind/bind-go/rundb"
	"github.com/bindlab/bind/bind-go/sweep"
	"github.com/bindlab/bind/bind-go/tokens"
	"github.com/bindlab/bind/bind-golib/binlog"
	"github.com/bindlab/bind/bind-golib/cmdline"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	"go.uber.org/zap"
)

// env assembles the shared state of a sweep from the resolved config
func env(cfg config, logger *zap.Logger) (*sweep.Env, error) {
	store, err := dataset.OpenStore(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	refined, err := dataset.LoadLabels(cfg.Refined)
	if err != nil {
		return nil, err
	}
	core, err := dataset.LoadLabels(cfg.Core)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded label tables", zap.Int("refined", refined.Len()), zap.Int("core", core.Len()))

	return &sweep.Env{
		Store:    store,
		Profiles: profile.NewLazy(profile.FileSource{Path: cfg.Profiles}),
		Refined:  refined,
		Core:     core,
		Model:    cfg.Model,
		Workers:  cfg.Workers,
		Logger:   logger,
		Out:      os.Stdout,
	}, nil
}

type sweepArgs struct {
	commonArgs
	BinWidths     []float64 `arg:"--bin-widths" help:"bin widths to sweep (default 7 6 5 4 3)"`
	Folds         int       `arg:"--folds" help:"cross-validation folds"`
	Trees         int       `arg:"--trees" help:"trees per forest"`
	RefitMinDF    *float64  `arg:"--refit-min-df" help:"min_df of the final model"`
	RefitMaxDF    *float64  `arg:"--refit-max-df" help:"max_df of the final model"`
	RefitFromBest bool      `arg:"--refit-from-best" help:"refit with the winning grid parameters"`
	Seed          int64     `arg:"--seed" help:"random seed"`
	Chart         string    `arg:"--chart" help:"write a PNG chart of MSE by bin width"`
	Model         string    `arg:"--model" help:"save each final forest; %v is replaced by the bin width"`
}

func (a *sweepArgs) config() (config, error) {
	cfg, err := a.resolve()
	if err != nil {
		return config{}, err
	}
	if len(a.BinWidths) > 0 {
		cfg.BinWidths = a.BinWidths
	}
	if a.Folds > 0 {
		cfg.Model.Folds = a.Folds
	}
	if a.Trees > 0 {
		cfg.Model.Trees = a.Trees
	}
	if a.RefitMinDF != nil {
		cfg.Model.RefitMinDF = *a.RefitMinDF
	}
	if a.RefitMaxDF != nil {
		cfg.Model.RefitMaxDF = *a.RefitMaxDF
	}
	if a.RefitFromBest {
		cfg.Model.RefitFromBest = true
	}
	if a.Seed != 0 {
		cfg.Model.Seed = a.Seed
	}
	if a.Model != "" {
		cfg.Model.ModelPath = a.Model
	}
	if cfg.Model.Workers < cfg.Workers {
		cfg.Model.Workers = cfg.Workers
	}
	return cfg, cfg.validate(true)
}

func (a *sweepArgs) Validate() error {
	_, err := a.config()
	return err
}

func (a *sweepArgs) Handle() error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	logger := binlog.New(!a.JSONLogs, a.Verbose)
	defer logger.Sync()

	e, err := env(cfg, logger)
	if err != nil {
		return err
	}

	var history *rundb.DB
	var run *rundb.Run
	if cfg.History != "" {
		history, err = rundb.Open(cfg.History)
		if err != nil {
			return err
		}
		defer history.Close()
		if run, err = history.Start(cfg); err != nil {
			return err
		}
		logger.Info("recording run", zap.String("run", run.ID), zap.String("history", cfg.History))
	}

	start := time.Now()
	outcomes, err := sweep.Run(context.Background(), e, cfg.BinWidths, cfg.Workers)
	if history != nil {
		if herr := history.Finish(run, outcomes, err); herr != nil {
			logger.Error("error recording run", zap.Error(herr))
		}
	}
	for _, o := range outcomes {
		if o.Err != nil {
			logger.Error("bin width failed", zap.Float64("bin_width", o.BinWidth), zap.Error(o.Err))
		}
	}
	logger.Info("sweep done", zap.Duration("took", time.Since(start)), zap.Int("bin_widths", len(outcomes)))

	if a.Chart != "" {
		if cerr := sweep.WriteChart(a.Chart, outcomes); cerr != nil {
			logger.Error("error writing chart", zap.Error(cerr))
		} else {
			logger.Info("wrote chart", zap.String("path", a.Chart))
		}
	}
	return err
}

type tokensArgs struct {
	commonArgs
	BinWidths []float64 `arg:"--bin-widths" help:"bin widths to tokenize (default 7 6 5 4 3)"`
}

func (a *tokensArgs) config() (config, error) {
	cfg, err := a.resolve()
	if err != nil {
		return config{}, err
	}
	if len(a.BinWidths) > 0 {
		cfg.BinWidths = a.BinWidths
	}
	return cfg, cfg.validate(true)
}

func (a *tokensArgs) Validate() error {
	_, err := a.config()
	return err
}

func (a *tokensArgs) Handle() error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	logger := binlog.New(!a.JSONLogs, a.Verbose)
	defer logger.Sync()

	e, err := env(cfg, logger)
	if err != nil {
		return err
	}
	return sweep.Materialize(context.Background(), e, cfg.BinWidths, cfg.Workers)
}

type exploreArgs struct {
	commonArgs
	OutDir string `arg:"--out-dir" help:"directory for histograms; none are written when empty"`
	Format string `arg:"--format" help:"histogram image extension, e.g. .png or .tiff"`
}

func (a *exploreArgs) Validate() error {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	return cfg.validate(false)
}

func (a *exploreArgs) Handle() error {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	logger := binlog.New(!a.JSONLogs, a.Verbose)
	defer logger.Sync()

	profiles, err := profile.FileSource{Path: cfg.Profiles}.Profiles()
	if err != nil {
		return err
	}
	ids := profiles.IDs()
	var summary explore.Summary
	err = tqdm.With(iterators.Interval(0, len(ids)), "Summarizing profiles", func(v interface{}) (brk bool) {
		summary.Add(profiles[ids[v.(int)]])
		return
	})
	if err != nil {
		return err
	}
	if err := summary.Print(os.Stdout); err != nil {
		return err
	}

	if a.OutDir == "" {
		return nil
	}
	if err := os.MkdirAll(a.OutDir, 0755); err != nil {
		return err
	}
	files, err := summary.WriteHistograms(a.OutDir, a.Format)
	for _, f := range files {
		logger.Info("wrote histogram", zap.String("path", f))
	}
	return err
}

type exportArgs struct {
	commonArgs
	BinWidth float64 `arg:"--bin-width,required" help:"bin width of the dataset"`
	Table    string  `arg:"--table" help:"refined or core"`
	Output   string  `arg:"positional,required" help:"CSV file to write"`
}

func (a *exportArgs) Validate() error {
	switch a.Table {
	case "":
		a.Table = dataset.Refined
	case dataset.Refined, dataset.Core:
	default:
		return errors.Errorf("unknown table %s", a.Table)
	}
	if err := tokens.ValidateBinWidth(a.BinWidth); err != nil {
		return errors.Wrapf(err, "--bin-width")
	}
	return nil
}

func (a *exportArgs) Handle() (err error) {
	cfg, err := a.resolve()
	if err != nil {
		return err
	}
	store, err := dataset.OpenStore(cfg.CacheDir)
	if err != nil {
		return err
	}
	key := dataset.ArtifactKey{Kind: sweep.TokensKind, Table: a.Table, BinWidth: a.BinWidth}
	ds, err := store.Get(key)
	if err != nil {
		return errors.Wrapf(err, "%s has not been built", key)
	}

	if err := os.MkdirAll(filepath.Dir(a.Output), 0755); err != nil {
		return err
	}
	f, err := os.Create(a.Output)
	if err != nil {
		return err
	}
	defer errors.Defer(&err, f.Close)
	return dataset.WriteCSV(f, ds)
}

type historyArgs struct {
	Config  string `arg:"--config" help:"YAML config file"`
	History string `arg:"--history" help:"sqlite database recording sweep runs"`
	Limit   int    `arg:"--limit" help:"number of runs to show (default 10, 0 for all)"`
	Run     string `arg:"--run" help:"show the results of this run only"`
}

func (a *historyArgs) path() (string, error) {
	if a.History != "" {
		return a.History, nil
	}
	cfg, err := loadConfig(a.Config)
	if err != nil {
		return "", err
	}
	if cfg.History == "" {
		return "", errors.Errorf("no run history configured (--history)")
	}
	return cfg.History, nil
}

func (a *historyArgs) Validate() error {
	_, err := a.path()
	return err
}

func (a *historyArgs) Handle() error {
	path, err := a.path()
	if err != nil {
		return err
	}
	db, err := rundb.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs(a.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 4, 4, 2, ' ', 0)
	defer tw.Flush()
	for _, run := range runs {
		if a.Run != "" && run.ID != a.Run {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", run.ID, run.StartedAt.Local().Format(time.RFC3339), run.Status, run.Error)
		results, err := db.Results(run.ID)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(tw, "  bin width %v\t%s\tcv mse %s\theld-out mse %s\t%s\n",
				r.BinWidth, r.Status, formatScore(r.CVMSE), formatScore(r.MSE), r.Error)
		}
	}
	return nil
}

func formatScore(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func main() {
	cmdline.MustDispatch(
		cmdline.Command{Name: "sweep", Synopsis: "tokenize and model every bin width", Args: &sweepArgs{}},
		cmdline.Command{Name: "tokens", Synopsis: "build the tokenized datasets only", Args: &tokensArgs{}},
		cmdline.Command{Name: "explore", Synopsis: "summarize the distance profiles", Args: &exploreArgs{}},
		cmdline.Command{Name: "export", Synopsis: "write a tokenized dataset as CSV", Args: &exportArgs{}},
		cmdline.Command{Name: "history", Synopsis: "list recorded sweep runs", Args: &historyArgs{Limit: 10}},
	)
}
