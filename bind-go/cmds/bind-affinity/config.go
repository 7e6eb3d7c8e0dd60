package main

import (
	"github.com/bindlab/bind/bind-go/affinity"
	"github.com/bindlab/bind/bind-go/sweep"
	"github.com/bindlab/bind/bind-go/tokens"
	"github.com/bindlab/bind/bind-golib/errors"
	"github.com/bindlab/bind/bind-golib/serialization"
)

// config is read from a YAML file; command line flags override it
type config struct {
	// Profiles is the distance profile file (.json, optionally .gz)
	Profiles string `yaml:"profiles"`
	// Refined and Core are id,affinity label tables
	Refined   string          `yaml:"refined"`
	Core      string          `yaml:"core"`
	CacheDir  string          `yaml:"cache_dir"`
	BinWidths []float64       `yaml:"bin_widths"`
	Workers   int             `yaml:"workers"`
	Model     affinity.Config `yaml:"model"`
	// History is the sqlite run history; runs are not recorded when empty
	History string `yaml:"history"`
}

func defaultConfig() config {
	return config{
		CacheDir:  "bind-cache",
		BinWidths: append([]float64(nil), sweep.DefaultBinWidths...),
		Workers:   1,
		Model:     affinity.DefaultConfig(),
	}
}

// loadConfig returns the defaults overridden by the file at path, if any
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	// a grid in the file replaces the default grid instead of merging into it
	grid := cfg.Model.Grid
	cfg.Model.Grid = nil
	if err := serialization.Decode(path, &cfg); err != nil {
		return config{}, errors.Wrapf(err, "error loading config")
	}
	if cfg.Model.Grid == nil {
		cfg.Model.Grid = grid
	}
	return cfg, nil
}

// commonArgs are shared by every command
type commonArgs struct {
	Config   string `arg:"--config" help:"YAML config file"`
	Profiles string `arg:"--profiles" help:"distance profile file (.json or .json.gz)"`
	Refined  string `arg:"--refined" help:"refined (training) label table"`
	Core     string `arg:"--core" help:"core (held-out) label table"`
	CacheDir string `arg:"--cache-dir" help:"directory holding tokenized datasets"`
	Workers  int    `arg:"--workers" help:"number of concurrent workers"`
	Verbose  bool   `arg:"-v,--verbose" help:"log debug messages"`
	JSONLogs bool   `arg:"--json-logs" help:"log as JSON instead of console lines"`
	History  string `arg:"--history" help:"sqlite database recording sweep runs"`
}

// resolve loads the config file and applies the flags that were set
func (a commonArgs) resolve() (config, error) {
	cfg, err := loadConfig(a.Config)
	if err != nil {
		return config{}, err
	}
	if a.Profiles != "" {
		cfg.Profiles = a.Profiles
	}
	if a.Refined != "" {
		cfg.Refined = a.Refined
	}
	if a.Core != "" {
		cfg.Core = a.Core
	}
	if a.CacheDir != "" {
		cfg.CacheDir = a.CacheDir
	}
	if a.Workers > 0 {
		cfg.Workers = a.Workers
	}
	if a.History != "" {
		cfg.History = a.History
	}
	return cfg, nil
}

func (c config) validate(needLabels bool) error {
	if c.Profiles == "" {
		return errors.Errorf("no profile file configured (--profiles)")
	}
	if needLabels && (c.Refined == "" || c.Core == "") {
		return errors.Errorf("both label tables must be configured (--refined, --core)")
	}
	for _, bw := range c.BinWidths {
		if err := tokens.ValidateBinWidth(bw); err != nil {
			return err
		}
	}
	return nil
}
