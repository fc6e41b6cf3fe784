// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// The global config file
	configFile string
)

// SetGlobalConfig sets the global config filename
func SetGlobalConfig(filename string) {
	configFile = filename
}

// LoadGlobal loads the config file that has been set by SetGlobalConfig
func LoadGlobal() (*Config, error) {
	return Load(configFile)
}

// Config contains the settings of the parallelization potential analysis.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will take the value set by NewDefault.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// Entry is the runtime name of the root function of the analysis, e.g. "main.main"
	Entry string `yaml:"entry"`

	// Profile is the path to the dynamic call graph. Files ending in .pprof, .pb.gz or .prof are read as pprof CPU
	// profiles, anything else as a yaml call-site profile. The path is relative to the config file.
	Profile string `yaml:"profile"`

	// PointerAnalysis selects how abstract memory nodes are computed: "base" or "andersen"
	PointerAnalysis string `yaml:"pointer-analysis"`

	// CallgraphResolution selects a call graph used to resolve indirect calls that the profile does not resolve.
	// Empty means indirect calls are only resolved by the profile.
	CallgraphResolution string `yaml:"callgraph-resolution"`

	// DominatorAnalysis adds no-dominate dependencies between call sites that do not dominate each other
	DominatorAnalysis bool `yaml:"dominator-analysis"`

	// UnknownCalleeEffect is the effect assumed for callees without a body or that cannot be resolved:
	// "none" or "modref"
	UnknownCalleeEffect string `yaml:"unknown-callee-effect"`

	// DeduplicateEdges drops a dependence when the same (source, destination, kind, objects) has already been
	// recorded
	DeduplicateEdges bool `yaml:"deduplicate-edges"`

	// MinSavingPercent is the threshold, in percent of the total execution time, under which a group is not
	// reported
	MinSavingPercent float64 `yaml:"min-saving-percent"`

	// MaxNodeSets limits the number of groups reported. If <= 0, it is ignored.
	MaxNodeSets int `yaml:"max-node-sets"`

	// Weights are the factors of the dependence cost and the decay of the score
	Weights Weights `yaml:"weights"`

	// Database is the path of a sqlite file where the results are exported, relative to the config file. Empty
	// means no export.
	Database string `yaml:"database"`

	// AnnotateDir is a directory where copies of the analyzed sources annotated with the ranked groups are written,
	// relative to the config file. Empty means no annotation.
	AnnotateDir string `yaml:"annotate-dir"`
}

// Weights of each dependence kind in the cost of a group of call sites
type Weights struct {
	True       float64 `yaml:"true-dependence"`
	Anti       float64 `yaml:"anti-dependence"`
	Output     float64 `yaml:"output-dependence"`
	Control    float64 `yaml:"control-dependence"`
	NoDominate float64 `yaml:"no-dominate-dependence"`

	// Decay is the constant d in score = exp(-cost/d) * max saving
	Decay float64 `yaml:"decay"`
}

// Options are the general options of the tool
type Options struct {
	// ReportsDir is the directory where all the reports will be stored. If the yaml config file this config struct has
	// been loaded does not specify a ReportsDir, the reports are only printed on standard output.
	ReportsDir string `yaml:"reports-dir"`

	// PkgFilter is a filter restricting the analysis to the functions whose package match the regex (or prefix, if
	// it is not a valid regex)
	PkgFilter string `yaml:"pkg-filter"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`
}

// DefaultWeights returns the weights used when the config does not specify any
func DefaultWeights() Weights {
	return Weights{
		True:       2,
		Anti:       1,
		Output:     1,
		Control:    2,
		NoDominate: 2,
		Decay:      10,
	}
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile:          "",
		Entry:               DefaultEntry,
		Profile:             "",
		PointerAnalysis:     BasePointerAnalysis,
		CallgraphResolution: "",
		DominatorAnalysis:   false,
		UnknownCalleeEffect: NoEffectPolicy,
		DeduplicateEdges:    false,
		MinSavingPercent:    DefaultMinSavingPercent,
		MaxNodeSets:         0,
		Weights:             DefaultWeights(),
		Options: Options{
			ReportsDir: "",
			PkgFilter:  "",
			LogLevel:   int(InfoLevel),
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	cfg := NewDefault()
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config file: %w", err)
	}

	cfg.sourceFile = filename

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}

	if cfg.ReportsDir != "" {
		if err := os.Mkdir(cfg.ReportsDir, 0750); err != nil && !os.IsExist(err) {
			return nil, fmt.Errorf("could not create directory %s", cfg.ReportsDir)
		}
	}

	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err == nil {
			cfg.pkgFilterRegex = r
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return cfg, nil
}

// Validate returns an error when some setting of the config has an unexpected value. All the problems are
// reported at once.
func (c Config) Validate() error {
	var errs []error
	switch c.PointerAnalysis {
	case BasePointerAnalysis, AndersenPointerAnalysis:
	default:
		errs = append(errs, fmt.Errorf("unknown pointer-analysis %q", c.PointerAnalysis))
	}
	switch c.UnknownCalleeEffect {
	case NoEffectPolicy, ModRefPolicy:
	default:
		errs = append(errs, fmt.Errorf("unknown unknown-callee-effect %q", c.UnknownCalleeEffect))
	}
	switch c.CallgraphResolution {
	case "", "none", "static", "cha", "rta", "vta", "pointer":
	default:
		errs = append(errs, fmt.Errorf("unknown callgraph-resolution %q", c.CallgraphResolution))
	}
	w := c.Weights
	if w.True < 0 || w.Anti < 0 || w.Output < 0 || w.Control < 0 || w.NoDominate < 0 {
		errs = append(errs, fmt.Errorf("dependence weights must be non-negative"))
	}
	if w.Decay <= 0 {
		errs = append(errs, fmt.Errorf("weights.decay must be positive, got %v", w.Decay))
	}
	if c.MinSavingPercent < 0 {
		errs = append(errs, fmt.Errorf("min-saving-percent must be non-negative"))
	}
	return errors.Join(errs...)
}

// RelPath returns filename path relative to the config source file
func (c Config) RelPath(filename string) string {
	if filename == "" || path.IsAbs(filename) || c.sourceFile == "" {
		return filename
	}
	return path.Join(path.Dir(c.sourceFile), filename)
}

// ProfilePath returns the path of the profile, relative to the config file
func (c Config) ProfilePath() string {
	return c.RelPath(c.Profile)
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the config file. If no
// package filter has been set in the config file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it could not be compiled to a regex. The safe
// case is to check whether the package filter string is a prefix of the pkgname
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	} else {
		return true
	}
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
