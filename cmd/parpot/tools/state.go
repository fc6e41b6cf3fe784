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

package tools

import (
	"fmt"
	"go/token"
	"time"

	"github.com/awslabs/ar-go-parpot/analysis"
	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/memnode"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/analysis/profile"
	"github.com/awslabs/ar-go-parpot/internal/formatutil"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// Analysis is a loaded program with the analyzer state built from a config
type Analysis struct {
	Config  *config.Config
	Logger  *config.LogGroup
	Program *ssa.Program
	// Root is the entry function of the config
	Root  *ssa.Function
	State *parpot.AnalyzerState
}

// LoadAnalysis loads the config and the program designated by the flags, and builds the analyzer state.
func LoadAnalysis(flags CommonFlags) (*Analysis, error) {
	cfg, err := LoadConfig(flags.ConfigPath, flags.Verbose)
	if err != nil {
		return nil, err
	}
	logger := config.NewLogGroup(cfg)

	logger.Infof(formatutil.Faint("Reading sources") + "\n")
	pkgConfig := &packages.Config{
		Mode:  analysis.PkgLoadMode,
		Tests: flags.WithTest,
		Fset:  token.NewFileSet(),
	}
	loaded, err := analysis.LoadProgram(pkgConfig, "", ssa.InstantiateGenerics, flags.FlagSet.Args())
	if err != nil {
		return nil, err
	}
	return NewAnalysis(cfg, logger, loaded.Program)
}

// NewAnalysis builds the analyzer state of prog: the profile, the memory nodes and the call graph selected in cfg.
func NewAnalysis(cfg *config.Config, logger *config.LogGroup, prog *ssa.Program) (*Analysis, error) {
	root := analysis.FindFunction(prog, cfg.Entry)
	if root == nil {
		return nil, fmt.Errorf("could not find entry function %s in the program", cfg.Entry)
	}

	// a nil *CallProfile must not end up in the interface
	var prof parpot.Profile
	if cfg.Profile != "" {
		p, err := profile.Load(cfg.ProfilePath())
		if err != nil {
			return nil, err
		}
		logger.Infof("Loaded profile %s: %d call records, total time %g\n",
			cfg.ProfilePath(), len(p.Records()), p.TotalTime())
		prof = p
	} else {
		logger.Warnf("no profile in the config, every call site has an execution time of 0\n")
	}

	start := time.Now()
	pointers, err := memnode.New(cfg, prog)
	if err != nil {
		return nil, fmt.Errorf("could not compute memory nodes: %w", err)
	}
	logger.Debugf("%s pointer analysis done in %3.4f s\n", cfg.PointerAnalysis, time.Since(start).Seconds())

	mode, err := analysis.ParseCallgraphMode(cfg.CallgraphResolution)
	if err != nil {
		return nil, err
	}
	start = time.Now()
	cg, err := mode.ComputeCallgraph(prog)
	if err != nil {
		return nil, fmt.Errorf("could not compute callgraph: %w", err)
	}
	if cg != nil {
		logger.Debugf("%s callgraph computed in %3.4f s\n", mode, time.Since(start).Seconds())
	}

	resolver := parpot.NewResolver(prog, prof, cg)
	return &Analysis{
		Config:  cfg,
		Logger:  logger,
		Program: prog,
		Root:    root,
		State:   parpot.NewAnalyzerState(prog, cfg, logger, resolver, pointers, prof),
	}, nil
}

// Run analyzes the program from its root function
func (a *Analysis) Run() (*parpot.Result, error) {
	start := time.Now()
	res, err := a.State.Analyze(a.Root)
	if err != nil {
		return nil, fmt.Errorf("analysis of %s failed: %w", a.Config.Entry, err)
	}
	a.Logger.Infof(formatutil.Faint(fmt.Sprintf("Analysis done in %.3f s", time.Since(start).Seconds())) + "\n")
	return res, nil
}
