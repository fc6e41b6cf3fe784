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

package parpot_test

import (
	"io"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/memnode"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

// fakeProfile gives the time of the call sites by the name of their callee
type fakeProfile struct {
	times map[string]float64
	total float64
	// concrete maps the name of a function to the runtime name of the callee of its dynamic call sites
	concrete map[string]string
}

func (p fakeProfile) ExecutionTime(site ssa.CallInstruction) float64 {
	if f := site.Common().StaticCallee(); f != nil {
		return p.times[f.Name()]
	}
	return 0
}

func (p fakeProfile) TotalTime() float64 { return p.total }

func (p fakeProfile) ConcreteCallee(site ssa.CallInstruction) (string, bool) {
	name, ok := p.concrete[site.Parent().Name()]
	return name, ok
}

func quietLogger(cfg *config.Config) *config.LogGroup {
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	return logger
}

// newState builds the SSA of src and returns an analysis state with the intra-procedural pointer analysis
func newState(t *testing.T, src string, profile parpot.Profile, cfg *config.Config) (*parpot.AnalyzerState,
	*ssa.Package) {
	prog, pkg := analysistest.BuildSSA(t, src)
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return parpot.NewAnalyzerState(prog, cfg, quietLogger(cfg), nil, memnode.BaseObjects{}, profile), pkg
}

// analyzeMain runs the analysis of src from its main function
func analyzeMain(t *testing.T, src string, profile parpot.Profile, cfg *config.Config) (*parpot.Result,
	*parpot.AnalyzerState, *ssa.Package) {
	state, pkg := newState(t, src, profile, cfg)
	res, err := state.Analyze(pkg.Func("main"))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return res, state, pkg
}

// edgesOf returns the edges of the graph of f in the result
func edgesOf(t *testing.T, res *parpot.Result, f *ssa.Function) []*parpot.Edge {
	g, ok := res.Graphs[f]
	if !ok {
		t.Fatalf("no dependence graph for %s", f.Name())
	}
	return g.Edges()
}
