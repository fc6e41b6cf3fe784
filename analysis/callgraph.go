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

package analysis

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/callgraph/cha"
	"golang.org/x/tools/go/callgraph/rta"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/callgraph/vta"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// CallgraphAnalysisMode is the algorithm used to resolve the callees of the indirect calls
type CallgraphAnalysisMode uint64

const (
	// NoCallgraph means indirect calls are only resolved with the execution profile
	NoCallgraph CallgraphAnalysisMode = iota
	// PointerAnalysis is over-approximating (slow)
	PointerAnalysis
	// StaticAnalysis is under-approximating (fast)
	StaticAnalysis
	// ClassHierarchyAnalysis is a coarse over-approximation (fast)
	ClassHierarchyAnalysis
	// RapidTypeAnalysis only considers the types instantiated in code reachable from main
	RapidTypeAnalysis
	// VariableTypeAnalysis refines the static callgraph with the types flowing to each variable
	VariableTypeAnalysis
)

var callgraphModeNames = map[string]CallgraphAnalysisMode{
	"":        NoCallgraph,
	"none":    NoCallgraph,
	"pointer": PointerAnalysis,
	"static":  StaticAnalysis,
	"cha":     ClassHierarchyAnalysis,
	"rta":     RapidTypeAnalysis,
	"vta":     VariableTypeAnalysis,
}

// ParseCallgraphMode returns the mode named s (none, pointer, static, cha, rta or vta)
func ParseCallgraphMode(s string) (CallgraphAnalysisMode, error) {
	mode, ok := callgraphModeNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return NoCallgraph, fmt.Errorf("unknown callgraph analysis %q", s)
	}
	return mode, nil
}

func (mode CallgraphAnalysisMode) String() string {
	for name, m := range callgraphModeNames {
		if m == mode && name != "" {
			return name
		}
	}
	return "unknown"
}

// ComputeCallgraph computes the call graph of prog using the provided mode. Returns nil for NoCallgraph.
func (mode CallgraphAnalysisMode) ComputeCallgraph(prog *ssa.Program) (*callgraph.Graph, error) {
	switch mode {
	case NoCallgraph:
		return nil, nil
	case PointerAnalysis:
		// Build the callgraph using the pointer analysis. This function returns only the
		// callgraph, and not the entire pointer analysis result.
		result, err := DoPointerAnalysis(prog, func(_ *ssa.Function) bool { return false }, true)
		if err != nil {
			return nil, fmt.Errorf("pointer analysis failed: %w", err)
		}
		return result.CallGraph, nil
	case StaticAnalysis:
		return static.CallGraph(prog), nil
	case ClassHierarchyAnalysis:
		// "Optimization of Object-Oriented Programs Using Static Class Hierarchy Analysis",
		// J. Dean, D. Grove, and C. Chambers, ECOOP'95.
		return cha.CallGraph(prog), nil
	case VariableTypeAnalysis:
		roots := make(map[*ssa.Function]bool)
		for _, f := range mainRoots(prog) {
			roots[f] = true
		}
		return vta.CallGraph(roots, cha.CallGraph(prog)), nil
	case RapidTypeAnalysis:
		// "Fast Analysis of C++ Virtual Function Calls", D.Bacon & P. Sweeney, OOPSLA'96
		roots := mainRoots(prog)
		if len(roots) == 0 {
			return nil, fmt.Errorf("rapid type analysis requires a main package")
		}
		return rta.Analyze(roots, true).CallGraph, nil
	default:
		return nil, fmt.Errorf("unsupported callgraph analysis mode %d", mode)
	}
}

// mainRoots returns the init and main functions of the main packages of prog
func mainRoots(prog *ssa.Program) []*ssa.Function {
	var roots []*ssa.Function
	for _, m := range ssautil.MainPackages(prog.AllPackages()) {
		for _, name := range []string{"init", "main"} {
			if f := m.Func(name); f != nil {
				roots = append(roots, f)
			}
		}
	}
	return roots
}
