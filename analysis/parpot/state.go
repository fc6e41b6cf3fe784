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

package parpot

import (
	"fmt"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// CalleeResolver resolves the function called at a call site
type CalleeResolver interface {
	// ResolveCallee returns the function with a body called at site, or nil if it cannot be resolved
	ResolveCallee(site ssa.CallInstruction) *ssa.Function
}

// MemoryNode is an abstract memory location of a pointer analysis
type MemoryNode interface {
	String() string
}

// PointerAnalysis maps values to the abstract memory they point to
type PointerAnalysis interface {
	// MemoryNode returns the abstract node v points to, and false if v does not point to memory the analysis knows
	MemoryNode(v ssa.Value) (MemoryNode, bool)
	// SameNode returns true if the two nodes represent the same memory
	SameNode(a, b MemoryNode) bool
}

// Profile is the dynamic call graph of a run of the program
type Profile interface {
	// ExecutionTime returns the time spent in the calls at site, 0 if unknown
	ExecutionTime(site ssa.CallInstruction) float64
	// TotalTime returns the execution time of the whole program
	TotalTime() float64
	// ConcreteCallee returns the runtime name of the function called at site during the run, if it is known
	ConcreteCallee(site ssa.CallInstruction) (string, bool)
}

type noProfile struct{}

func (noProfile) ExecutionTime(ssa.CallInstruction) float64         { return 0 }
func (noProfile) TotalTime() float64                                { return 0 }
func (noProfile) ConcreteCallee(ssa.CallInstruction) (string, bool) { return "", false }

type effectState struct {
	effect     Effect
	inProgress bool
}

type useKey struct {
	instr ssa.Instruction
	value ssa.Value
}

// AnalyzerState holds the inputs of the analysis and the results computed so far: the dependence graphs, the
// effects of the parameters and the global accesses of the functions. A state is used for one analysis of one
// program and is not safe for concurrent use.
type AnalyzerState struct {
	Program  *ssa.Program
	Config   *config.Config
	Logger   *config.LogGroup
	Resolver CalleeResolver
	Pointers PointerAnalysis
	Profile  Profile

	graphs     map[*ssa.Function]*Graph
	effects    map[ssa.Value]*effectState
	useEffects map[useKey]*effectState
	cells      map[ssa.Value]*effectState
	globals    map[*ssa.Function]map[*ssa.Global]GlobalAccess
	analyzers  []Analyzer
}

// NewAnalyzerState returns a new state. The profile and the pointer analysis may be nil: without profile, every
// execution time is 0 and indirect calls are only resolved by the resolver; without pointer analysis, the pointer
// alias analysis is not run.
func NewAnalyzerState(prog *ssa.Program, cfg *config.Config, logger *config.LogGroup, resolver CalleeResolver,
	pointers PointerAnalysis, profile Profile) *AnalyzerState {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if logger == nil {
		logger = config.NewLogGroup(cfg)
	}
	if profile == nil {
		profile = noProfile{}
	}
	s := &AnalyzerState{
		Program:    prog,
		Config:     cfg,
		Logger:     logger,
		Resolver:   resolver,
		Pointers:   pointers,
		Profile:    profile,
		graphs:     map[*ssa.Function]*Graph{},
		effects:    map[ssa.Value]*effectState{},
		useEffects: map[useKey]*effectState{},
		cells:      map[ssa.Value]*effectState{},
		globals:    map[*ssa.Function]map[*ssa.Global]GlobalAccess{},
	}
	if s.Resolver == nil {
		s.Resolver = NewResolver(prog, profile, nil)
	}
	s.analyzers = append(s.analyzers, &CorrelationAnalyzer{state: s})
	if pointers != nil {
		s.analyzers = append(s.analyzers, &PointerAliasAnalyzer{state: s})
	} else {
		logger.Warnf("no pointer analysis, dependencies through pointer arguments will not be found")
	}
	s.analyzers = append(s.analyzers, &GlobalsAnalyzer{state: s})
	if cfg.DominatorAnalysis {
		s.analyzers = append(s.analyzers, &DominatorAnalyzer{state: s})
	}
	return s
}

// Analyzers returns the analyzers run on every pair of candidate call sites
func (s *AnalyzerState) Analyzers() []Analyzer {
	return s.analyzers
}

// Graph returns the dependence graph of f, creating it if it does not exist yet
func (s *AnalyzerState) Graph(f *ssa.Function) *Graph {
	if g, ok := s.graphs[f]; ok {
		return g
	}
	g := NewGraph(f, s.Config.DeduplicateEdges)
	s.graphs[f] = g
	return g
}

// ExistingGraph returns the dependence graph of f if it has been created
func (s *AnalyzerState) ExistingGraph(f *ssa.Function) (*Graph, bool) {
	g, ok := s.graphs[f]
	return g, ok
}

// Graphs returns all the dependence graphs created
func (s *AnalyzerState) Graphs() map[*ssa.Function]*Graph {
	return s.graphs
}

// CandidateSites returns the call sites of f whose callee can be resolved, in the order of the instructions
func (s *AnalyzerState) CandidateSites(f *ssa.Function) []ssa.CallInstruction {
	var sites []ssa.CallInstruction
	for _, call := range lang.CallInstructions(f) {
		if s.Resolver.ResolveCallee(call) != nil {
			sites = append(sites, call)
		}
	}
	return sites
}

// Callees returns the resolved callees of the candidate sites of f, each function once, in the order of the sites
func (s *AnalyzerState) Callees(f *ssa.Function) []*ssa.Function {
	var callees []*ssa.Function
	seen := map[*ssa.Function]bool{}
	for _, site := range s.CandidateSites(f) {
		callee := s.Resolver.ResolveCallee(site)
		if !seen[callee] && s.inScope(callee) {
			seen[callee] = true
			callees = append(callees, callee)
		}
	}
	return callees
}

// inScope returns true if the function is analyzed, i.e. its package matches the package filter of the config
func (s *AnalyzerState) inScope(f *ssa.Function) bool {
	return s.Config.MatchPkgFilter(lang.PackageNameFromFunction(f))
}

// checkPair panics if a and b are not call sites of parent
func checkPair(parent *ssa.Function, a, b ssa.CallInstruction) {
	if a == nil || b == nil {
		panic(fmt.Sprintf("dependence analysis of %s called on a nil instruction", parent))
	}
	if a.Parent() != parent || b.Parent() != parent {
		panic(fmt.Sprintf("dependence analysis of %s called on instructions of another function: %s, %s",
			parent, lang.FmtInstr(a), lang.FmtInstr(b)))
	}
}
