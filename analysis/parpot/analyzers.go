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

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// An Analyzer records in the dependence graph of parent the dependencies it finds between the call sites a and b.
// Both call sites must be instructions of parent.
type Analyzer interface {
	Name() string
	Analyze(parent *ssa.Function, a, b ssa.CallInstruction)
}

// recordConflict records the dependence between two accesses to the same memory by a and b. The dependence goes
// from the call site that comes first in program order to the other one, and its kind is given by the order of
// the write and the read.
func recordConflict(g *Graph, a, b ssa.CallInstruction, modA, refA, modB, refB bool, objA, objB string) {
	aFirst := lang.InstrBefore(a, b)
	switch {
	case modA && refB:
		if aFirst {
			g.AddDependence(a, b, TrueDependence, objA, objB)
		} else {
			g.AddDependence(b, a, AntiDependence, objB, objA)
		}
	case refA && modB:
		if aFirst {
			g.AddDependence(a, b, AntiDependence, objA, objB)
		} else {
			g.AddDependence(b, a, TrueDependence, objB, objA)
		}
	case modA && modB:
		g.AddDependence(a, b, OutputDependence, objA, objB)
	}
}

// CorrelationAnalyzer finds control dependencies: a value defined by one call site that decides whether or how
// the other one executes.
type CorrelationAnalyzer struct {
	state *AnalyzerState
}

// Name returns the name of the analyzer
func (c *CorrelationAnalyzer) Name() string { return "correlation" }

// Analyze looks for control dependencies from a to b, and from b to a
func (c *CorrelationAnalyzer) Analyze(parent *ssa.Function, a, b ssa.CallInstruction) {
	checkPair(parent, a, b)
	c.analyzeOrdered(parent, a, b)
	c.analyzeOrdered(parent, b, a)
}

func (c *CorrelationAnalyzer) analyzeOrdered(parent *ssa.Function, a, b ssa.CallInstruction) {
	s := c.state
	callee := s.Resolver.ResolveCallee(a)
	if callee == nil {
		return
	}
	g := s.Graph(parent)

	// arguments written by the callee
	args := lang.GetArgs(a)
	for i, param := range callee.Params {
		if i >= len(args) || !lang.CanPoint(param.Type()) {
			continue
		}
		if s.ArgumentEffect(callee, i)&Mod != 0 && s.Reaches(args[i], b, false) {
			g.AddDependence(a, b, ControlDependence, lang.DisplayName(args[i]), "")
		}
	}

	// globals written by the callee
	accesses := s.GlobalAccesses(callee)
	for _, global := range sortedGlobals(accesses) {
		if accesses[global] == Change && s.Reaches(global, b, false) {
			g.AddDependence(a, b, ControlDependence, global.Name(), "")
		}
	}

	// returned value
	if v, ok := a.(*ssa.Call); ok && s.Reaches(v, b, true) {
		g.AddDependence(a, b, ControlDependence, "", "")
	}
}

// PointerAliasAnalyzer finds true, anti and output dependencies between call sites whose arguments point to the
// same abstract memory node.
type PointerAliasAnalyzer struct {
	state *AnalyzerState
}

// Name returns the name of the analyzer
func (p *PointerAliasAnalyzer) Name() string { return "pointer-alias" }

type namedNode struct {
	node MemoryNode
	name string
}

// argumentNodes returns the distinct memory nodes the pointer-like arguments of site point to, each named after
// the first argument pointing to it
func (p *PointerAliasAnalyzer) argumentNodes(site ssa.CallInstruction) []namedNode {
	var nodes []namedNode
	for _, arg := range lang.GetArgs(site) {
		if !lang.CanPoint(arg.Type()) {
			continue
		}
		n, ok := p.state.Pointers.MemoryNode(arg)
		if !ok {
			continue
		}
		known := false
		for _, other := range nodes {
			if p.state.Pointers.SameNode(other.node, n) {
				known = true
				break
			}
		}
		if !known {
			nodes = append(nodes, namedNode{node: n, name: lang.DisplayName(arg)})
		}
	}
	return nodes
}

// Analyze records a dependence for every memory node both a and b access, when one of them writes it
func (p *PointerAliasAnalyzer) Analyze(parent *ssa.Function, a, b ssa.CallInstruction) {
	checkPair(parent, a, b)
	s := p.state
	if s.Pointers == nil {
		return
	}
	g := s.Graph(parent)
	nodesB := p.argumentNodes(b)
	for _, na := range p.argumentNodes(a) {
		for _, nb := range nodesB {
			if !s.Pointers.SameNode(na.node, nb.node) {
				continue
			}
			effA := s.EffectOnNode(a, na.node)
			effB := s.EffectOnNode(b, nb.node)
			recordConflict(g, a, b, effA&Mod != 0, effA&Ref != 0, effB&Mod != 0, effB&Ref != 0, na.name, nb.name)
		}
	}
}

// DominatorAnalyzer records a no-dominate dependence between call sites where neither dominates the other
type DominatorAnalyzer struct {
	state *AnalyzerState
}

// Name returns the name of the analyzer
func (d *DominatorAnalyzer) Name() string { return "dominator" }

// Analyze records a no-dominate dependence from a to b if neither dominates the other. The dependence graph of
// parent must exist.
func (d *DominatorAnalyzer) Analyze(parent *ssa.Function, a, b ssa.CallInstruction) {
	checkPair(parent, a, b)
	g, ok := d.state.ExistingGraph(parent)
	if !ok {
		panic(fmt.Sprintf("no dependence graph for %s", parent))
	}
	if !lang.Dominates(a, b) && !lang.Dominates(b, a) {
		g.AddDependence(a, b, NoDominateDependence, "", "")
	}
}
