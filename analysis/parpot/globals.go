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
	"go/token"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/internal/funcutil"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/ssa"
)

// GlobalAccess is the way a function accesses a global variable
type GlobalAccess uint8

const (
	// Read means the global is only read
	Read GlobalAccess = 1
	// Change means the global may be written
	Change GlobalAccess = 2
)

func (a GlobalAccess) String() string {
	switch a {
	case Read:
		return "read"
	case Change:
		return "change"
	}
	return "none"
}

func maxAccess(a, b GlobalAccess) GlobalAccess {
	if a > b {
		return a
	}
	return b
}

// GlobalAccesses returns the globals accessed by f and the functions it calls. The map is computed once per
// function; on recursive calls, the map being computed is returned as is.
func (s *AnalyzerState) GlobalAccesses(f *ssa.Function) map[*ssa.Global]GlobalAccess {
	if m, ok := s.globals[f]; ok {
		return m
	}
	m := map[*ssa.Global]GlobalAccess{}
	s.globals[f] = m
	if f == nil || lang.IsExternal(f) {
		return m
	}
	add := func(g *ssa.Global, a GlobalAccess) {
		m[g] = maxAccess(m[g], a)
	}
	lang.IterateInstructions(f, func(_ int, instr ssa.Instruction) {
		switch x := instr.(type) {
		case *ssa.UnOp:
			if x.Op == token.MUL {
				if g, ok := accessedGlobal(x.X); ok {
					add(g, Read)
				}
			}
		case *ssa.Store:
			if g, ok := accessedGlobal(x.Addr); ok {
				add(g, Change)
			}
		case *ssa.MapUpdate:
			if g, ok := accessedGlobal(x.Map); ok {
				add(g, Change)
			}
		case ssa.CallInstruction:
			// globals passed by address to builtins, or to callees that cannot be resolved
			callee := s.Resolver.ResolveCallee(x)
			if callee != nil {
				break
			}
			for i, arg := range lang.GetArgs(x) {
				if g, ok := accessedGlobal(arg); ok && lang.CanPoint(arg.Type()) {
					e := s.CallArgumentEffect(x, i)
					if e&Mod != 0 {
						add(g, Change)
					} else if e&Ref != 0 {
						add(g, Read)
					}
				}
			}
		}
	})
	for _, site := range s.CandidateSites(f) {
		callee := s.Resolver.ResolveCallee(site)
		funcutil.Merge(m, s.GlobalAccesses(callee), maxAccess)
	}
	return m
}

// accessedGlobal returns the global whose memory addr points into, either directly or through the reference
// stored in the global (e.g. an element of a global slice or map)
func accessedGlobal(addr ssa.Value) (*ssa.Global, bool) {
	base := lang.BaseObject(addr)
	if load, ok := base.(*ssa.UnOp); ok && load.Op == token.MUL {
		base = lang.BaseObject(load.X)
	}
	g, ok := base.(*ssa.Global)
	return g, ok
}

// sortedGlobals returns the globals of the map sorted by name
func sortedGlobals(m map[*ssa.Global]GlobalAccess) []*ssa.Global {
	globals := maps.Keys(m)
	slices.SortFunc(globals, func(a, b *ssa.Global) bool { return a.RelString(nil) < b.RelString(nil) })
	return globals
}

// GlobalsAnalyzer finds true, anti and output dependencies between call sites whose callees access the same
// global variables.
type GlobalsAnalyzer struct {
	state *AnalyzerState
}

// Name returns the name of the analyzer
func (ga *GlobalsAnalyzer) Name() string { return "globals" }

// Analyze records a dependence for every global accessed by the callees of a and b, when one of them changes it
func (ga *GlobalsAnalyzer) Analyze(parent *ssa.Function, a, b ssa.CallInstruction) {
	checkPair(parent, a, b)
	s := ga.state
	calleeA := s.Resolver.ResolveCallee(a)
	calleeB := s.Resolver.ResolveCallee(b)
	if calleeA == nil || calleeB == nil {
		return
	}
	g := s.Graph(parent)
	accA := s.GlobalAccesses(calleeA)
	accB := s.GlobalAccesses(calleeB)
	for _, global := range sortedGlobals(accA) {
		ab, ok := accB[global]
		if !ok {
			continue
		}
		aa := accA[global]
		name := "G:" + global.Name()
		recordConflict(g, a, b, aa == Change, aa == Read, ab == Change, ab == Read, name, name)
	}
}
