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

// Package memnode maps the values of a program to abstract memory nodes, for the pointer alias analysis of
// parpot. Two implementations are provided: BaseObjects, which names the memory by the object an address is
// computed from inside a function, and Andersen, which uses the inclusion-based pointer analysis of
// golang.org/x/tools/go/pointer.
package memnode

import (
	"fmt"

	"github.com/awslabs/ar-go-parpot/analysis"
	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
)

// New returns the pointer analysis selected in the config
func New(cfg *config.Config, prog *ssa.Program) (parpot.PointerAnalysis, error) {
	switch cfg.PointerAnalysis {
	case config.AndersenPointerAnalysis:
		return NewAndersen(prog, func(f *ssa.Function) bool {
			return cfg.MatchPkgFilter(lang.PackageNameFromFunction(f))
		})
	case config.BasePointerAnalysis, "":
		return BaseObjects{}, nil
	default:
		return nil, fmt.Errorf("unknown pointer analysis %q", cfg.PointerAnalysis)
	}
}

// BaseObjects is the intra-procedural pointer analysis: the memory node of a pointer is the value its address is
// computed from (an allocation, a global, a parameter, a free variable or the result of a call or a load),
// ignoring field selection, indexing and conversions. Two pointers computed from the same object are in the same
// node, and pointers computed from different objects never are.
type BaseObjects struct{}

type baseNode struct {
	base ssa.Value
}

func (n baseNode) String() string {
	return lang.DisplayName(n.base)
}

// MemoryNode returns the node of the object v is computed from
func (BaseObjects) MemoryNode(v ssa.Value) (parpot.MemoryNode, bool) {
	if v == nil || !lang.CanPoint(v.Type()) {
		return nil, false
	}
	base := lang.BaseObject(v)
	switch base.(type) {
	case *ssa.Const, *ssa.Function, *ssa.Builtin:
		return nil, false
	}
	return baseNode{base: base}, true
}

// SameNode returns true if a and b are the node of the same object
func (BaseObjects) SameNode(a, b parpot.MemoryNode) bool {
	na, ok1 := a.(baseNode)
	nb, ok2 := b.(baseNode)
	return ok1 && ok2 && na.base == nb.base
}

// Andersen is the whole program pointer analysis of golang.org/x/tools/go/pointer. The memory node of a pointer
// is its points-to set, and two nodes are the same when their points-to sets intersect.
type Andersen struct {
	result *pointer.Result
}

type pointsToNode struct {
	ptr pointer.Pointer
}

func (n pointsToNode) String() string {
	return n.ptr.PointsTo().String()
}

// NewAndersen runs the pointer analysis on prog, querying the values of the functions accepted by filter.
// The program must have a main package.
func NewAndersen(prog *ssa.Program, filter func(*ssa.Function) bool) (*Andersen, error) {
	result, err := analysis.DoPointerAnalysis(prog, filter, false)
	if err != nil {
		return nil, fmt.Errorf("pointer analysis failed: %w", err)
	}
	return &Andersen{result: result}, nil
}

// MemoryNode returns the points-to set of v, if v has been queried and points to something
func (a *Andersen) MemoryNode(v ssa.Value) (parpot.MemoryNode, bool) {
	ptr, ok := a.result.Queries[v]
	if !ok || len(ptr.PointsTo().Labels()) == 0 {
		return nil, false
	}
	return pointsToNode{ptr: ptr}, true
}

// SameNode returns true if the points-to sets of a and b may contain the same object
func (a *Andersen) SameNode(x, y parpot.MemoryNode) bool {
	nx, ok1 := x.(pointsToNode)
	ny, ok2 := y.(pointsToNode)
	return ok1 && ok2 && nx.ptr.MayAlias(ny.ptr)
}
