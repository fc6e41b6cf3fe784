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
	"math"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"golang.org/x/exp/slices"
	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/floats"
)

// Member is a call site of a node set
type Member struct {
	Site   ssa.CallInstruction
	Callee *ssa.Function
	// Time is the execution time of the calls at the site, 0 if not measured
	Time float64
}

// NodeSet is a group of call sites of one function that could run in parallel, with the dependencies between them
// and the time their parallel execution could save.
type NodeSet struct {
	Graph   *Graph
	Members []Member

	// Edges are the dependencies between two members of the set
	Edges []*Edge

	TrueDeps       int
	AntiDeps       int
	OutputDeps     int
	ControlDeps    int
	NoDominateDeps int

	// MinSaving is the execution time of the fastest member
	MinSaving float64
	// MaxSaving is the time saved if all the members run in parallel with the slowest one
	MaxSaving float64

	// Stores is the number of stores in the callees of the members
	Stores int
}

// NewNodeSet builds the node set of the members in the dependence graph g. Only the direct dependencies between
// members are considered, each edge once. The savings are 0 when fewer than two members have been timed.
func NewNodeSet(g *Graph, members []Member) *NodeSet {
	ns := &NodeSet{Graph: g, Members: members}
	for i, a := range members {
		for j, b := range members {
			if i == j {
				continue
			}
			for _, e := range g.EdgesBetween(a.Site, b.Site) {
				ns.addEdge(e)
			}
		}
	}

	times := make([]float64, len(members))
	timed := 0
	for i, m := range members {
		times[i] = m.Time
		if m.Time > 0 {
			timed++
		}
	}
	if timed >= 2 {
		ns.MinSaving = floats.Min(times)
		ns.MaxSaving = floats.Sum(times) - floats.Max(times)
	}
	return ns
}

func (ns *NodeSet) addEdge(e *Edge) {
	ns.Edges = append(ns.Edges, e)
	if e.Kind.Has(TrueDependence) {
		ns.TrueDeps++
	}
	if e.Kind.Has(AntiDependence) {
		ns.AntiDeps++
	}
	if e.Kind.Has(OutputDependence) {
		ns.OutputDeps++
	}
	if e.Kind.Has(ControlDependence) {
		ns.ControlDeps++
	}
	if e.Kind.Has(NoDominateDependence) {
		ns.NoDominateDeps++
	}
}

// Parent returns the function the members of the set are call sites of
func (ns *NodeSet) Parent() *ssa.Function {
	return ns.Graph.Function
}

// Cost returns the weighted sum of the dependencies of the set
func (ns *NodeSet) Cost(w config.Weights) float64 {
	return w.True*float64(ns.TrueDeps) +
		w.Anti*float64(ns.AntiDeps) +
		w.Output*float64(ns.OutputDeps) +
		w.Control*float64(ns.ControlDeps) +
		w.NoDominate*float64(ns.NoDominateDeps)
}

// Score returns exp(-cost/decay) * MaxSaving. A set without dependencies scores its maximum saving.
func (ns *NodeSet) Score(w config.Weights) float64 {
	decay := w.Decay
	if decay <= 0 {
		decay = config.DefaultWeights().Decay
	}
	return math.Exp(-ns.Cost(w)/decay) * ns.MaxSaving
}

// SortNodeSets sorts the sets by decreasing score. Sets with the same score keep their order.
func SortNodeSets(sets []*NodeSet, w config.Weights) {
	SortNodeSetsBy(sets, func(ns *NodeSet) float64 { return ns.Score(w) })
}

// SortNodeSetsBy sorts the sets by decreasing key. Sets with the same key keep their order.
func SortNodeSetsBy(sets []*NodeSet, key func(*NodeSet) float64) {
	keys := make(map[*NodeSet]float64, len(sets))
	for _, ns := range sets {
		keys[ns] = key(ns)
	}
	slices.SortStableFunc(sets, func(a, b *NodeSet) bool { return keys[a] > keys[b] })
}
