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
	"strings"

	"golang.org/x/tools/go/ssa"
)

// DependenceKind is a set of dependence kinds. An edge may carry several kinds at once.
type DependenceKind uint8

const (
	// TrueDependence is a write followed by a read of the same memory
	TrueDependence DependenceKind = 1 << iota
	// AntiDependence is a read followed by a write of the same memory
	AntiDependence
	// OutputDependence is two writes of the same memory
	OutputDependence
	// ControlDependence is a correlation between the outcome of a call and the execution of another one
	ControlDependence
	// NoDominateDependence marks two call sites where neither dominates the other
	NoDominateDependence
	// Incoming is set on the view of an edge from its destination
	Incoming
)

// AllDependenceKinds lists the kinds in the order they are reported
var AllDependenceKinds = []DependenceKind{
	TrueDependence, AntiDependence, OutputDependence, ControlDependence, NoDominateDependence,
}

var dependenceKindNames = map[DependenceKind]string{
	TrueDependence:       "True dependence",
	AntiDependence:       "Anti dependence",
	OutputDependence:     "Output dependence",
	ControlDependence:    "Control dependence",
	NoDominateDependence: "No dominator dependence",
}

// Has returns true if all the kinds of x are in k
func (k DependenceKind) Has(x DependenceKind) bool {
	return k&x == x && x != 0
}

// Names returns the names of the kinds in the set, without the Incoming flag
func (k DependenceKind) Names() []string {
	var names []string
	for _, x := range AllDependenceKinds {
		if k.Has(x) {
			names = append(names, dependenceKindNames[x])
		}
	}
	return names
}

func (k DependenceKind) String() string {
	return strings.Join(k.Names(), " ")
}

// Edge is a dependence between two call sites of the same function. An edge is stored once in its graph and
// both of its nodes hold a reference to it.
type Edge struct {
	Kind DependenceKind
	From *Node
	To   *Node
	// OwnObject is the name of the memory of the source the dependence is about. It may be empty.
	OwnObject string
	// ForeignObject is the name of the memory of the destination the dependence is about. It may be empty.
	ForeignObject string
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -> %s [%s] (%s -> %s)", e.From, e.To, e.Kind, e.OwnObject, e.ForeignObject)
}

// EdgeRef is an edge seen from one of its nodes. The forward reference is held by the source of the edge and the
// backward reference by its destination.
type EdgeRef struct {
	Edge     *Edge
	backward bool
}

// Kind returns the kind of the edge, with the Incoming flag on backward references
func (r EdgeRef) Kind() DependenceKind {
	if r.backward {
		return r.Edge.Kind | Incoming
	}
	return r.Edge.Kind
}

// IsIncoming returns true if the reference is held by the destination of the edge
func (r EdgeRef) IsIncoming() bool {
	return r.backward
}

// OwnObject returns the name of the memory on the side of the node holding the reference
func (r EdgeRef) OwnObject() string {
	if r.backward {
		return r.Edge.ForeignObject
	}
	return r.Edge.OwnObject
}

// ForeignObject returns the name of the memory on the side of the other node
func (r EdgeRef) ForeignObject() string {
	if r.backward {
		return r.Edge.OwnObject
	}
	return r.Edge.ForeignObject
}

// Other returns the node at the other end of the edge
func (r EdgeRef) Other() *Node {
	if r.backward {
		return r.Edge.From
	}
	return r.Edge.To
}

// Node is a call site in a dependence graph
type Node struct {
	Instr ssa.CallInstruction
	out   []EdgeRef
	in    []EdgeRef
}

// Out returns the forward references of the edges starting at the node
func (n *Node) Out() []EdgeRef { return n.out }

// In returns the backward references of the edges ending at the node
func (n *Node) In() []EdgeRef { return n.in }

func (n *Node) String() string {
	if n == nil || n.Instr == nil {
		return "<nil>"
	}
	return n.Instr.String()
}

type edgeKey struct {
	from, to     *Node
	kind         DependenceKind
	own, foreign string
}

// Graph is the dependence graph of the call sites of one function
type Graph struct {
	Function *ssa.Function
	nodes    map[ssa.CallInstruction]*Node
	order    []*Node
	edges    []*Edge
	dedup    map[edgeKey]bool
}

// NewGraph returns an empty dependence graph for f. If deduplicate is true, adding a dependence that is already
// in the graph has no effect.
func NewGraph(f *ssa.Function, deduplicate bool) *Graph {
	g := &Graph{Function: f, nodes: map[ssa.CallInstruction]*Node{}}
	if deduplicate {
		g.dedup = map[edgeKey]bool{}
	}
	return g
}

// Node returns the node of instr. If the node does not exist and createIfMissing is true, the node is created.
// Otherwise, the second result is false.
func (g *Graph) Node(instr ssa.CallInstruction, createIfMissing bool) (*Node, bool) {
	if n, ok := g.nodes[instr]; ok {
		return n, true
	}
	if !createIfMissing {
		return nil, false
	}
	if instr == nil {
		panic("dependence graph node for a nil instruction")
	}
	n := &Node{Instr: instr}
	g.nodes[instr] = n
	g.order = append(g.order, n)
	return n, true
}

// AddDependence records a dependence from a to b. The source holds a forward reference to the new edge and the
// destination a backward reference with the objects swapped. Returns the edge, or nil if the graph deduplicates
// edges and this dependence was already recorded.
func (g *Graph) AddDependence(a, b ssa.CallInstruction, kind DependenceKind, own, foreign string) *Edge {
	from, _ := g.Node(a, true)
	to, _ := g.Node(b, true)
	kind &^= Incoming
	if g.dedup != nil {
		key := edgeKey{from: from, to: to, kind: kind, own: own, foreign: foreign}
		if g.dedup[key] {
			return nil
		}
		g.dedup[key] = true
	}
	e := &Edge{Kind: kind, From: from, To: to, OwnObject: own, ForeignObject: foreign}
	g.edges = append(g.edges, e)
	from.out = append(from.out, EdgeRef{Edge: e})
	to.in = append(to.in, EdgeRef{Edge: e, backward: true})
	return e
}

// Nodes returns the nodes of the graph in creation order
func (g *Graph) Nodes() []*Node { return g.order }

// Edges returns the edges of the graph in creation order
func (g *Graph) Edges() []*Edge { return g.edges }

// EdgesBetween returns the edges from a to b
func (g *Graph) EdgesBetween(a, b ssa.CallInstruction) []*Edge {
	from, ok := g.nodes[a]
	if !ok {
		return nil
	}
	var res []*Edge
	for _, ref := range from.out {
		if ref.Edge.To.Instr == b {
			res = append(res, ref.Edge)
		}
	}
	return res
}
