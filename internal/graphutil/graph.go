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

// Package graphutil contains graph algorithms over the call tree of the analysis: iterative post-order, strongly
// connected components and elementary cycles, and an adapter to the gonum and yourbasic graph libraries.
package graphutil

import (
	"github.com/awslabs/ar-go-parpot/internal/funcutil"
	ybgraph "github.com/yourbasic/graph"
	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/graph"
)

// CallTree is the graph of the functions reachable from a root function, where an edge f -> g means that some
// call site of f resolves to g. It implements the methods to satisfy yourbasic's graph.Iterator and gonum's
// graph.Directed.
//
// Node ids are the indices of the functions in post-order, so the root has the largest id.
type CallTree struct {
	// Root is the function the tree was built from
	Root *ssa.Function

	// IDMap maps from node IDs to CTNodes
	IDMap map[int64]CTNode

	// Keys are all the node IDs, sorted
	Keys []int64

	// Edges is an adjacency matrix: Edges[x][y] means there is a directed edge between IDMap[x] and IDMap[y]
	Edges map[int64]map[int64]bool

	ids   map[*ssa.Function]int64
	order int
}

// NewCallTree builds the call tree rooted at root. callees returns the functions called by a function, in the
// order of its call sites.
func NewCallTree(root *ssa.Function, callees func(*ssa.Function) []*ssa.Function) *CallTree {
	order := PostOrder(root, callees)
	ct := &CallTree{
		Root:  root,
		IDMap: make(map[int64]CTNode, len(order)),
		Keys:  make([]int64, len(order)),
		Edges: make(map[int64]map[int64]bool, len(order)),
		ids:   make(map[*ssa.Function]int64, len(order)),
		order: len(order),
	}
	for i, f := range order {
		id := int64(i)
		ct.ids[f] = id
		ct.IDMap[id] = CTNode{id: id, Function: f}
		ct.Keys[i] = id
	}
	for _, f := range order {
		from := ct.ids[f]
		ct.Edges[from] = map[int64]bool{}
		for _, g := range callees(f) {
			if to, ok := ct.ids[g]; ok {
				ct.Edges[from][to] = true
			}
		}
	}
	return ct
}

// Functions returns the functions of the tree in post-order: callees before their callers, and the root last.
func (c *CallTree) Functions() []*ssa.Function {
	funcs := make([]*ssa.Function, 0, len(c.Keys))
	for _, id := range c.Keys {
		funcs = append(funcs, c.IDMap[id].Function)
	}
	return funcs
}

// NodeOf returns the node of function f, if f is in the tree
func (c *CallTree) NodeOf(f *ssa.Function) (CTNode, bool) {
	id, ok := c.ids[f]
	if !ok {
		return CTNode{}, false
	}
	return c.IDMap[id], true
}

// Subgraph returns a new graph that is the original graph with only the nodes in include. Only the edges that have
// both the origin and destination nodes in the include nodes are kept in the resulting graph.
// The node ids of the subgraph are the ids of the original.
func Subgraph(original *CallTree, include []int64) *CallTree {
	sub := &CallTree{
		Root:  original.Root,
		IDMap: make(map[int64]CTNode, len(include)),
		Keys:  make([]int64, len(include)),
		Edges: make(map[int64]map[int64]bool, len(include)),
		ids:   original.ids,
		order: original.order,
	}
	for j, i := range include {
		sub.Keys[j] = i
		sub.IDMap[i] = original.IDMap[i]
	}
	for _, i := range include {
		sub.Edges[i] = map[int64]bool{}
		for e := range original.Edges[i] {
			if _, ok := sub.IDMap[e]; ok {
				sub.Edges[i][e] = true
			}
		}
	}
	return sub
}

// Stats returns the statistics of the call tree computed by yourbasic's graph.Check
func (c *CallTree) Stats() ybgraph.Stats {
	return ybgraph.Check(c)
}

// Order implements the order of the graph.Iterator interface for the CallTree
func (c *CallTree) Order() int {
	return c.order
}

// Visit implements the graph.Iterator interface for the CallTree
func (c *CallTree) Visit(v int, do func(w int, c int64) (skip bool)) (aborted bool) {
	if _, ok := c.IDMap[int64(v)]; !ok {
		return false
	}
	for _, w := range funcutil.SetToOrderedSlice(c.Edges[int64(v)]) {
		if do(int(w), 1) {
			return true
		}
	}
	return false
}

// *************** Graph interface implementation **********************

// Node implements the Graph interface
func (c *CallTree) Node(id int64) graph.Node {
	n, ok := c.IDMap[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns the set of nodes in the graph
func (c *CallTree) Nodes() graph.Nodes {
	return &NodeSet{nodes: c.IDMap, ids: append([]int64(nil), c.Keys...), cur: -1}
}

// From returns the set of nodes called by the node id
func (c *CallTree) From(id int64) graph.Nodes {
	return &NodeSet{nodes: c.IDMap, ids: funcutil.SetToOrderedSlice(c.Edges[id]), cur: -1}
}

// To returns the set of nodes calling the node id
func (c *CallTree) To(id int64) graph.Nodes {
	var ids []int64
	for _, k := range c.Keys {
		if c.Edges[k][id] {
			ids = append(ids, k)
		}
	}
	return &NodeSet{nodes: c.IDMap, ids: ids, cur: -1}
}

// HasEdgeBetween returns a boolean indicating whether an edge exists between the two node identifiers
func (c *CallTree) HasEdgeBetween(xid, yid int64) bool {
	return c.Edges[xid][yid] || c.Edges[yid][xid]
}

// HasEdgeFromTo returns whether the function uid calls the function vid
func (c *CallTree) HasEdgeFromTo(uid, vid int64) bool {
	return c.Edges[uid][vid]
}

// Edge returns the edge between the two identifiers (nil if none exists)
func (c *CallTree) Edge(uid, vid int64) graph.Edge {
	if c.Edges[uid][vid] {
		return CTEdge{from: c.IDMap[uid], to: c.IDMap[vid]}
	}
	return nil
}

// *************** Nodes implementation **********************

// CTNode is a function of the call tree. It implements the graph.Node interface
type CTNode struct {
	id       int64
	Function *ssa.Function
}

// ID returns the id of the node
func (n CTNode) ID() int64 {
	return n.id
}

func (n CTNode) String() string {
	if n.Function == nil {
		return ""
	}
	return n.Function.String()
}

// NodeSet implements the graph.Nodes interface, an iterator over a set of nodes
type NodeSet struct {
	// nodes is the set of nodes in the iterator
	nodes map[int64]CTNode

	// ids is the set of node ids in the iterator
	ids []int64

	// cur is the current index of the iterator, -1 before the first call to Next
	cur int
}

// Next moves the current node to the next, and returns true if such a node exists. Otherwise, returns false
// and the current node has not changed.
func (ns *NodeSet) Next() bool {
	if ns.cur < len(ns.ids)-1 {
		ns.cur++
		return true
	}
	return false
}

// Len returns the number of nodes left in the iteration
func (ns *NodeSet) Len() int {
	return len(ns.ids) - ns.cur - 1
}

// Reset resets the id of the current node in the set
func (ns *NodeSet) Reset() {
	ns.cur = -1
}

// Node return the current node in the set
func (ns *NodeSet) Node() graph.Node {
	if ns.cur < 0 || ns.cur >= len(ns.ids) {
		return nil
	}
	return ns.nodes[ns.ids[ns.cur]]
}

// *************** Edge implementation **********************

// CTEdge implements the graph.Edge interface
type CTEdge struct {
	from CTNode
	to   CTNode
}

// From returns the origin of the edge
func (e CTEdge) From() graph.Node {
	return e.from
}

// To returns the destination of the edge
func (e CTEdge) To() graph.Node {
	return e.to
}

// ReversedEdge returns a new value representing the reversed edge
func (e CTEdge) ReversedEdge() graph.Edge {
	return CTEdge{from: e.to, to: e.from}
}
