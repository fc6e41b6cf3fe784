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

// Package render writes the dependence graphs of the parallelization potential analysis and the call tree it
// explores in the GraphViz dot format.
package render

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/graphutil"
	"golang.org/x/tools/go/ssa"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
)

// kindColors are the colors of the edges, by decreasing priority when an edge has several kinds
var kindColors = []struct {
	kind  parpot.DependenceKind
	color string
}{
	{parpot.TrueDependence, "red"},
	{parpot.OutputDependence, "purple"},
	{parpot.AntiDependence, "orange"},
	{parpot.ControlDependence, "blue"},
	{parpot.NoDominateDependence, "gray"},
}

// dotGraph is a simple directed graph with graph-level attributes
type dotGraph struct {
	*simple.DirectedGraph
	attrs attributes
}

func (g dotGraph) DOTAttributers() (graphAttrs, nodeAttrs, edgeAttrs encoding.Attributer) {
	return g.attrs, attributes{{Key: "shape", Value: "box"}}, attributes{}
}

type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute { return a }

// labeledNode is a node of the rendered graphs
type labeledNode struct {
	id    int64
	attrs attributes
}

func (n *labeledNode) ID() int64 { return n.id }

func (n *labeledNode) Attributes() []encoding.Attribute { return n.attrs }

// labeledEdge is an edge of the rendered graphs. Edges between the same nodes are merged into one edge with
// several labels.
type labeledEdge struct {
	from, to *labeledNode
	kind     parpot.DependenceKind
	labels   []string
	color    string
}

func (e *labeledEdge) From() graph.Node { return e.from }

func (e *labeledEdge) To() graph.Node { return e.to }

func (e *labeledEdge) ReversedEdge() graph.Edge {
	return &labeledEdge{from: e.to, to: e.from, kind: e.kind, labels: e.labels, color: e.color}
}

func (e *labeledEdge) Attributes() []encoding.Attribute {
	attrs := attributes{}
	if len(e.labels) > 0 {
		attrs = append(attrs, encoding.Attribute{Key: "label", Value: strings.Join(e.labels, "\n")})
	}
	color := e.color
	for _, kc := range kindColors {
		if color == "" && e.kind.Has(kc.kind) {
			color = kc.color
		}
	}
	if color != "" {
		attrs = append(attrs, encoding.Attribute{Key: "color", Value: color})
	}
	if e.kind == parpot.NoDominateDependence {
		attrs = append(attrs, encoding.Attribute{Key: "style", Value: "dashed"})
	}
	return attrs
}

// SiteLabel returns the label of a call site: the name of its callee and its position
func SiteLabel(site ssa.CallInstruction, callee *ssa.Function) string {
	name := parpot.FunctionDisplayName(callee)
	if callee == nil {
		name = site.Common().Description()
	}
	pos := lang.InstrPosition(site)
	if !pos.IsValid() {
		return name
	}
	return fmt.Sprintf("%s\n%s:%d", name, lang.FunctionFile(site.Parent()), pos.Line)
}

// DependenceGraph returns the dependence graph g as a gonum graph whose nodes and edges carry dot attributes.
// The callees of the sites are resolved with resolver, or statically if resolver is nil.
func DependenceGraph(g *parpot.Graph, resolver parpot.CalleeResolver) graph.Directed {
	dg := dotGraph{
		DirectedGraph: simple.NewDirectedGraph(),
		attrs:         attributes{{Key: "label", Value: parpot.FunctionDisplayName(g.Function)}},
	}
	nodes := map[*parpot.Node]*labeledNode{}
	for i, n := range g.Nodes() {
		var callee *ssa.Function
		if resolver != nil {
			callee = resolver.ResolveCallee(n.Instr)
		} else {
			callee = n.Instr.Common().StaticCallee()
		}
		ln := &labeledNode{id: int64(i), attrs: attributes{{Key: "label", Value: SiteLabel(n.Instr, callee)}}}
		nodes[n] = ln
		dg.AddNode(ln)
	}
	edges := map[[2]int64]*labeledEdge{}
	var keys [][2]int64
	for _, e := range g.Edges() {
		from, to := nodes[e.From], nodes[e.To]
		key := [2]int64{from.id, to.id}
		le, ok := edges[key]
		if !ok {
			le = &labeledEdge{from: from, to: to}
			edges[key] = le
			keys = append(keys, key)
		}
		le.kind |= e.Kind
		le.labels = append(le.labels, edgeLabel(e))
	}
	for _, key := range keys {
		dg.SetEdge(edges[key])
	}
	return dg
}

func edgeLabel(e *parpot.Edge) string {
	if e.OwnObject == "" && e.ForeignObject == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s (%s -> %s)", e.Kind, e.OwnObject, e.ForeignObject)
}

// WriteDependenceGraph writes the dependence graph g to w in the dot format
func WriteDependenceGraph(w io.Writer, g *parpot.Graph, resolver parpot.CalleeResolver) error {
	b, err := dot.Marshal(DependenceGraph(g, resolver), "dependencies", "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode dependence graph of %s: %w", g.Function, err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// CallTreeGraph returns the call tree as a gonum graph. If highlightCycles is true, the functions and calls that
// are part of a recursive cycle are colored. Self-recursive functions are drawn with a double border, since the
// graph has no self edges.
func CallTreeGraph(ct *graphutil.CallTree, highlightCycles bool) graph.Directed {
	dg := dotGraph{
		DirectedGraph: simple.NewDirectedGraph(),
		attrs:         attributes{{Key: "rankdir", Value: "LR"}},
	}
	inCycle := map[int64]bool{}
	cycleEdges := map[[2]int64]bool{}
	if highlightCycles {
		for _, cycle := range graphutil.FindAllElementaryCycles(ct) {
			for i, id := range cycle {
				inCycle[id] = true
				if i+1 < len(cycle) {
					cycleEdges[[2]int64{id, cycle[i+1]}] = true
				}
			}
		}
	}
	nodes := map[int64]*labeledNode{}
	for _, id := range ct.Keys {
		f := ct.IDMap[id].Function
		ln := &labeledNode{id: id, attrs: attributes{{Key: "label", Value: lang.RuntimeName(f)}}}
		if ct.Edges[id][id] {
			ln.attrs = append(ln.attrs, encoding.Attribute{Key: "peripheries", Value: "2"})
		}
		if inCycle[id] {
			ln.attrs = append(ln.attrs, encoding.Attribute{Key: "color", Value: "red"})
		}
		nodes[id] = ln
		dg.AddNode(ln)
	}
	for _, from := range ct.Keys {
		targets := make([]int64, 0, len(ct.Edges[from]))
		for to := range ct.Edges[from] {
			if to != from {
				targets = append(targets, to)
			}
		}
		sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
		for _, to := range targets {
			e := &labeledEdge{from: nodes[from], to: nodes[to]}
			if cycleEdges[[2]int64{from, to}] {
				e.color = "red"
			}
			dg.SetEdge(e)
		}
	}
	return dg
}

// WriteCallTree writes the call tree to w in the dot format
func WriteCallTree(w io.Writer, ct *graphutil.CallTree, highlightCycles bool) error {
	b, err := dot.Marshal(CallTreeGraph(ct, highlightCycles), "calltree", "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode call tree: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("error while writing graph: %w", err)
	}
	return nil
}

// ToFile creates filename and writes the output of write in it
func ToFile(filename string, write func(w io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		return err
	}
	return w.Flush()
}

// WriteFunctionSSA writes the SSA form of f and of its anonymous functions to w
func WriteFunctionSSA(w io.Writer, f *ssa.Function) error {
	var b bytes.Buffer
	writeWithAnons(&b, f)
	_, err := w.Write(b.Bytes())
	return err
}

func writeWithAnons(b *bytes.Buffer, f *ssa.Function) {
	ssa.WriteFunction(b, f)
	for _, anon := range f.AnonFuncs {
		writeWithAnons(b, anon)
	}
}
