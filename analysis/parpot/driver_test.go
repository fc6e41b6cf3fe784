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
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
)

const independentSrc = `package main

func f() int {
	s := 0
	for i := 0; i < 10; i++ {
		s += i
	}
	return s
}

func g() int { return 2 }

func main() {
	f()
	g()
}
`

func TestIndependentCalls(t *testing.T) {
	profile := fakeProfile{times: map[string]float64{"f": 10, "g": 5}, total: 100}
	res, _, pkg := analyzeMain(t, independentSrc, profile, nil)
	if len(res.NodeSets) != 1 {
		t.Fatalf("expected one node set, got %d", len(res.NodeSets))
	}
	ns := res.NodeSets[0]
	if ns.Parent() != pkg.Func("main") {
		t.Errorf("the node set should be in main, got %s", ns.Parent())
	}
	if len(ns.Edges) != 0 {
		t.Errorf("expected no dependence, got %v", ns.Edges)
	}
	if ns.Cost(res.Weights) != 0 || ns.MinSaving != 5 || ns.MaxSaving != 5 || ns.Score(res.Weights) != 5 {
		t.Errorf("expected cost 0, savings 5 and score 5, got %g, [%g, %g], %g", ns.Cost(res.Weights),
			ns.MinSaving, ns.MaxSaving, ns.Score(res.Weights))
	}
	if res.TotalTime != 100 {
		t.Errorf("expected total time 100, got %g", res.TotalTime)
	}
	if ns.Stores != parpot.CountStores(pkg.Func("f"))+parpot.CountStores(pkg.Func("g")) {
		t.Errorf("wrong number of stores %d", ns.Stores)
	}
	if len(res.Recursive) != 0 {
		t.Errorf("expected no recursion, got %v", res.Recursive)
	}
	if len(res.Graphs) != 3 {
		t.Errorf("expected graphs for main, f and g, got %d", len(res.Graphs))
	}
}

const indirectSrc = `package main

func f() {}

func g() {}

func run(h func()) {
	h()
	f()
	g()
}

func main() {
	run(f)
}
`

func TestUnresolvedCallHasNoNode(t *testing.T) {
	res, _, pkg := analyzeMain(t, indirectSrc, nil, nil)
	run := pkg.Func("run")
	graph, ok := res.Graphs[run]
	if !ok {
		t.Fatalf("run should have been analyzed")
	}
	if len(graph.Nodes()) != 2 {
		t.Errorf("expected nodes for f and g only, got %v", graph.Nodes())
	}
	for _, call := range lang.CallInstructions(run) {
		if call.Common().StaticCallee() == nil {
			if _, ok := graph.Node(call, false); ok {
				t.Errorf("the call through h should have no node")
			}
		}
	}
	if len(res.NodeSets) != 1 {
		t.Errorf("expected only the set of f and g, got %d sets", len(res.NodeSets))
	}
}

func TestProfileResolvesIndirectCall(t *testing.T) {
	profile := fakeProfile{
		times:    map[string]float64{"f": 3, "g": 2},
		concrete: map[string]string{"run": "main.f"},
	}
	res, state, pkg := analyzeMain(t, indirectSrc, profile, nil)
	run := pkg.Func("run")
	var indirect *parpot.Node
	for _, call := range lang.CallInstructions(run) {
		if call.Common().StaticCallee() == nil {
			if state.Resolver.ResolveCallee(call) != pkg.Func("f") {
				t.Fatalf("the call through h should resolve to f")
			}
			indirect, _ = res.Graphs[run].Node(call, false)
		}
	}
	if indirect == nil {
		t.Fatalf("the call through h should have a node")
	}
	if len(res.NodeSets) != 3 {
		t.Errorf("expected 3 sets in run, got %d", len(res.NodeSets))
	}
}

const recursiveSrc = `package main

var counter int

func rec(n int) int {
	counter++
	if n == 0 {
		return 0
	}
	return rec(n-1) + helper()
}

func helper() int { return counter }

func ping(n int) {
	if n > 0 {
		pong(n - 1)
	}
}

func pong(n int) { ping(n) }

func main() {
	rec(3)
	helper()
	ping(2)
}
`

func TestRecursionTerminates(t *testing.T) {
	res, _, pkg := analyzeMain(t, recursiveSrc, nil, nil)
	mainFn := pkg.Func("main")
	recCall := analysistest.CallTo(t, mainFn, "rec", 0)
	helperCall := analysistest.CallTo(t, mainFn, "helper", 0)
	edges := res.Graphs[mainFn].EdgesBetween(recCall, helperCall)
	if len(edges) != 1 || edges[0].Kind != parpot.TrueDependence || edges[0].OwnObject != "G:counter" {
		t.Errorf("expected a true dependence on counter from rec to helper, got %v", edges)
	}

	rec := pkg.Func("rec")
	inner := res.Graphs[rec].EdgesBetween(analysistest.CallTo(t, rec, "rec", 0),
		analysistest.CallTo(t, rec, "helper", 0))
	if len(inner) != 1 || inner[0].Kind != parpot.TrueDependence {
		t.Errorf("expected a true dependence from the recursive call to helper, got %v", inner)
	}

	if len(res.Recursive) != 2 {
		t.Fatalf("expected two recursive groups, got %v", res.Recursive)
	}
	sizes := map[int]bool{}
	for _, group := range res.Recursive {
		sizes[len(group)] = true
	}
	if !sizes[1] || !sizes[2] {
		t.Errorf("expected the groups {rec} and {ping, pong}, got %v", res.Recursive)
	}

	// each function appears once in the call tree
	seen := map[string]bool{}
	for _, f := range res.CallTree.Functions() {
		if seen[f.Name()] {
			t.Errorf("%s visited twice", f.Name())
		}
		seen[f.Name()] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 functions in the call tree, got %v", seen)
	}
}

func TestAnalyzeRejectsMissingRoot(t *testing.T) {
	state, _ := newState(t, independentSrc, nil, nil)
	if _, err := state.Analyze(nil); err == nil {
		t.Errorf("expected an error without root")
	}
}
