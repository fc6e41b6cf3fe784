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
	"math"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

const aliasSrc = `package main

func f(p *int) { *p = 1 }

func g(p *int) int { return *p }

func main() {
	x := 0
	f(&x)
	println(g(&x))
}
`

func TestPointerArgumentTrueDependence(t *testing.T) {
	profile := fakeProfile{times: map[string]float64{"f": 10, "g": 5}, total: 100}
	res, _, pkg := analyzeMain(t, aliasSrc, profile, nil)
	mainFn := pkg.Func("main")
	edges := edgesOf(t, res, mainFn)
	if len(edges) != 1 {
		t.Fatalf("expected exactly one dependence, got %v", edges)
	}
	e := edges[0]
	if e.Kind != parpot.TrueDependence {
		t.Errorf("expected a true dependence, got %s", e.Kind)
	}
	if e.From.Instr != analysistest.CallTo(t, mainFn, "f", 0) || e.To.Instr != analysistest.CallTo(t, mainFn, "g", 0) {
		t.Errorf("expected the dependence to go from f to g, got %s", e)
	}
	if e.OwnObject != "x" || e.ForeignObject != "x" {
		t.Errorf("expected the dependence to be about x, got %q -> %q", e.OwnObject, e.ForeignObject)
	}
	if len(res.NodeSets) != 1 {
		t.Fatalf("expected one node set, got %d", len(res.NodeSets))
	}
	ns := res.NodeSets[0]
	w := config.DefaultWeights()
	if cost := ns.Cost(w); cost != 2 {
		t.Errorf("expected a cost of 2, got %g", cost)
	}
	if ns.MaxSaving != 5 || ns.MinSaving != 5 {
		t.Errorf("expected savings of 5, got %g - %g", ns.MinSaving, ns.MaxSaving)
	}
	if got, want := ns.Score(w), math.Exp(-0.2)*5; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected a score of %g, got %g", want, got)
	}
}

const closureAliasSrc = `package main

func f(p *int) {
	func() { *p = 1 }()
}

func g(p *int) int { return *p }

func main() {
	x := 0
	f(&x)
	println(g(&x))
}
`

func TestClosureWriteTrueDependence(t *testing.T) {
	res, state, pkg := analyzeMain(t, closureAliasSrc, nil, nil)
	if got := state.ArgumentEffect(pkg.Func("f"), 0); got != parpot.Mod {
		t.Errorf("expected f to write through its argument, got %s", got)
	}
	mainFn := pkg.Func("main")
	edges := edgesOf(t, res, mainFn)
	if len(edges) != 1 {
		t.Fatalf("expected exactly one dependence, got %v", edges)
	}
	if edges[0].Kind != parpot.TrueDependence {
		t.Errorf("expected a true dependence, got %s", edges[0].Kind)
	}
	if edges[0].From.Instr != analysistest.CallTo(t, mainFn, "f", 0) {
		t.Errorf("expected the dependence to start at f, got %s", edges[0])
	}
}

const reversedAliasSrc = `package main

func f(p *int) { *p = 1 }

func g(p *int) int { return *p }

func main() {
	x := 0
	println(g(&x))
	f(&x)
}
`

func TestPointerArgumentAntiDependence(t *testing.T) {
	res, _, pkg := analyzeMain(t, reversedAliasSrc, nil, nil)
	edges := edgesOf(t, res, pkg.Func("main"))
	if len(edges) != 1 {
		t.Fatalf("expected exactly one dependence, got %v", edges)
	}
	if edges[0].Kind != parpot.AntiDependence {
		t.Errorf("expected an anti dependence, got %s", edges[0].Kind)
	}
	if callee := edges[0].From.Instr.Common().StaticCallee(); callee == nil || callee.Name() != "g" {
		t.Errorf("expected the dependence to start at the first call, got %s", edges[0])
	}
}

const outputSrc = `package main

func f(p *int) { *p = 1 }

func main() {
	x := 0
	f(&x)
	f(&x)
	println(x)
}
`

func TestPointerArgumentOutputDependence(t *testing.T) {
	res, _, pkg := analyzeMain(t, outputSrc, nil, nil)
	edges := edgesOf(t, res, pkg.Func("main"))
	if len(edges) != 1 || edges[0].Kind != parpot.OutputDependence {
		t.Fatalf("expected exactly one output dependence, got %v", edges)
	}
}

const resultSrc = `package main

func f() int { return 1 }

func g(x int) {}

func main() {
	g(f())
}
`

func TestResultControlDependence(t *testing.T) {
	res, _, pkg := analyzeMain(t, resultSrc, nil, nil)
	mainFn := pkg.Func("main")
	edges := edgesOf(t, res, mainFn)
	if len(edges) != 1 {
		t.Fatalf("expected exactly one dependence, got %v", edges)
	}
	e := edges[0]
	if e.Kind != parpot.ControlDependence {
		t.Errorf("expected a control dependence, got %s", e.Kind)
	}
	if e.From.Instr != analysistest.CallTo(t, mainFn, "f", 0) {
		t.Errorf("expected the dependence to start at f, got %s", e)
	}
	if e.OwnObject != "" || e.ForeignObject != "" {
		t.Errorf("a dependence through a result has no object, got %q -> %q", e.OwnObject, e.ForeignObject)
	}
}

const branchSrc = `package main

var ready bool

func setup() { ready = true }

func produce(p *int) { *p = 3 }

func work() {}

func consume() {}

func main() {
	x := 0
	produce(&x)
	if x > 0 {
		consume()
	}
	setup()
	if ready {
		work()
	}
}
`

func TestBranchControlDependence(t *testing.T) {
	res, _, pkg := analyzeMain(t, branchSrc, nil, nil)
	mainFn := pkg.Func("main")
	setup := analysistest.CallTo(t, mainFn, "setup", 0)
	work := analysistest.CallTo(t, mainFn, "work", 0)
	produce := analysistest.CallTo(t, mainFn, "produce", 0)
	consume := analysistest.CallTo(t, mainFn, "consume", 0)
	g := res.Graphs[mainFn]

	byGlobal := g.EdgesBetween(setup, work)
	if len(byGlobal) != 1 || byGlobal[0].Kind != parpot.ControlDependence || byGlobal[0].OwnObject != "ready" {
		t.Errorf("expected a control dependence on ready from setup to work, got %v", byGlobal)
	}
	byArg := g.EdgesBetween(produce, consume)
	if len(byArg) != 1 || byArg[0].Kind != parpot.ControlDependence || byArg[0].OwnObject != "x" {
		t.Errorf("expected a control dependence on x from produce to consume, got %v", byArg)
	}
	if len(byArg) == 1 && byArg[0].ForeignObject != "" {
		t.Errorf("a control dependence has no foreign object, got %q", byArg[0].ForeignObject)
	}
	if edges := append(g.EdgesBetween(setup, consume), g.EdgesBetween(consume, setup)...); len(edges) != 0 {
		t.Errorf("expected no dependence between setup and consume, got %v", edges)
	}
}

func TestReaches(t *testing.T) {
	state, pkg := newState(t, branchSrc, nil, nil)
	mainFn := pkg.Func("main")
	work := analysistest.CallTo(t, mainFn, "work", 0)
	consume := analysistest.CallTo(t, mainFn, "consume", 0)
	ready := pkg.Var("ready")
	if !state.Reaches(ready, work, false) {
		t.Errorf("ready should reach work through the branch")
	}
	if state.Reaches(ready, consume, false) {
		t.Errorf("ready should not reach consume")
	}
	if state.Reaches(nil, work, false) {
		t.Errorf("nil reaches nothing")
	}
}

const globalsSrc = `package main

var counter int

var limit = 10

func inc() { counter++ }

func read() int { return counter }

func check() bool { return limit > 0 }

func main() {
	inc()
	println(read())
	inc()
	println(check())
}
`

func TestGlobalDependencies(t *testing.T) {
	res, state, pkg := analyzeMain(t, globalsSrc, nil, nil)
	mainFn := pkg.Func("main")
	inc0 := analysistest.CallTo(t, mainFn, "inc", 0)
	inc1 := analysistest.CallTo(t, mainFn, "inc", 1)
	read := analysistest.CallTo(t, mainFn, "read", 0)
	check := analysistest.CallTo(t, mainFn, "check", 0)
	g := res.Graphs[mainFn]

	for _, test := range []struct {
		from, to ssa.CallInstruction
		edges    []*parpot.Edge
		want     parpot.DependenceKind
	}{
		{inc0, read, g.EdgesBetween(inc0, read), parpot.TrueDependence},
		{read, inc1, g.EdgesBetween(read, inc1), parpot.AntiDependence},
		{inc0, inc1, g.EdgesBetween(inc0, inc1), parpot.OutputDependence},
	} {
		if len(test.edges) != 1 {
			t.Errorf("expected one dependence from %s to %s, got %v", test.from, test.to, test.edges)
			continue
		}
		e := test.edges[0]
		if e.Kind != test.want || e.OwnObject != "G:counter" || e.ForeignObject != "G:counter" {
			t.Errorf("expected %s on G:counter, got %s", test.want, e)
		}
	}
	for _, e := range g.Edges() {
		if e.From.Instr == check || e.To.Instr == check {
			t.Errorf("check only reads limit, unexpected dependence %s", e)
		}
	}

	accesses := state.GlobalAccesses(pkg.Func("main"))
	if accesses[pkg.Var("counter")] != parpot.Change || accesses[pkg.Var("limit")] != parpot.Read {
		t.Errorf("wrong global accesses of main: %v", accesses)
	}
}

func TestDominatorAnalyzer(t *testing.T) {
	src := `package main

func f() {}

func g() {}

func h() {}

func pre() {}

func cond() bool { return len("x") > 0 }

func main() {
	pre()
	if cond() {
		f()
	} else {
		g()
	}
	h()
}
`
	cfg := config.NewDefault()
	cfg.DominatorAnalysis = true
	res, _, pkg := analyzeMain(t, src, nil, cfg)
	mainFn := pkg.Func("main")
	f := analysistest.CallTo(t, mainFn, "f", 0)
	g := analysistest.CallTo(t, mainFn, "g", 0)
	h := analysistest.CallTo(t, mainFn, "h", 0)
	pre := analysistest.CallTo(t, mainFn, "pre", 0)
	graph := res.Graphs[mainFn]
	if edges := graph.EdgesBetween(f, g); len(edges) != 1 || edges[0].Kind != parpot.NoDominateDependence {
		t.Errorf("expected a no dominator dependence between f and g, got %v", edges)
	}
	if edges := graph.EdgesBetween(f, h); len(edges) != 1 || edges[0].Kind != parpot.NoDominateDependence {
		t.Errorf("expected a no dominator dependence between f and h, got %v", edges)
	}
	if edges := graph.EdgesBetween(pre, h); len(edges) != 0 {
		t.Errorf("expected no dependence between pre and h, got %v", edges)
	}
}

func TestAnalyzersPanicOnMisuse(t *testing.T) {
	cfg := config.NewDefault()
	cfg.DominatorAnalysis = true
	state, pkg := newState(t, threeCallsSrc, nil, cfg)
	mainFn := pkg.Func("main")
	f := analysistest.CallTo(t, mainFn, "f", 0)
	g := analysistest.CallTo(t, mainFn, "g", 0)

	for _, analyzer := range state.Analyzers() {
		analyzer := analyzer
		t.Run(analyzer.Name()+"/nil", func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected a panic on a nil instruction")
				}
			}()
			analyzer.Analyze(mainFn, f, nil)
		})
		t.Run(analyzer.Name()+"/other-function", func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected a panic on instructions of another function")
				}
			}()
			analyzer.Analyze(pkg.Func("f"), f, g)
		})
	}

	// the dominator analyzer does not create graphs
	var dominator parpot.Analyzer
	for _, analyzer := range state.Analyzers() {
		if analyzer.Name() == "dominator" {
			dominator = analyzer
		}
	}
	if dominator == nil {
		t.Fatalf("dominator analyzer should be enabled")
	}
	defer func() {
		if recover() == nil {
			t.Errorf("expected a panic when the function has no graph")
		}
	}()
	dominator.Analyze(mainFn, f, g)
}
