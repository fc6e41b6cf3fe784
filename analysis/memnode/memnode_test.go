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

package memnode_test

import (
	"path"
	"runtime"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/memnode"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

func loadAliasing(t *testing.T) (*ssa.Program, *config.Config, map[string]ssa.CallInstruction) {
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "../../testdata/src/parpot/aliasing")
	program, cfg := analysistest.LoadTest(t, dir, []string{})
	sites := analysistest.SitesOfProgram(t, program)
	for _, id := range []string{"fillA", "fillB", "sumA", "scale"} {
		if sites[id] == nil {
			t.Fatalf("no call site annotated with %s", id)
		}
	}
	return program, cfg, sites
}

func nodeOf(t *testing.T, p parpot.PointerAnalysis, site ssa.CallInstruction) parpot.MemoryNode {
	n, ok := p.MemoryNode(lang.GetArgs(site)[0])
	if !ok {
		t.Fatalf("no memory node for the argument of %s", site)
	}
	return n
}

func checkAliasing(t *testing.T, p parpot.PointerAnalysis, sites map[string]ssa.CallInstruction) {
	fillA := nodeOf(t, p, sites["fillA"])
	fillB := nodeOf(t, p, sites["fillB"])
	sumA := nodeOf(t, p, sites["sumA"])
	scale := nodeOf(t, p, sites["scale"])
	if !p.SameNode(fillA, sumA) {
		t.Errorf("the arguments of fill(a) and sum(a) should be the same memory: %s, %s", fillA, sumA)
	}
	if p.SameNode(fillA, fillB) {
		t.Errorf("a and b should be different memory: %s, %s", fillA, fillB)
	}
	if p.SameNode(fillA, scale) {
		t.Errorf("a and x should be different memory: %s, %s", fillA, scale)
	}
}

func TestBaseObjects(t *testing.T) {
	_, _, sites := loadAliasing(t)
	checkAliasing(t, memnode.BaseObjects{}, sites)
}

func TestAndersen(t *testing.T) {
	program, cfg, sites := loadAliasing(t)
	p, err := memnode.New(cfg, program)
	if err != nil {
		t.Fatalf("pointer analysis failed: %v", err)
	}
	if _, ok := p.(*memnode.Andersen); !ok {
		t.Fatalf("expected the andersen pointer analysis, got %T", p)
	}
	checkAliasing(t, p, sites)
}

func TestBaseObjectsNames(t *testing.T) {
	_, pkg := analysistest.BuildSSA(t, `package main

type S struct{ a, b int }

func set(p *int) { *p = 1 }

func main() {
	var s S
	set(&s.a)
	set(&s.b)
	println(s.a, s.b)
}
`)
	mainFn := pkg.Func("main")
	first := analysistest.CallTo(t, mainFn, "set", 0)
	second := analysistest.CallTo(t, mainFn, "set", 1)
	p := memnode.BaseObjects{}
	a := nodeOf(t, p, first)
	b := nodeOf(t, p, second)
	// fields of the same object are the same memory
	if !p.SameNode(a, b) {
		t.Errorf("fields of s should be in the node of s")
	}
	if a.String() != "s" {
		t.Errorf("expected the node to be named s, got %q", a.String())
	}
	if _, ok := p.MemoryNode(mainFn); ok {
		t.Errorf("functions are not memory")
	}
}

func TestNewUnknownAnalysis(t *testing.T) {
	cfg := config.NewDefault()
	cfg.PointerAnalysis = "steensgaard"
	if _, err := memnode.New(cfg, nil); err == nil {
		t.Errorf("expected an error for an unknown pointer analysis")
	}
	cfg.PointerAnalysis = config.BasePointerAnalysis
	if p, err := memnode.New(cfg, nil); err != nil || p != (memnode.BaseObjects{}) {
		t.Errorf("expected the base objects analysis, got %v, %v", p, err)
	}
}
