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

package resultdb_test

import (
	"io"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/memnode"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/analysis/resultdb"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
	"golang.org/x/tools/go/ssa"
)

const src = `package main

var total int

func f(p *int) { *p = 1 }

func g(p *int) int { return *p + total }

func h() { total++ }

func main() {
	x := 0
	f(&x)
	println(g(&x))
	h()
}
`

type timesByCallee map[string]float64

func (p timesByCallee) ExecutionTime(site ssa.CallInstruction) float64 {
	if f := site.Common().StaticCallee(); f != nil {
		return p[f.Name()]
	}
	return 0
}

func (p timesByCallee) TotalTime() float64 { return 100 }

func (p timesByCallee) ConcreteCallee(ssa.CallInstruction) (string, bool) { return "", false }

func analyze(t *testing.T) *parpot.Result {
	prog, pkg := analysistest.BuildSSA(t, src)
	cfg := config.NewDefault()
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	profile := timesByCallee{"f": 10, "g": 5, "h": 20}
	state := parpot.NewAnalyzerState(prog, cfg, logger, nil, memnode.BaseObjects{}, profile)
	res, err := state.Analyze(pkg.Func("main"))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	return res
}

func TestWriteAndReadRun(t *testing.T) {
	res := analyze(t)
	groups := parpot.Groups(res, parpot.ReportOptions{})
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}

	db, err := resultdb.Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	defer db.Close()

	first, err := db.WriteRun("main.main", res.TotalTime, groups)
	if err != nil {
		t.Fatalf("could not write run: %v", err)
	}
	second, err := db.WriteRun("main.main", res.TotalTime, groups[:1])
	if err != nil {
		t.Fatalf("could not write run: %v", err)
	}
	if first == second {
		t.Fatalf("runs should have different ids")
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("could not read runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second || runs[1].Root != "main.main" || runs[1].MainTime != 100 {
		t.Errorf("unexpected runs %+v", runs)
	}

	read, err := db.NodeSets(first)
	if err != nil {
		t.Fatalf("could not read node sets: %v", err)
	}
	if len(read) != len(groups) {
		t.Fatalf("expected %d node sets, got %d", len(groups), len(read))
	}
	for i := range groups {
		expected := groups[i]
		expected.NodeSet = nil
		if !reflect.DeepEqual(expected, read[i]) {
			t.Errorf("node set %d differs:\n%+v\n%+v", i, expected, read[i])
		}
	}

	only, err := db.NodeSets(second)
	if err != nil || len(only) != 1 || only[0].Rank != 1 {
		t.Errorf("expected only the first node set in the second run, got %+v, %v", only, err)
	}
}

func TestExport(t *testing.T) {
	res := analyze(t)
	path := filepath.Join(t.TempDir(), "results.db")
	id, err := resultdb.Export(path, res, parpot.ReportOptions{MinSavingPercent: 6})
	if err != nil {
		t.Fatalf("could not export: %v", err)
	}
	db, err := resultdb.Open(path)
	if err != nil {
		t.Fatalf("could not reopen database: %v", err)
	}
	defer db.Close()
	read, err := db.NodeSets(id)
	if err != nil {
		t.Fatalf("could not read node sets: %v", err)
	}
	// only the pair of f and h saves more than 6% of the time
	if len(read) != 1 || read[0].MaxPercent != 10 {
		t.Errorf("unexpected node sets %+v", read)
	}
}
