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

package analyze

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/analysis/resultdb"
	"github.com/awslabs/ar-go-parpot/cmd/parpot/tools"
)

func pipelineArgs(extra ...string) []string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(filename), "..", "..", "..", "testdata", "src", "parpot", "pipeline")
	args := append([]string{"-config", filepath.Join(dir, "config.yaml")}, extra...)
	return append(args, filepath.Join(dir, "main.go"))
}

func loadPipeline(t *testing.T, extra ...string) (*tools.Analysis, Flags) {
	flags, err := NewFlags(pipelineArgs(extra...))
	if err != nil {
		t.Fatalf("could not parse flags: %v", err)
	}
	a, err := tools.LoadAnalysis(flags.CommonFlags)
	if err != nil {
		t.Fatalf("could not load analysis: %v", err)
	}
	a.Logger.SetAllOutput(io.Discard)
	return a, flags
}

func TestNewFlagsRejectsSortOrder(t *testing.T) {
	if _, err := NewFlags([]string{"-sort", "alphabetical", "main.go"}); err == nil {
		t.Fatalf("expected an error for an unknown sort order")
	}
}

func TestRunTextReport(t *testing.T) {
	a, flags := loadPipeline(t)
	var out bytes.Buffer
	if err := run(a, flags, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	report := out.String()
	for _, expected := range []string{
		" maintime: 100\n",
		"Parent-function: main (main.go)",
		"( load(main.go, 26) load(main.go, 27) )     saving: [ 20 % ]",
	} {
		if !strings.Contains(report, expected) {
			t.Errorf("report does not contain %q:\n%s", expected, report)
		}
	}
}

func TestRunJSONExportAndAnnotate(t *testing.T) {
	a, flags := loadPipeline(t, "-json")
	tmp := t.TempDir()
	a.Config.Database = filepath.Join(tmp, "runs.db")
	a.Config.AnnotateDir = filepath.Join(tmp, "annotated")

	var out bytes.Buffer
	if err := run(a, flags, &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	var report parpot.JSONReport
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("could not decode report: %v", err)
	}
	if report.Root != "main.main" || len(report.Groups) == 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Groups[0].MaxPercent != 20 {
		t.Errorf("expected the top group to save 20%%, got %g", report.Groups[0].MaxPercent)
	}

	db, err := resultdb.Open(a.Config.Database)
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}
	defer db.Close()
	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("could not read runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Root != "main.main" {
		t.Fatalf("expected one run of main.main, got %+v", runs)
	}
	groups, err := db.NodeSets(runs[0].ID)
	if err != nil {
		t.Fatalf("could not read node sets: %v", err)
	}
	if len(groups) != len(report.Groups) {
		t.Errorf("expected %d exported groups, got %d", len(report.Groups), len(groups))
	}

	annotated, err := os.ReadFile(filepath.Join(a.Config.AnnotateDir, "pipeline", "main.go"))
	if err != nil {
		t.Fatalf("could not read annotated source: %v", err)
	}
	if !strings.Contains(string(annotated), "// parpot #1: ") {
		t.Errorf("annotated source has no annotation of the top group:\n%s", annotated)
	}
}

func TestSortResult(t *testing.T) {
	a, _ := loadPipeline(t)
	res, err := a.Run()
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}

	SortResult(res, SortByStores)
	for i := 1; i < len(res.NodeSets); i++ {
		if res.NodeSets[i-1].Stores > res.NodeSets[i].Stores {
			t.Fatalf("sets not sorted by stores at %d", i)
		}
	}

	SortResult(res, SortByTime)
	for i := 1; i < len(res.NodeSets); i++ {
		if res.NodeSets[i-1].MaxSaving < res.NodeSets[i].MaxSaving {
			t.Fatalf("sets not sorted by time at %d", i)
		}
	}

	SortResult(res, SortByScore)
	for i := 1; i < len(res.NodeSets); i++ {
		if res.NodeSets[i-1].Score(res.Weights) < res.NodeSets[i].Score(res.Weights) {
			t.Fatalf("sets not sorted by score at %d", i)
		}
	}
}
