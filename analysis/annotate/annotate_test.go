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

package annotate_test

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis"
	"github.com/awslabs/ar-go-parpot/analysis/annotate"
	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/memnode"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/internal/analysistest"
)

const src = `package main

func f() int { return 1 }

func g() int { return 2 }

func main() {
	a := f()

	if a > 0 {
		println(g())
	}
}
`

func TestFile(t *testing.T) {
	out, err := annotate.File("main.go", []byte(src), []annotate.Annotation{
		{File: "main.go", Line: 8, Text: "// first"},
		{File: "main.go", Line: 11, Text: "// second"},
		{File: "other.go", Line: 8, Text: "// ignored"},
	})
	if err != nil {
		t.Fatalf("could not annotate: %v", err)
	}
	result := string(out)
	if !strings.Contains(result, "// first\n\ta := f()") {
		t.Errorf("expected the first annotation before the assignment:\n%s", result)
	}
	// the innermost statement of the line is annotated, not the if statement
	if !strings.Contains(result, "// second\n\t\tprintln(g())") {
		t.Errorf("expected the second annotation before the call in the branch:\n%s", result)
	}
	if strings.Contains(result, "ignored") {
		t.Errorf("annotations of other files should be ignored:\n%s", result)
	}
	// the blank line before the if statement is kept
	if !strings.Contains(result, "a := f()\n\n\tif a > 0") {
		t.Errorf("the layout should be preserved:\n%s", result)
	}
}

func TestFileInvalidSource(t *testing.T) {
	if _, err := annotate.File("main.go", []byte("package main\nfunc {"), nil); err == nil {
		t.Errorf("expected a parse error")
	}
}

func TestWriteAnnotated(t *testing.T) {
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "../../testdata/src/parpot/aliasing")
	program, cfg := analysistest.LoadTest(t, dir, []string{})
	logger := config.NewLogGroup(cfg)
	logger.SetAllOutput(io.Discard)
	state := parpot.NewAnalyzerState(program, cfg, logger, nil, memnode.BaseObjects{}, nil)
	res, err := state.Analyze(analysis.FindFunction(program, "main.main"))
	if err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	groups := parpot.Groups(res, parpot.ReportOptions{})
	if len(groups) == 0 {
		t.Fatalf("expected some groups")
	}

	outDir := t.TempDir()
	written, err := annotate.WriteAnnotated(outDir, groups)
	if err != nil {
		t.Fatalf("could not write annotated files: %v", err)
	}
	expected := filepath.Join(outDir, "aliasing", "main.go")
	if len(written) != 1 || written[0] != expected {
		t.Fatalf("expected %s to be written, got %v", expected, written)
	}
	b, err := os.ReadFile(expected)
	if err != nil {
		t.Fatalf("could not read annotated file: %v", err)
	}
	if !strings.Contains(string(b), "// parpot #1: ") {
		t.Errorf("expected the annotation of the first group:\n%s", b)
	}
	if !strings.Contains(string(b), "fill(a)") {
		t.Errorf("the code should be kept:\n%s", b)
	}
}
