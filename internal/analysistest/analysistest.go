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

// Package analysistest contains helpers to load the programs used in the tests of the analyses.
package analysistest

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis"
	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadTest loads the program in the directory dir, looking for a main.go and a config.yaml. If additional files
// are specified as extraFiles, the program will be loaded using those files too.
func LoadTest(t *testing.T, dir string, extraFiles []string) (*ssa.Program, *config.Config) {
	configFile := filepath.Join(dir, "config.yaml")
	config.SetGlobalConfig(configFile)
	files := []string{filepath.Join(dir, "./main.go")}
	for _, extraFile := range extraFiles {
		files = append(files, filepath.Join(dir, extraFile))
	}

	loaded, err := analysis.LoadProgram(nil, "", ssa.BuilderMode(0), files)
	if err != nil {
		t.Fatalf("error loading packages: %v", err)
	}
	cfg, err := config.LoadGlobal()
	if err != nil {
		t.Fatalf("error loading global config: %v", err)
	}
	return loaded.Program, cfg
}

// BuildSSA type-checks the source of a single file main package and builds its SSA form. The source can only
// import packages of the standard library. The file is named main.go.
func BuildSSA(t *testing.T, src string) (*ssa.Program, *ssa.Package) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("could not parse test source: %v", err)
	}
	pkg := types.NewPackage("main", "main")
	tc := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(tc, fset, pkg, []*ast.File{f}, ssa.SanityCheckFunctions)
	if err != nil {
		t.Fatalf("could not build test package: %v", err)
	}
	return ssaPkg.Prog, ssaPkg
}

// Func returns the function or method of pkg with the given short name (e.g. f, (*T).M, main$1). Anonymous
// functions are searched among the anonymous functions of the package members.
func Func(t *testing.T, pkg *ssa.Package, name string) *ssa.Function {
	for f := range ssautil.AllFunctions(pkg.Prog) {
		if f.Package() == pkg || (f.Parent() != nil && f.Parent().Package() == pkg) {
			if lang.ShortName(f) == name {
				return f
			}
		}
	}
	t.Fatalf("no function %s in package %s", name, pkg.Pkg.Path())
	return nil
}

// CallTo returns the n-th call instruction (starting at 0) in parent whose static callee has the short name callee
func CallTo(t *testing.T, parent *ssa.Function, callee string, n int) ssa.CallInstruction {
	i := 0
	for _, call := range lang.CallInstructions(parent) {
		if f := call.Common().StaticCallee(); f != nil && lang.ShortName(f) == callee {
			if i == n {
				return call
			}
			i++
		}
	}
	t.Fatalf("no call %d to %s in %s", n, callee, parent.Name())
	return nil
}

// SiteRegex matches annotations of the form "@Site(id)"
var SiteRegex = regexp.MustCompile(`//.*@Site\(\s*(\w+)\s*\)`)

// LPos is a position without column
type LPos struct {
	Filename string
	Line     int
}

func (p LPos) String() string {
	return fmt.Sprintf("%s:%d", p.Filename, p.Line)
}

// RemoveColumn returns the position without the column and with the base name of the file
func RemoveColumn(pos token.Position) LPos {
	return LPos{Line: pos.Line, Filename: filepath.Base(pos.Filename)}
}

// SiteAnnotations returns the positions of the "@Site(id)" annotations in the files of pkg, indexed by id
func SiteAnnotations(fset *token.FileSet, files []*ast.File) map[string]LPos {
	sites := map[string]LPos{}
	for _, f := range files {
		for _, c := range f.Comments {
			for _, c1 := range c.List {
				if a := SiteRegex.FindStringSubmatch(c1.Text); len(a) > 1 {
					sites[strings.TrimSpace(a[1])] = RemoveColumn(fset.Position(c1.Pos()))
				}
			}
		}
	}
	return sites
}

// SitesOfProgram parses the source files of the functions of prog and returns the call instructions that are on
// a line annotated with "@Site(id)", indexed by id. If several calls are on the same line, the first one in
// instruction order is returned.
func SitesOfProgram(t *testing.T, prog *ssa.Program) map[string]ssa.CallInstruction {
	files := map[string]bool{}
	for f := range ssautil.AllFunctions(prog) {
		if pos := lang.SafeFunctionPos(f).ValueOr(lang.DummyPos); pos.IsValid() {
			files[pos.Filename] = true
		}
	}
	fset := token.NewFileSet()
	var parsed []*ast.File
	for filename := range files {
		f, err := parser.ParseFile(fset, filename, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("could not parse %s: %v", filename, err)
		}
		parsed = append(parsed, f)
	}
	annotations := SiteAnnotations(fset, parsed)
	res := map[string]ssa.CallInstruction{}
	for f := range ssautil.AllFunctions(prog) {
		for _, call := range lang.CallInstructions(f) {
			pos := RemoveColumn(lang.InstrPosition(call))
			for id, annotated := range annotations {
				if _, found := res[id]; !found && annotated == pos {
					res[id] = call
				}
			}
		}
	}
	return res
}
