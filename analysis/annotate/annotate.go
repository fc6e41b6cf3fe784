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

// Package annotate writes copies of the analyzed source files where the call sites of the reported node sets are
// preceded by a comment describing the group they belong to.
package annotate

import (
	"bytes"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/dave/dst/dstutil"
)

// Annotation is a comment to insert before the statement at a line of a file
type Annotation struct {
	File string
	Line int
	Text string
}

// Annotations returns the annotations of the members of groups, indexed by the name of their file. Members
// whose position is unknown are not annotated. The groups must have been computed by parpot.Groups.
func Annotations(groups []parpot.GroupReport) map[string][]Annotation {
	res := map[string][]Annotation{}
	for _, g := range groups {
		if g.NodeSet == nil {
			continue
		}
		for i, m := range g.NodeSet.Members {
			pos := lang.InstrPosition(m.Site)
			if !pos.IsValid() {
				continue
			}
			var partners []string
			for j, other := range g.Members {
				if j != i {
					partners = append(partners, fmt.Sprintf("%s (line %d)", other.Callee, other.Line))
				}
			}
			text := fmt.Sprintf("// parpot #%d: %s may run in parallel with %s, saving %.3g%% of the run time",
				g.Rank, g.Members[i].Callee, strings.Join(partners, ", "), g.MaxPercent)
			if n := len(g.Dependencies); n > 0 {
				text += fmt.Sprintf(" (%d dependencies, cost %.3g)", n, g.Cost)
			}
			res[pos.Filename] = append(res[pos.Filename], Annotation{File: pos.Filename, Line: pos.Line, Text: text})
		}
	}
	return res
}

// File parses the source src of filename and returns it with the comments of annotations inserted before the
// innermost statement containing their line. Annotations of other files are ignored.
func File(filename string, src []byte, annotations []Annotation) ([]byte, error) {
	fset := token.NewFileSet()
	d := decorator.NewDecorator(fset)
	file, err := d.ParseFile(filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", filename, err)
	}

	byLine := map[int][]string{}
	for _, a := range annotations {
		if a.File == filename || a.File == "" {
			byLine[a.Line] = append(byLine[a.Line], a.Text)
		}
	}

	// the innermost statement of a block that spans each annotated line
	targets := map[int]dst.Stmt{}
	dstutil.Apply(file, func(c *dstutil.Cursor) bool {
		stmt, ok := c.Node().(dst.Stmt)
		if !ok || !inStatementList(c.Parent()) {
			return true
		}
		astNode := d.Ast.Nodes[stmt]
		if astNode == nil {
			return true
		}
		start, end := fset.Position(astNode.Pos()).Line, fset.Position(astNode.End()).Line
		for line := range byLine {
			if start <= line && line <= end {
				targets[line] = stmt
			}
		}
		return true
	}, nil)

	lines := make([]int, 0, len(targets))
	for line := range targets {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	for _, line := range lines {
		stmt := targets[line]
		if stmt.Decorations().Before == dst.None {
			stmt.Decorations().Before = dst.NewLine
		}
		stmt.Decorations().Start.Append(byLine[line]...)
	}

	var buf bytes.Buffer
	if err := decorator.NewRestorer().Fprint(&buf, file); err != nil {
		return nil, fmt.Errorf("could not print %s: %w", filename, err)
	}
	return buf.Bytes(), nil
}

func inStatementList(n dst.Node) bool {
	switch n.(type) {
	case *dst.BlockStmt, *dst.CaseClause, *dst.CommClause:
		return true
	}
	return false
}

// WriteAnnotated writes the annotated copies of the files of the members of groups in dir. A file a/b/c.go is
// written as dir/b/c.go. Returns the names of the written files.
func WriteAnnotated(dir string, groups []parpot.GroupReport) ([]string, error) {
	annotations := Annotations(groups)
	filenames := make([]string, 0, len(annotations))
	for filename := range annotations {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	var written []string
	for _, filename := range filenames {
		src, err := os.ReadFile(filename)
		if err != nil {
			return written, fmt.Errorf("could not read source: %w", err)
		}
		out, err := File(filename, src, annotations[filename])
		if err != nil {
			return written, err
		}
		target := filepath.Join(dir, filepath.Base(filepath.Dir(filename)), filepath.Base(filename))
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return written, fmt.Errorf("could not create directory %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, out, 0600); err != nil {
			return written, fmt.Errorf("could not write %s: %w", target, err)
		}
		written = append(written, target)
	}
	return written, nil
}
