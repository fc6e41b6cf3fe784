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

// Package render implements a tool for rendering the results of the analysis as Graphviz dot graphs.
// -function Given the runtime name of a function, renders its dependence graph. Without it, the call tree of the
// analysis is rendered.
// -o Given a path for a .dot file, writes the graph in that file instead of the standard output.
// -ssa Prints the SSA form of the function instead of its dependence graph.
package render

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-go-parpot/analysis"
	renderer "github.com/awslabs/ar-go-parpot/analysis/render"
	"github.com/awslabs/ar-go-parpot/cmd/parpot/tools"
	"github.com/awslabs/ar-go-parpot/internal/formatutil"
)

const usage = `Render the dependence graphs or the call tree of the parallelization potential analysis.
Usage:
  parpot render [options] <package path(s)>
Examples:
Render the call tree, with the recursive functions in red
  % parpot render -config config.yaml -cycles -o calltree.dot package...
Render the dependence graph of the call sites of main
  % parpot render -config config.yaml -function main.main -o main.dot package...
`

// Flags represents the parsed render sub-command flags.
type Flags struct {
	tools.CommonFlags
	function string
	out      string
	cycles   bool
	ssa      bool
}

// NewFlags returns the parsed render sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("render")
	function := flags.FlagSet.String("function", "",
		"runtime name of the function whose dependence graph is rendered (call tree if not specified)")
	out := flags.FlagSet.String("o", "", "output file (standard output if not specified)")
	cycles := flags.FlagSet.Bool("cycles", false, "highlight the recursive cycles of the call tree")
	ssaOut := flags.FlagSet.Bool("ssa", false, "print the SSA form of the function instead of its dependence graph")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse("render", args)
	if err != nil {
		return Flags{}, err
	}
	if *ssaOut && *function == "" {
		return Flags{}, fmt.Errorf("-ssa requires a -function")
	}
	return Flags{
		CommonFlags: common,
		function:    *function,
		out:         *out,
		cycles:      *cycles,
		ssa:         *ssaOut,
	}, nil
}

// Run runs the render tool with flags.
func Run(flags Flags) error {
	a, err := tools.LoadAnalysis(flags.CommonFlags)
	if err != nil {
		return err
	}
	write, err := writer(a, flags)
	if err != nil {
		return err
	}
	if flags.out == "" {
		return write(os.Stdout)
	}
	fmt.Fprintf(os.Stderr, formatutil.Faint("Writing graph in "+flags.out)+"\n")
	return renderer.ToFile(flags.out, write)
}

// writer runs the analysis and returns the function writing the output selected by the flags
func writer(a *tools.Analysis, flags Flags) (func(io.Writer) error, error) {
	res, err := a.Run()
	if err != nil {
		return nil, err
	}
	if flags.function == "" {
		return func(w io.Writer) error {
			return renderer.WriteCallTree(w, res.CallTree, flags.cycles)
		}, nil
	}

	f := analysis.FindFunction(a.Program, flags.function)
	if f == nil {
		return nil, fmt.Errorf("could not find function %s in the program", flags.function)
	}
	if flags.ssa {
		return func(w io.Writer) error { return renderer.WriteFunctionSSA(w, f) }, nil
	}
	g, ok := res.Graphs[f]
	if !ok {
		return nil, fmt.Errorf("function %s is not reachable from %s in the analysis", flags.function, a.Config.Entry)
	}
	return func(w io.Writer) error {
		return renderer.WriteDependenceGraph(w, g, a.State.Resolver)
	}, nil
}
