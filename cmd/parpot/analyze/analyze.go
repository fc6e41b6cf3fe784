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

// Package analyze implements the front-end of the parallelization potential analysis: it ranks the groups of call
// sites of a program that could run in parallel, prints them, and optionally exports them to a database and to
// annotated copies of the sources.
package analyze

import (
	"fmt"
	"io"
	"os"

	"github.com/awslabs/ar-go-parpot/analysis/annotate"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/analysis/resultdb"
	"github.com/awslabs/ar-go-parpot/cmd/parpot/tools"
	"github.com/awslabs/ar-go-parpot/internal/formatutil"
)

const usage = `Rank the groups of call sites that could run in parallel.
Usage:
  parpot analyze [options] <package path(s)>
Examples:
  % parpot analyze -config config.yaml main.go
  % parpot analyze -config config.yaml -json -sort time ./...
`

// Sort orders of the node sets
const (
	SortByScore  = "score"
	SortByTime   = "time"
	SortByStores = "stores"
)

// Flags represents the parsed analyze sub-command flags.
type Flags struct {
	tools.CommonFlags
	json   bool
	sortBy string
}

// NewFlags returns the parsed analyze sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("analyze")
	jsonOut := flags.FlagSet.Bool("json", false, "print the report as a JSON document")
	sortBy := flags.FlagSet.String("sort", SortByScore,
		"order of the groups. One of: score (dependencies and saving), time (saving only), stores (fewest stores first)")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse("analyze", args)
	if err != nil {
		return Flags{}, err
	}
	switch *sortBy {
	case SortByScore, SortByTime, SortByStores:
	default:
		return Flags{}, fmt.Errorf("sort order %q not recognized", *sortBy)
	}
	return Flags{CommonFlags: common, json: *jsonOut, sortBy: *sortBy}, nil
}

// Run runs the analysis with flags and prints the report on standard output, or in a file of the reports
// directory when the config sets one.
func Run(flags Flags) error {
	a, err := tools.LoadAnalysis(flags.CommonFlags)
	if err != nil {
		return err
	}
	var out io.Writer = os.Stdout
	if dir := a.Config.ReportsDir; dir != "" {
		ext := ".txt"
		if flags.json {
			ext = ".json"
		}
		f, err := os.CreateTemp(dir, "parpot-report-*"+ext)
		if err != nil {
			return fmt.Errorf("could not create report file: %w", err)
		}
		defer f.Close()
		a.Logger.Infof("Writing report in %s\n", f.Name())
		out = f
	}
	return run(a, flags, out)
}

func run(a *tools.Analysis, flags Flags, out io.Writer) error {
	res, err := a.Run()
	if err != nil {
		return err
	}
	SortResult(res, flags.sortBy)
	opts := parpot.ReportOptionsFromConfig(a.Config)

	if flags.json {
		err = parpot.WriteJSON(out, res, opts)
	} else {
		err = parpot.WriteReport(out, res, opts)
	}
	if err != nil {
		return fmt.Errorf("could not write report: %w", err)
	}

	if path := a.Config.RelPath(a.Config.Database); path != "" {
		runID, err := resultdb.Export(path, res, opts)
		if err != nil {
			return err
		}
		a.Logger.Infof(formatutil.Faint(fmt.Sprintf("Exported run %d to %s", runID, path)) + "\n")
	}

	if dir := a.Config.RelPath(a.Config.AnnotateDir); dir != "" {
		written, err := annotate.WriteAnnotated(dir, parpot.Groups(res, opts))
		if err != nil {
			return fmt.Errorf("could not annotate sources: %w", err)
		}
		for _, file := range written {
			a.Logger.Infof("Annotated %s\n", file)
		}
	}
	return nil
}

// SortResult sorts the node sets of res in the order named by sortBy. The score order is the order of the
// analysis.
func SortResult(res *parpot.Result, sortBy string) {
	switch sortBy {
	case SortByTime:
		parpot.SortNodeSetsBy(res.NodeSets, func(ns *parpot.NodeSet) float64 { return ns.MaxSaving })
	case SortByStores:
		parpot.SortNodeSetsBy(res.NodeSets, func(ns *parpot.NodeSet) float64 { return -float64(ns.Stores) })
	default:
		parpot.SortNodeSets(res.NodeSets, res.Weights)
	}
}
