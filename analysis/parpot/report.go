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

package parpot

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// Separator ends each group of the text report
var Separator = "  " + strings.Repeat("-", 64)

// ReportOptions select the node sets that are reported
type ReportOptions struct {
	// MinSavingPercent is the maximum saving, in percent of the total time, under which a set is not reported
	MinSavingPercent float64
	// MaxNodeSets is the maximum number of sets reported. If <= 0, there is no limit.
	MaxNodeSets int
}

// ReportOptionsFromConfig returns the report options set in the config
func ReportOptionsFromConfig(cfg *config.Config) ReportOptions {
	return ReportOptions{MinSavingPercent: cfg.MinSavingPercent, MaxNodeSets: cfg.MaxNodeSets}
}

// MemberReport is a call site of a reported group
type MemberReport struct {
	Callee string  `json:"callee"`
	File   string  `json:"file"`
	Line   int     `json:"line"`
	Time   float64 `json:"time"`
	Stores int     `json:"stores"`
}

// DependenceReport is a dependence between two call sites of a reported group, seen from its source
type DependenceReport struct {
	// Callee is the callee of the destination of the dependence
	Callee  string   `json:"callee"`
	Own     string   `json:"own"`
	Foreign string   `json:"foreign"`
	Kinds   []string `json:"kinds"`
}

// GroupReport is a node set as it is reported
type GroupReport struct {
	Rank           int                `json:"rank"`
	Parent         string             `json:"parent"`
	ParentFile     string             `json:"parentFile"`
	Members        []MemberReport     `json:"members"`
	Dependencies   []DependenceReport `json:"dependencies"`
	TrueDeps       int                `json:"trueDeps"`
	AntiDeps       int                `json:"antiDeps"`
	OutputDeps     int                `json:"outputDeps"`
	ControlDeps    int                `json:"controlDeps"`
	NoDominateDeps int                `json:"noDominateDeps"`
	Cost           float64            `json:"cost"`
	Score          float64            `json:"score"`
	MinSaving      float64            `json:"minSaving"`
	MaxSaving      float64            `json:"maxSaving"`
	MinPercent     float64            `json:"minPercent"`
	MaxPercent     float64            `json:"maxPercent"`
	Stores         int                `json:"stores"`

	NodeSet *NodeSet `json:"-"`
}

// JSONReport is the JSON document written by WriteJSON
type JSONReport struct {
	MainTime float64       `json:"maintime"`
	Root     string        `json:"root"`
	Groups   []GroupReport `json:"groups"`
}

// Groups returns the reports of the node sets of res that are kept by the options, in the order of res.NodeSets.
// The rank of a group is its position in res.NodeSets, starting at 1.
func Groups(res *Result, opts ReportOptions) []GroupReport {
	var groups []GroupReport
	for i, ns := range res.NodeSets {
		if opts.MaxNodeSets > 0 && len(groups) >= opts.MaxNodeSets {
			break
		}
		// without a total time there is no threshold
		if res.TotalTime > 0 && ns.MaxSaving < res.TotalTime*opts.MinSavingPercent/100 {
			continue
		}
		groups = append(groups, newGroupReport(i+1, ns, res))
	}
	return groups
}

func newGroupReport(rank int, ns *NodeSet, res *Result) GroupReport {
	parent := ns.Parent()
	gr := GroupReport{
		Rank:           rank,
		Parent:         FunctionDisplayName(parent),
		ParentFile:     lang.FunctionFile(parent),
		TrueDeps:       ns.TrueDeps,
		AntiDeps:       ns.AntiDeps,
		OutputDeps:     ns.OutputDeps,
		ControlDeps:    ns.ControlDeps,
		NoDominateDeps: ns.NoDominateDeps,
		Cost:           ns.Cost(res.Weights),
		Score:          ns.Score(res.Weights),
		MinSaving:      ns.MinSaving,
		MaxSaving:      ns.MaxSaving,
		MinPercent:     percent(ns.MinSaving, res.TotalTime),
		MaxPercent:     percent(ns.MaxSaving, res.TotalTime),
		Stores:         ns.Stores,
		NodeSet:        ns,
	}
	callees := map[ssa.CallInstruction]*ssa.Function{}
	for _, m := range ns.Members {
		callees[m.Site] = m.Callee
		pos := lang.InstrPosition(m.Site)
		mr := MemberReport{
			Callee: FunctionDisplayName(m.Callee),
			Line:   pos.Line,
			Time:   m.Time,
			Stores: CountStores(m.Callee),
		}
		if pos.IsValid() {
			mr.File = filepath.Base(pos.Filename)
		}
		gr.Members = append(gr.Members, mr)
	}
	for _, e := range ns.Edges {
		gr.Dependencies = append(gr.Dependencies, DependenceReport{
			Callee:  FunctionDisplayName(callees[e.To.Instr]),
			Own:     e.OwnObject,
			Foreign: e.ForeignObject,
			Kinds:   e.Kind.Names(),
		})
	}
	return gr
}

func percent(x, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return x / total * 100
}

// FunctionDisplayName returns the name of the function as it is written in its package: f, (*T).M, or main$1
func FunctionDisplayName(f *ssa.Function) string {
	if f == nil {
		return "?"
	}
	return lang.ShortName(f)
}

// WriteReport writes the text report of the groups of res kept by the options
func WriteReport(w io.Writer, res *Result, opts ReportOptions) error {
	var b strings.Builder
	fmt.Fprintf(&b, " maintime: %g\n", res.TotalTime)
	b.WriteString("Dependence Analysis Result:\n")
	for _, gr := range Groups(res, opts) {
		writeGroup(&b, gr)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteGroup writes the text report of one group
func WriteGroup(w io.Writer, gr GroupReport) error {
	var b strings.Builder
	writeGroup(&b, gr)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeGroup(b *strings.Builder, gr GroupReport) {
	fmt.Fprintf(b, "  Parent-function: %s (%s)\n", gr.Parent, gr.ParentFile)
	b.WriteString("  Functions: ( ")
	for _, m := range gr.Members {
		if m.Line > 0 {
			fmt.Fprintf(b, "%s(%s, %d) ", m.Callee, m.File, m.Line)
		} else {
			fmt.Fprintf(b, "%s ", m.Callee)
		}
	}
	minPercent := fmt.Sprintf("%.6g", gr.MinPercent)
	maxPercent := fmt.Sprintf("%.6g", gr.MaxPercent)
	if minPercent == maxPercent {
		fmt.Fprintf(b, ")     saving: [ %s %% ]\n", minPercent)
	} else {
		fmt.Fprintf(b, ")     saving: [%s %% - %s %% ]\n", minPercent, maxPercent)
	}
	for _, d := range gr.Dependencies {
		fmt.Fprintf(b, "    %s: %s -> %s - %s\n", d.Callee, d.Own, d.Foreign, strings.Join(d.Kinds, " "))
	}
	b.WriteString(Separator + "\n")
}

// WriteJSON writes the groups of res kept by the options as an indented JSON document
func WriteJSON(w io.Writer, res *Result, opts ReportOptions) error {
	report := JSONReport{
		MainTime: res.TotalTime,
		Root:     lang.RuntimeName(res.Root),
		Groups:   Groups(res, opts),
	}
	if report.Groups == nil {
		report.Groups = []GroupReport{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
