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
	"fmt"
	"time"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/internal/funcutil"
	"github.com/awslabs/ar-go-parpot/internal/graphutil"
	"golang.org/x/tools/go/ssa"
)

// Result is the result of the analysis of a program from a root function
type Result struct {
	Root *ssa.Function

	// TotalTime is the execution time of the program according to the profile
	TotalTime float64

	// NodeSets are all the node sets of the analyzed functions, sorted by decreasing score
	NodeSets []*NodeSet

	// Graphs are the dependence graphs of the analyzed functions
	Graphs map[*ssa.Function]*Graph

	// CallTree is the graph of the analyzed functions
	CallTree *graphutil.CallTree

	// Recursive are the groups of mutually recursive functions of the call tree
	Recursive [][]*ssa.Function

	// Weights are the weights the node sets have been scored with
	Weights config.Weights
}

// CallTree returns the call tree of the functions analyzed from root: the functions reachable from root through
// resolved call sites whose package matches the package filter.
func (s *AnalyzerState) CallTree(root *ssa.Function) *graphutil.CallTree {
	return graphutil.NewCallTree(root, s.Callees)
}

// BuildDependenceGraphs builds the dependence graph of every function of the call tree of root, callees before
// callers. Every analyzer runs on every pair of candidate sites of each function.
func (s *AnalyzerState) BuildDependenceGraphs(root *ssa.Function) *graphutil.CallTree {
	ct := s.CallTree(root)
	for _, f := range ct.Functions() {
		s.buildGraph(f)
	}
	return ct
}

func (s *AnalyzerState) buildGraph(f *ssa.Function) {
	g := s.Graph(f)
	sites := s.CandidateSites(f)
	for _, site := range sites {
		g.Node(site, true)
	}
	for i := range sites {
		for j := i + 1; j < len(sites); j++ {
			for _, analyzer := range s.analyzers {
				analyzer.Analyze(f, sites[i], sites[j])
			}
		}
	}
	s.Logger.Tracef("dependence graph of %s: %d nodes, %d edges\n", f, len(g.Nodes()), len(g.Edges()))
}

// CollectNodeSets returns a node set for every pair of candidate sites of every function of the call tree. The
// dependence graphs must have been built.
func (s *AnalyzerState) CollectNodeSets(ct *graphutil.CallTree) []*NodeSet {
	var sets []*NodeSet
	for _, f := range ct.Functions() {
		g := s.Graph(f)
		sites := s.CandidateSites(f)
		members := funcutil.Map(sites, func(site ssa.CallInstruction) Member {
			return Member{
				Site:   site,
				Callee: s.Resolver.ResolveCallee(site),
				Time:   s.Profile.ExecutionTime(site),
			}
		})
		for i := range members {
			for j := i + 1; j < len(members); j++ {
				ns := NewNodeSet(g, []Member{members[i], members[j]})
				ns.Stores = CountStores(members[i].Callee) + CountStores(members[j].Callee)
				sets = append(sets, ns)
			}
		}
	}
	return sets
}

// Analyze builds the dependence graphs of the functions reachable from root, collects their node sets and sorts
// them by decreasing score.
func (s *AnalyzerState) Analyze(root *ssa.Function) (*Result, error) {
	if root == nil {
		return nil, fmt.Errorf("no root function")
	}
	if lang.IsExternal(root) {
		return nil, fmt.Errorf("root function %s has no body", root)
	}
	start := time.Now()
	ct := s.BuildDependenceGraphs(root)
	s.Logger.Infof("built %d dependence graphs in %3.4f s\n", len(s.graphs), time.Since(start).Seconds())

	start = time.Now()
	sets := s.CollectNodeSets(ct)
	SortNodeSets(sets, s.Config.Weights)
	s.Logger.Infof("ranked %d node sets in %3.4f s\n", len(sets), time.Since(start).Seconds())

	return &Result{
		Root:      root,
		TotalTime: s.Profile.TotalTime(),
		NodeSets:  sets,
		Graphs:    s.graphs,
		CallTree:  ct,
		Recursive: ct.RecursiveGroups(),
		Weights:   s.Config.Weights,
	}, nil
}

