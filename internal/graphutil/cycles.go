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

package graphutil

import (
	"sort"

	"github.com/awslabs/ar-go-parpot/internal/funcutil"
	ybgraph "github.com/yourbasic/graph"
	"golang.org/x/tools/go/ssa"
)

// FindAllElementaryCycles finds all elementary cycles of the call tree, i.e. the recursive call chains.
// This uses Donald B. Johnson's algorithm presented in
// "Finding All The Elementary Circuits of a Directed Graph", 1975.
// Self-recursive functions are cycles of length one. Each cycle starts and ends with the same node id.
func FindAllElementaryCycles(ct *CallTree) [][]int64 {
	s := &circuitState{
		blocked: map[int64]bool{},
		blist:   map[int64]map[int64]bool{},
	}
	start := 0
	for start < len(ct.Keys) {
		sub := Subgraph(ct, ct.Keys[start:])
		// the component containing the least node with a non trivial component
		least := int64(-1)
		for _, component := range ybgraph.StrongComponents(sub) {
			if len(component) < 2 && !sub.Edges[int64(component[0])][int64(component[0])] {
				continue
			}
			sort.Ints(component)
			if least < 0 || int64(component[0]) < least {
				least = int64(component[0])
			}
		}
		if least < 0 {
			break
		}
		s.stack = nil
		s.blocked = map[int64]bool{}
		s.blist = map[int64]map[int64]bool{}
		s.circuit(least, least, sub)
		start = sort.Search(len(ct.Keys), func(i int) bool { return ct.Keys[i] > least })
	}
	return s.cycles
}

// RecursiveGroups returns the groups of mutually recursive functions of the call tree, i.e. the strongly connected
// components that contain a cycle, self-recursive functions included. Groups are ordered by their first function
// in post-order, and the functions of a group are in post-order.
func (c *CallTree) RecursiveGroups() [][]*ssa.Function {
	var components [][]int
	for _, component := range ybgraph.StrongComponents(c) {
		if len(component) < 2 && !c.Edges[int64(component[0])][int64(component[0])] {
			continue
		}
		sort.Ints(component)
		components = append(components, component)
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0] < components[j][0] })
	groups := make([][]*ssa.Function, len(components))
	for i, component := range components {
		groups[i] = make([]*ssa.Function, len(component))
		for j, id := range component {
			groups[i][j] = c.IDMap[int64(id)].Function
		}
	}
	return groups
}

// CycleFunctions maps a cycle of node ids to the functions of the call tree
func (c *CallTree) CycleFunctions(cycle []int64) []*ssa.Function {
	funcs := make([]*ssa.Function, len(cycle))
	for i, id := range cycle {
		funcs[i] = c.IDMap[id].Function
	}
	return funcs
}

type circuitState struct {
	blocked map[int64]bool
	blist   map[int64]map[int64]bool
	stack   []int64
	cycles  [][]int64
}

func (s *circuitState) unblock(u int64) {
	s.blocked[u] = false
	for w := range s.blist[u] {
		delete(s.blist[u], w)
		if s.blocked[w] {
			s.unblock(w)
		}
	}
}

func (s *circuitState) circuit(v int64, start int64, g *CallTree) bool {
	found := false
	s.stack = append(s.stack, v)
	s.blocked[v] = true
	for _, w := range funcutil.SetToOrderedSlice(g.Edges[v]) {
		if w == start {
			cycle := make([]int64, len(s.stack), len(s.stack)+1)
			copy(cycle, s.stack)
			s.cycles = append(s.cycles, append(cycle, w))
			found = true
		} else if !s.blocked[w] {
			if s.circuit(w, start, g) {
				found = true
			}
		}
	}

	if found {
		s.unblock(v)
	} else {
		for w := range g.Edges[v] {
			if s.blist[w] == nil {
				s.blist[w] = map[int64]bool{}
			}
			s.blist[w][v] = true
		}
	}
	s.stack = s.stack[:len(s.stack)-1]
	return found
}
