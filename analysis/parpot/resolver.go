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
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// Resolver resolves callees statically, then with the concrete callees recorded in the profile, then with a
// call graph.
type Resolver struct {
	program   *ssa.Program
	profile   Profile
	callgraph *callgraph.Graph
	byName    map[string]*ssa.Function
	resolved  map[ssa.CallInstruction]*ssa.Function
}

// NewResolver returns a resolver for the call sites of prog. The profile and the call graph may be nil.
func NewResolver(prog *ssa.Program, profile Profile, cg *callgraph.Graph) *Resolver {
	return &Resolver{
		program:   prog,
		profile:   profile,
		callgraph: cg,
		resolved:  map[ssa.CallInstruction]*ssa.Function{},
	}
}

// ResolveCallee returns the function with a body called at site, or nil.
// A static callee without a body is not resolved by other means. Calls to builtins are never resolved.
func (r *Resolver) ResolveCallee(site ssa.CallInstruction) *ssa.Function {
	if f, ok := r.resolved[site]; ok {
		return f
	}
	f := r.resolve(site)
	r.resolved[site] = f
	return f
}

func (r *Resolver) resolve(site ssa.CallInstruction) *ssa.Function {
	if _, ok := lang.CalledBuiltin(site); ok {
		return nil
	}
	if static := site.Common().StaticCallee(); static != nil {
		if lang.IsExternal(static) {
			return nil
		}
		return static
	}
	if r.profile != nil {
		if name, ok := r.profile.ConcreteCallee(site); ok {
			if f := r.FunctionByName(name); f != nil {
				return f
			}
		}
	}
	if r.callgraph != nil {
		return r.uniqueCallgraphCallee(site)
	}
	return nil
}

// FunctionByName returns the function with a body whose runtime name is name, or nil
func (r *Resolver) FunctionByName(name string) *ssa.Function {
	if r.byName == nil {
		r.byName = map[string]*ssa.Function{}
		if r.program != nil {
			for f := range ssautil.AllFunctions(r.program) {
				if lang.IsExternal(f) {
					continue
				}
				key := lang.RuntimeName(f)
				// prefer the functions of the source over synthetic wrappers of the same name
				if prev, ok := r.byName[key]; !ok || (prev.Synthetic != "" && f.Synthetic == "") {
					r.byName[key] = f
				}
			}
		}
	}
	return r.byName[name]
}

// uniqueCallgraphCallee returns the callee of site in the call graph if there is only one with a body
func (r *Resolver) uniqueCallgraphCallee(site ssa.CallInstruction) *ssa.Function {
	node := r.callgraph.Nodes[site.Parent()]
	if node == nil {
		return nil
	}
	var unique *ssa.Function
	for _, e := range node.Out {
		if e.Site != site || e.Callee == nil || e.Callee.Func == nil || lang.IsExternal(e.Callee.Func) {
			continue
		}
		if unique != nil && unique != e.Callee.Func {
			return nil
		}
		unique = e.Callee.Func
	}
	return unique
}
