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

package analysis

import (
	"fmt"
	"go/types"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// DoPointerAnalysis runs the pointer analysis on the program p, marking every value in the functions filtered by
// functionFilter as potential value to query for aliasing.
//
// - p is the program to be analyzed
//
// - functionFilter determines whether to add the values of the function in the Queries or IndirectQueries of the result
//
// - buildCallGraph determines whether the analysis must also build the callgraph of the program
func DoPointerAnalysis(p *ssa.Program, functionFilter func(*ssa.Function) bool, buildCallGraph bool) (*pointer.Result,
	error) {
	mains := ssautil.MainPackages(p.AllPackages())
	if len(mains) == 0 {
		return nil, fmt.Errorf("pointer analysis requires a main package")
	}
	pCfg := &pointer.Config{
		Mains:           mains,
		Reflection:      false,
		BuildCallGraph:  buildCallGraph,
		Queries:         make(map[ssa.Value]struct{}),
		IndirectQueries: make(map[ssa.Value]struct{}),
	}

	for function := range ssautil.AllFunctions(p) {
		if functionFilter(function) {
			lang.IterateInstructions(function,
				func(_ int, instruction ssa.Instruction) { addQuery(pCfg, instruction) })
		}
	}

	return pointer.Analyze(pCfg)
}

// addQuery adds a query for the operands and the value of the instruction to the pointer configuration.
func addQuery(cfg *pointer.Config, instruction ssa.Instruction) {
	if instruction == nil {
		return
	}
	values := []ssa.Value{}
	for _, operand := range instruction.Operands(nil) {
		if *operand != nil {
			values = append(values, *operand)
		}
	}
	if v, ok := instruction.(ssa.Value); ok {
		values = append(values, v)
	}
	for _, v := range values {
		typ := v.Type()
		if typ == nil {
			continue
		}
		if _, isConst := v.(*ssa.Const); isConst {
			continue
		}
		if lang.CanPoint(typ) {
			cfg.AddQuery(v)
		}
		indirectQuery(typ, v, cfg)
	}
}

// indirectQuery wraps an update to the IndirectQuery of the pointer config. We need to wrap it
// because typ.Underlying() may panic despite typ being non-nil
func indirectQuery(typ types.Type, v ssa.Value, cfg *pointer.Config) {
	defer func() {
		// occurs on opaque types
		_ = recover()
	}()

	if ptrType, ok := typ.Underlying().(*types.Pointer); ok {
		if lang.CanPoint(ptrType.Elem()) {
			cfg.AddIndirectQuery(v)
		}
	}
}
