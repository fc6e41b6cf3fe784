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

package lang

import (
	"golang.org/x/tools/go/ssa"
)

// IsExternal returns true if function is external (in ssa, when Blocks is nil). This is the case for functions
// implemented in assembly, linkname'd declarations and functions of packages whose body has not been built.
func IsExternal(function *ssa.Function) bool {
	// This is indicated in the ssa documentation
	return function.Blocks == nil
}

// IterateInstructions iterates through all the instructions in the function, block by block in the order of
// function.Blocks, and in order within each block.
func IterateInstructions(function *ssa.Function, f func(index int, instruction ssa.Instruction)) {
	// If this is an external function, return.
	if function.Blocks == nil {
		return
	}

	for _, block := range function.Blocks {
		for index, instruction := range block.Instrs {
			f(index, instruction)
		}
	}
}

// CallInstructions returns all the call instructions (calls, go and defer statements) of the function, in the
// order of IterateInstructions.
func CallInstructions(function *ssa.Function) []ssa.CallInstruction {
	var calls []ssa.CallInstruction
	IterateInstructions(function, func(_ int, instruction ssa.Instruction) {
		if call, ok := instruction.(ssa.CallInstruction); ok {
			calls = append(calls, call)
		}
	})
	return calls
}

// IterateOperandUses calls f on every instruction of function that has v among its operands. This is used for
// values that do not track their referrers, such as globals.
func IterateOperandUses(function *ssa.Function, v ssa.Value, f func(instruction ssa.Instruction)) {
	var operands []*ssa.Value
	IterateInstructions(function, func(_ int, instruction ssa.Instruction) {
		operands = instruction.Operands(operands[:0])
		for _, operand := range operands {
			if operand != nil && *operand == v {
				f(instruction)
				return
			}
		}
	})
}
