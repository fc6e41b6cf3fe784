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

// Package lang provides functions to operate on the SSA representation of a program: iteration over
// instructions, call arguments, program order and dominance between instructions, and names of functions and
// values as they appear in profiles and reports.
package lang

import (
	"fmt"

	"golang.org/x/tools/go/ssa"
)

// GetArgs returns the arguments of a function call including the receiver when the function called is a method.
// The i-th argument returned corresponds to the i-th parameter of the callee.
func GetArgs(instr ssa.CallInstruction) []ssa.Value {
	var args []ssa.Value
	if instr.Common().IsInvoke() {
		args = append(args, instr.Common().Value)
	}
	args = append(args, instr.Common().Args...)
	return args
}

// CalledBuiltin returns the builtin called by instr, if any
func CalledBuiltin(instr ssa.CallInstruction) (*ssa.Builtin, bool) {
	if instr.Common().IsInvoke() {
		return nil, false
	}
	b, ok := instr.Common().Value.(*ssa.Builtin)
	return b, ok
}

// InstrIndex returns the index of instr in its block, or -1 if the instruction is not in its block
func InstrIndex(instr ssa.Instruction) int {
	block := instr.Block()
	if block == nil {
		return -1
	}
	for i, x := range block.Instrs {
		if x == instr {
			return i
		}
	}
	return -1
}

// Dominates returns true if a dominates b. Both instructions must be in the same function. An instruction
// dominates itself.
func Dominates(a ssa.Instruction, b ssa.Instruction) bool {
	if a == b {
		return true
	}
	ba, bb := a.Block(), b.Block()
	if ba == nil || bb == nil {
		return false
	}
	if ba == bb {
		return InstrIndex(a) < InstrIndex(b)
	}
	return ba.Dominates(bb)
}

// InstrBefore returns true if a comes before b in program order. Within a block, the order is the order of the
// instructions. Across blocks, a is before b if a dominates b, or if b's block cannot reach a's block but a's
// block reaches b's block. In the remaining cases (e.g. two branches of a conditional) the source position is
// used, and the block index when positions are not known.
func InstrBefore(a ssa.Instruction, b ssa.Instruction) bool {
	if a == b {
		return false
	}
	ba, bb := a.Block(), b.Block()
	if ba == nil || bb == nil {
		return a.Pos() < b.Pos()
	}
	if ba == bb {
		return InstrIndex(a) < InstrIndex(b)
	}
	if ba.Dominates(bb) {
		return true
	}
	if bb.Dominates(ba) {
		return false
	}
	aReachesB := HasPathTo(ba, bb, nil)
	bReachesA := HasPathTo(bb, ba, nil)
	if aReachesB != bReachesA {
		return aReachesB
	}
	if a.Pos().IsValid() && b.Pos().IsValid() && a.Pos() != b.Pos() {
		return a.Pos() < b.Pos()
	}
	return ba.Index < bb.Index
}

// FmtInstr returns a string representation of the instruction, with the name of the value it defines if any
func FmtInstr(instr ssa.Instruction) string {
	if v, ok := instr.(ssa.Value); ok {
		return fmt.Sprintf("%s = %s", v.Name(), v.String())
	}
	return instr.String()
}
