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
	"golang.org/x/tools/go/ssa"
)

type reachItem struct {
	instr     ssa.Instruction
	viaBranch bool
}

// reachWalk is the state of one def-use reachability query
type reachWalk struct {
	target  ssa.CallInstruction
	parent  *ssa.Function
	stack   []reachItem
	visited map[reachItem]bool
	blocks  map[*ssa.BasicBlock]bool
}

// Reaches returns true if the definition def reaches the call site target through a def-use chain that contains a
// branch, or from any def-use chain when viaBranch is true. The chains go through the uses of values, from stores
// to the uses of their address, and from branches to the stores, phis and the target in the blocks they lead to.
//
// This is a heuristic: it ignores aliasing, and the order of the instructions outside branches.
func (s *AnalyzerState) Reaches(def ssa.Value, target ssa.CallInstruction, viaBranch bool) bool {
	if def == nil || target == nil {
		return false
	}
	w := &reachWalk{
		target:  target,
		parent:  target.Parent(),
		visited: map[reachItem]bool{},
		blocks:  map[*ssa.BasicBlock]bool{},
	}
	w.pushUses(def, viaBranch)
	for len(w.stack) > 0 {
		item := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if w.step(item) {
			return true
		}
	}
	return false
}

func (w *reachWalk) push(instr ssa.Instruction, viaBranch bool) {
	item := reachItem{instr: instr, viaBranch: viaBranch}
	if !w.visited[item] {
		w.visited[item] = true
		w.stack = append(w.stack, item)
	}
}

// pushUses pushes the instructions using v. Globals do not record their referrers, so their uses are found among
// the instructions of the function of the target.
func (w *reachWalk) pushUses(v ssa.Value, viaBranch bool) {
	if g, ok := v.(*ssa.Global); ok {
		if w.parent != nil {
			lang.IterateOperandUses(w.parent, g, func(instr ssa.Instruction) { w.push(instr, viaBranch) })
		}
		return
	}
	refs := v.Referrers()
	if refs == nil {
		return
	}
	for _, instr := range *refs {
		w.push(instr, viaBranch)
	}
}

// step processes one instruction of the walk and returns true if the target is reached
func (w *reachWalk) step(item reachItem) bool {
	if item.instr == w.target {
		return item.viaBranch
	}
	switch x := item.instr.(type) {
	case *ssa.Store:
		w.pushUses(x.Addr, item.viaBranch)
	case *ssa.If:
		return w.walkSuccessors(x.Block())
	default:
		if v, ok := item.instr.(ssa.Value); ok {
			w.pushUses(v, item.viaBranch)
		}
	}
	return false
}

// walkSuccessors walks the blocks that can be reached from block through its terminator and the terminators of
// the blocks it leads to. The stores and phis of those blocks continue the def-use chains, and the target is
// reached if it is in one of those blocks.
func (w *reachWalk) walkSuccessors(block *ssa.BasicBlock) bool {
	queue := append([]*ssa.BasicBlock{}, block.Succs...)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		if w.blocks[b] {
			continue
		}
		w.blocks[b] = true
		for _, instr := range b.Instrs {
			if instr == w.target {
				return true
			}
			switch x := instr.(type) {
			case *ssa.Store:
				w.pushUses(x.Addr, true)
			case *ssa.Phi:
				w.pushUses(x, true)
			case *ssa.If, *ssa.Jump:
				queue = append(queue, b.Succs...)
			}
		}
	}
	return false
}
