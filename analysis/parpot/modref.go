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
	"go/token"

	"github.com/awslabs/ar-go-parpot/analysis/config"
	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
)

// Effect is the effect of a function on the memory an argument points to
type Effect uint8

const (
	// NoEffect means the memory is neither read nor written
	NoEffect Effect = 0
	// Ref means the memory may be read
	Ref Effect = 1
	// Mod means the memory may be written
	Mod Effect = 2
	// ModRef means the memory may be read and written
	ModRef = Ref | Mod
)

func (e Effect) String() string {
	switch e {
	case NoEffect:
		return "none"
	case Ref:
		return "ref"
	case Mod:
		return "mod"
	case ModRef:
		return "modref"
	}
	return "?"
}

// unknownCalleeEffect is the effect of a callee without a body or that cannot be resolved
func (s *AnalyzerState) unknownCalleeEffect() Effect {
	if s.Config.UnknownCalleeEffect == config.ModRefPolicy {
		return ModRef
	}
	return NoEffect
}

// ArgumentEffect returns the effect of f on the memory its index-th parameter points to. The receiver of a method
// is its first parameter.
func (s *AnalyzerState) ArgumentEffect(f *ssa.Function, index int) Effect {
	if f == nil || lang.IsExternal(f) {
		return s.unknownCalleeEffect()
	}
	if index < 0 || index >= len(f.Params) {
		return NoEffect
	}
	return s.valueEffect(f.Params[index])
}

// FreeVarEffect returns the effect of the closure f on the memory its index-th captured variable points to.
// The free variables of anonymous functions are the addresses of the captured variables; the free variable of a
// bound method wrapper is the receiver itself.
func (s *AnalyzerState) FreeVarEffect(f *ssa.Function, index int) Effect {
	if f == nil || lang.IsExternal(f) {
		return s.unknownCalleeEffect()
	}
	if index < 0 || index >= len(f.FreeVars) {
		return NoEffect
	}
	if f.Parent() != nil {
		return s.cellEffect(f.FreeVars[index])
	}
	return s.valueEffect(f.FreeVars[index])
}

// cellEffect returns the effect of the uses of cell on the memory the pointer stored in cell points to. Cells are
// the variables captured by closures: a local allocation, or a free variable inside the closure.
func (s *AnalyzerState) cellEffect(cell ssa.Value) Effect {
	if st, ok := s.cells[cell]; ok {
		return st.effect
	}
	st := &effectState{inProgress: true}
	s.cells[cell] = st
	refs := cell.Referrers()
	if refs != nil {
		for _, instr := range *refs {
			switch x := instr.(type) {
			case *ssa.UnOp:
				if x.X == cell && x.Op == token.MUL {
					st.effect |= s.usesEffect(x)
				}
			case *ssa.MakeClosure:
				fn, ok := x.Fn.(*ssa.Function)
				if !ok || fn.Parent() == nil {
					continue
				}
				for i, binding := range x.Bindings {
					if binding == cell {
						st.effect |= s.FreeVarEffect(fn, i)
					}
				}
			case *ssa.Store, *ssa.DebugRef:
				// overwriting the cell does not touch the memory of its previous content
			default:
				s.Logger.Debugf("effect of %s on the content of %s is not handled, assuming none\n",
					lang.FmtInstr(instr), cell.Name())
			}
		}
	}
	st.inProgress = false
	return st.effect
}

// valueEffect returns the effect of the uses of v. While the effect of v is being computed, it is NoEffect.
func (s *AnalyzerState) valueEffect(v ssa.Value) Effect {
	if st, ok := s.effects[v]; ok {
		return st.effect
	}
	st := &effectState{inProgress: true}
	s.effects[v] = st
	st.effect |= s.usesEffect(v)
	st.inProgress = false
	return st.effect
}

// usesEffect returns the union of the effects of all the uses of v
func (s *AnalyzerState) usesEffect(v ssa.Value) Effect {
	refs := v.Referrers()
	if refs == nil {
		return NoEffect
	}
	e := NoEffect
	for _, instr := range *refs {
		e |= s.useEffect(instr, v)
		if e == ModRef {
			break
		}
	}
	return e
}

// useEffect returns the effect of instr on the memory v points to
func (s *AnalyzerState) useEffect(instr ssa.Instruction, v ssa.Value) Effect {
	key := useKey{instr: instr, value: v}
	if st, ok := s.useEffects[key]; ok {
		return st.effect
	}
	st := &effectState{inProgress: true}
	s.useEffects[key] = st
	st.effect = s.computeUseEffect(instr, v)
	st.inProgress = false
	return st.effect
}

func (s *AnalyzerState) computeUseEffect(instr ssa.Instruction, v ssa.Value) Effect {
	switch x := instr.(type) {
	case *ssa.UnOp:
		if x.X != v {
			return NoEffect
		}
		switch x.Op {
		case token.MUL:
			return Ref
		case token.ARROW:
			return ModRef
		}
		return NoEffect
	case *ssa.Store:
		if x.Addr == v {
			return Mod
		}
		// v is saved in a local variable, e.g. a variable captured by a closure
		if alloc, ok := x.Addr.(*ssa.Alloc); ok && x.Val == v {
			return s.cellEffect(alloc)
		}
	case *ssa.Return:
		return Ref
	case ssa.CallInstruction:
		return s.callUseEffect(x, v)
	case *ssa.FieldAddr:
		return s.passThrough(x, x.X, v)
	case *ssa.IndexAddr:
		return s.passThrough(x, x.X, v)
	case *ssa.Slice:
		return s.passThrough(x, x.X, v)
	case *ssa.ChangeType, *ssa.Convert, *ssa.ChangeInterface, *ssa.MakeInterface, *ssa.SliceToArrayPointer,
		*ssa.TypeAssert, *ssa.Phi:
		return s.usesEffect(x.(ssa.Value))
	case *ssa.MapUpdate:
		if x.Map == v {
			return Mod
		}
	case *ssa.Lookup:
		if x.X == v {
			return Ref
		}
		return NoEffect
	case *ssa.Range:
		return Ref
	case *ssa.Send:
		if x.Chan == v {
			return Mod
		}
	case *ssa.Select:
		return ModRef
	case *ssa.MakeClosure:
		return s.closureEffect(x, v)
	case *ssa.BinOp:
		if x.Op == token.EQL || x.Op == token.NEQ {
			other := x.X
			if other == v {
				other = x.Y
			}
			if lang.IsNilConst(other) && lang.IsFreshAllocation(v) {
				return NoEffect
			}
		}
		return Ref
	case *ssa.DebugRef:
		return NoEffect
	}
	s.Logger.Debugf("effect of %s on %s is not handled, assuming none\n", lang.FmtInstr(instr), v.Name())
	return NoEffect
}

// passThrough returns the effect of the uses of the value of instr when it derives from v through its operand
// ptr, which keeps pointing in the memory of v
func (s *AnalyzerState) passThrough(instr ssa.Value, ptr ssa.Value, v ssa.Value) Effect {
	if ptr != v {
		return NoEffect
	}
	return s.usesEffect(instr)
}

// closureEffect returns the effect of binding v to a free variable of a closure: the effect of the closure body on
// the memory v points to, which is the captured variable itself for anonymous functions
func (s *AnalyzerState) closureEffect(mc *ssa.MakeClosure, v ssa.Value) Effect {
	fn, ok := mc.Fn.(*ssa.Function)
	if !ok {
		return NoEffect
	}
	e := NoEffect
	for i, binding := range mc.Bindings {
		if binding == v {
			e |= s.valueEffect(fn.FreeVars[i])
		}
	}
	return e
}

// callUseEffect returns the effect of the call on v when v is an actual argument of the call
func (s *AnalyzerState) callUseEffect(call ssa.CallInstruction, v ssa.Value) Effect {
	e := NoEffect
	args := lang.GetArgs(call)
	for i, arg := range args {
		if arg == v {
			e |= s.CallArgumentEffect(call, i)
		}
	}
	// calling a function value reads it
	if !call.Common().IsInvoke() && call.Common().Value == v {
		e |= Ref
	}
	return e
}

// CallArgumentEffect returns the effect of the call site on the memory its index-th argument points to, where
// arguments are numbered as in lang.GetArgs.
func (s *AnalyzerState) CallArgumentEffect(call ssa.CallInstruction, index int) Effect {
	if b, ok := lang.CalledBuiltin(call); ok {
		return builtinEffect(b.Name(), index)
	}
	callee := s.Resolver.ResolveCallee(call)
	if callee == nil {
		return s.unknownCalleeEffect()
	}
	return s.ArgumentEffect(callee, index)
}

// builtinEffect returns the effect of the builtin name on its index-th argument
func builtinEffect(name string, index int) Effect {
	switch name {
	case "copy":
		if index == 0 {
			return Mod
		}
		return Ref
	case "append":
		if index == 0 {
			return ModRef
		}
		return Ref
	case "delete", "close", "clear":
		if index == 0 {
			return Mod
		}
		return NoEffect
	case "print", "println":
		return Ref
	}
	return NoEffect
}

// EffectOnNode returns the effect of the call site on the abstract memory node. The first pointer-like argument of
// site that points to node determines the effect.
func (s *AnalyzerState) EffectOnNode(site ssa.CallInstruction, node MemoryNode) Effect {
	if s.Pointers == nil {
		return NoEffect
	}
	for i, arg := range lang.GetArgs(site) {
		if !lang.CanPoint(arg.Type()) {
			continue
		}
		if n, ok := s.Pointers.MemoryNode(arg); ok && s.Pointers.SameNode(n, node) {
			return s.CallArgumentEffect(site, i)
		}
	}
	return NoEffect
}
