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
	"go/types"

	"golang.org/x/tools/go/pointer"
	"golang.org/x/tools/go/ssa"
)

// CanPoint returns true if values of type t refer to memory: pointers, slices, maps, channels, functions and
// interfaces.
func CanPoint(t types.Type) bool {
	return t != nil && pointer.CanPoint(t)
}

// StripPointerCasts returns the value v before conversions that do not change the memory v refers to.
func StripPointerCasts(v ssa.Value) ssa.Value {
	for {
		switch x := v.(type) {
		case *ssa.ChangeType:
			v = x.X
		case *ssa.Convert:
			v = x.X
		case *ssa.MakeInterface:
			v = x.X
		case *ssa.ChangeInterface:
			v = x.X
		case *ssa.SliceToArrayPointer:
			v = x.X
		default:
			return v
		}
	}
}

// BaseObject returns the value holding the address of the object v points into, by stripping field selection,
// indexing, slicing and conversions. The result is an allocation, a global, a parameter, a free variable, a call
// result, a load, or any other value that produces a pointer.
func BaseObject(v ssa.Value) ssa.Value {
	for {
		switch x := v.(type) {
		case *ssa.FieldAddr:
			v = x.X
		case *ssa.IndexAddr:
			v = x.X
		case *ssa.Slice:
			v = x.X
		case *ssa.ChangeType, *ssa.Convert, *ssa.MakeInterface, *ssa.ChangeInterface, *ssa.SliceToArrayPointer:
			v = StripPointerCasts(x)
		default:
			return v
		}
	}
}

// IsFreshAllocation returns true if v is a newly allocated object (new, composite literals, make), which cannot
// be nil.
func IsFreshAllocation(v ssa.Value) bool {
	switch StripPointerCasts(v).(type) {
	case *ssa.Alloc, *ssa.MakeMap, *ssa.MakeSlice, *ssa.MakeChan, *ssa.MakeClosure:
		return true
	}
	return false
}

// IsNilConst returns true if v is the constant nil
func IsNilConst(v ssa.Value) bool {
	c, ok := v.(*ssa.Const)
	return ok && c.Value == nil
}
