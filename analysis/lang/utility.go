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
	"go/token"
	"go/types"
	"path/filepath"
	"strings"

	fn "github.com/awslabs/ar-go-parpot/internal/funcutil"
	"golang.org/x/tools/go/ssa"
)

// PackageNameFromFunction returns the path of the package of f. If the function doesn't have a package, the
// package of its object is used. Returns "" if no package can be found.
func PackageNameFromFunction(f *ssa.Function) string {
	if f == nil {
		return ""
	}

	pkg := f.Package()
	if pkg != nil {
		return pkg.Pkg.Path()
	}

	// this is a method or an instantiation, so need to get its Object first
	if f.Object() != nil {
		if obj := f.Object().Pkg(); obj != nil {
			return obj.Path()
		}
	}
	if f.Parent() != nil {
		return PackageNameFromFunction(f.Parent())
	}
	return ""
}

// RuntimeName returns the name the Go runtime gives to the function, which is the name that appears in profiles
// and stack traces. For example:
//   - main.f for a function f of the main package, even when the package was loaded as command-line-arguments;
//   - example.com/pkg.(*T).M for a method with a pointer receiver;
//   - main.main.func1 and main.main.func1.1 for closures;
//   - example.com/pkg.F[...] for instantiations of generic functions.
func RuntimeName(f *ssa.Function) string {
	if f == nil {
		return ""
	}
	if parent := f.Parent(); parent != nil {
		name := f.Name()
		idx := name[strings.LastIndex(name, "$")+1:]
		if parent.Parent() == nil {
			return RuntimeName(parent) + ".func" + idx
		}
		return RuntimeName(parent) + "." + idx
	}
	name := f.Name()
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i] + "[...]"
	}
	if recv := f.Signature.Recv(); recv != nil {
		name = receiverName(recv.Type()) + "." + name
	}
	return runtimePackageName(f) + "." + name
}

func runtimePackageName(f *ssa.Function) string {
	if pkg := f.Package(); pkg != nil && pkg.Pkg.Name() == "main" {
		return "main"
	}
	if obj := f.Object(); obj != nil && obj.Pkg() != nil && obj.Pkg().Name() == "main" {
		return "main"
	}
	return PackageNameFromFunction(f)
}

func receiverName(t types.Type) string {
	ptr := false
	if p, ok := t.(*types.Pointer); ok {
		ptr = true
		t = p.Elem()
	}
	name := t.String()
	if named, ok := t.(*types.Named); ok {
		name = named.Obj().Name()
		if named.TypeArgs().Len() > 0 {
			name += "[...]"
		}
	}
	if ptr {
		return "(*" + name + ")"
	}
	return name
}

// ShortName returns the name of the function without the package path, e.g. (*T).M or main$1
func ShortName(f *ssa.Function) string {
	if f == nil {
		return ""
	}
	if recv := f.Signature.Recv(); recv != nil && f.Parent() == nil {
		return receiverName(recv.Type()) + "." + f.Name()
	}
	return f.Name()
}

// DummyPos is a dummy position returned to indicate that no position could be found.
var DummyPos = token.Position{
	Filename: "unknown",
	Offset:   -1,
	Line:     -1,
	Column:   -1,
}

// SafeFunctionPos returns the position of the function without panicking
func SafeFunctionPos(function *ssa.Function) fn.Optional[token.Position] {
	if function.Prog != nil && function.Prog.Fset != nil {
		return fn.Some(function.Prog.Fset.Position(function.Pos()))
	}
	return fn.None[token.Position]()
}

// InstrPosition returns the position of the instruction, or DummyPos if the instruction has no valid position
func InstrPosition(instr ssa.Instruction) token.Position {
	parent := instr.Parent()
	if parent == nil || parent.Prog == nil || parent.Prog.Fset == nil || !instr.Pos().IsValid() {
		return DummyPos
	}
	return parent.Prog.Fset.Position(instr.Pos())
}

// FunctionFile returns the base name of the file the function is declared in, or "" if it is not known
func FunctionFile(f *ssa.Function) string {
	pos := SafeFunctionPos(f).ValueOr(DummyPos)
	if !pos.IsValid() {
		return ""
	}
	return filepath.Base(pos.Filename)
}

// FieldAddrFieldName finds the name of a field access in ssa.FieldAddr
// if it cannot find a proper field name, returns "?"
func FieldAddrFieldName(fieldAddr *ssa.FieldAddr) string {
	return GetFieldNameFromType(fieldAddr.X.Type().Underlying(), fieldAddr.Field)
}

// GetFieldNameFromType returns the name of field i if t is a struct or pointer to a struct
func GetFieldNameFromType(t types.Type, i int) string {
	switch typ := t.(type) {
	case *types.Pointer:
		return GetFieldNameFromType(typ.Elem().Underlying(), i) // recursive call
	case *types.Struct:
		// Get the field name given its index
		fieldName := "?"
		if 0 <= i && i < typ.NumFields() {
			fieldName = typ.Field(i).Name()
		}
		return fieldName
	default:
		return "?"
	}
}

// DisplayName returns a name for the memory a value refers to, as a user would write it: the variable name of an
// allocation, the name of a global or a parameter, with field selections and indexing.
// Values that have no such name are displayed with their SSA register name.
func DisplayName(v ssa.Value) string {
	switch x := v.(type) {
	case nil:
		return ""
	case *ssa.Alloc:
		if x.Comment != "" {
			return x.Comment
		}
	case *ssa.Global:
		return x.Name()
	case *ssa.FieldAddr:
		return DisplayName(x.X) + "." + FieldAddrFieldName(x)
	case *ssa.IndexAddr:
		return DisplayName(x.X) + "[]"
	case *ssa.UnOp:
		if x.Op == token.MUL {
			return DisplayName(x.X)
		}
	case *ssa.ChangeType:
		return DisplayName(x.X)
	case *ssa.Convert:
		return DisplayName(x.X)
	case *ssa.MakeInterface:
		return DisplayName(x.X)
	case *ssa.Slice:
		return DisplayName(x.X)
	}
	return v.Name()
}
