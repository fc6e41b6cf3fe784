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

// CountStores returns the number of instructions of f that write memory: stores and map updates. Calls are not
// followed. Returns 0 for functions without a body.
func CountStores(f *ssa.Function) int {
	if f == nil {
		return 0
	}
	n := 0
	lang.IterateInstructions(f, func(_ int, instr ssa.Instruction) {
		switch instr.(type) {
		case *ssa.Store, *ssa.MapUpdate:
			n++
		}
	})
	return n
}
