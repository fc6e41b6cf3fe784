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

// PostOrder returns the nodes reachable from root in depth-first post-order: every node appears after all the
// nodes reachable from it, except along back edges. Each node appears once. Successors are explored in the order
// returned by successors.
//
// The traversal uses an explicit stack, so its depth is not bounded by the goroutine stack.
func PostOrder[T comparable](root T, successors func(T) []T) []T {
	type frame struct {
		node  T
		succs []T
		next  int
	}
	var order []T
	visited := map[T]bool{root: true}
	stack := []*frame{{node: root, succs: successors(root)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next < len(top.succs) {
			succ := top.succs[top.next]
			top.next++
			if !visited[succ] {
				visited[succ] = true
				stack = append(stack, &frame{node: succ, succs: successors(succ)})
			}
			continue
		}
		order = append(order, top.node)
		stack = stack[:len(stack)-1]
	}
	return order
}
