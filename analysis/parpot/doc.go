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

/*
Package parpot estimates the parallelization potential of a program. For every function reachable from a root
function, it builds a dependence graph between the call sites of the function, then groups the pairs of call
sites into node sets and ranks them by the time their parallel execution could save, penalized by the
dependencies between them.

The dependencies are found by four analyzers:
  - the correlation analyzer finds control dependencies: a call site writes an argument, a global, or returns a
    value that flows into a branch deciding whether the other call site executes;
  - the pointer alias analyzer finds true, anti and output dependencies between call sites whose arguments point to
    the same abstract memory node;
  - the globals analyzer finds true, anti and output dependencies between call sites whose callees read or change
    the same global variables;
  - the dominator analyzer, when enabled, marks the call sites that are not ordered by dominance.

The analysis needs three collaborators: a CalleeResolver for indirect calls, a PointerAnalysis for abstract memory
nodes, and a Profile giving the execution times of the call sites. All the intermediate results are kept in an
AnalyzerState, which is used for the analysis of one program.

A typical use is:

	state := parpot.NewAnalyzerState(prog, cfg, logger, resolver, pointers, profile)
	result, err := state.Analyze(root)
	if err != nil {
		return err
	}
	parpot.WriteReport(os.Stdout, result, parpot.ReportOptionsFromConfig(cfg))
*/
package parpot
