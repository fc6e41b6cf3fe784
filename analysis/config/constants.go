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

package config

const (
	// DefaultEntry is the root function of the analysis when the config does not name one
	DefaultEntry = "main.main"

	// DefaultMinSavingPercent is the default reporting threshold, in percent of the total execution time
	DefaultMinSavingPercent = 1.0

	// BasePointerAnalysis computes memory nodes from the base object of each pointer, within a function
	BasePointerAnalysis = "base"
	// AndersenPointerAnalysis computes memory nodes with the inclusion-based whole-program pointer analysis
	AndersenPointerAnalysis = "andersen"

	// NoEffectPolicy assumes unknown callees do not read or write their arguments
	NoEffectPolicy = "none"
	// ModRefPolicy assumes unknown callees read and write their arguments
	ModRefPolicy = "modref"
)
