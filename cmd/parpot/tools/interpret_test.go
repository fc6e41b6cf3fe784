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

package tools

import (
	"strings"
	"testing"
)

func validateHint(t *testing.T, errorMsg string, containedHint string) {
	hint := HintForErrorMessage(errorMsg)
	if !strings.Contains(hint, containedHint) {
		t.Fatalf("incorrect hint; check and update error message if necessary")
	}
}

func TestHintForFlagAfterFiles(t *testing.T) {
	errorMsg := "error: could not load program:\n -: named files must be .go files: -v"
	containedHint := "all command line flags should be before the path"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForFailedLoadProgram(t *testing.T) {
	errorMsg := "error: could not load program:\n errors found, exiting\n"
	containedHint := "you have provided the right arguments for an analyzer to load a Go program"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForMissingEntry(t *testing.T) {
	errorMsg := "error: could not find entry function main.run in the program"
	containedHint := "set entry in the config file"
	validateHint(t, errorMsg, containedHint)
}

func TestHintForProfile(t *testing.T) {
	errorMsg := "error: could not read profile: open prof.yaml: no such file or directory"
	containedHint := "relative to the directory of the config file"
	validateHint(t, errorMsg, containedHint)
}

func TestNoHint(t *testing.T) {
	if hint := HintForErrorMessage("error: something else"); hint != "" {
		t.Errorf("expected no hint, got %q", hint)
	}
}
