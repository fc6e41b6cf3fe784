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

package profile

import (
	"fmt"
	"os"

	"github.com/google/pprof/profile"
)

type frame struct {
	function string
	file     string
	line     int
}

// LoadPprof loads a CPU profile in the pprof format
func LoadPprof(filename string) (*CallProfile, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open profile: %w", err)
	}
	defer f.Close()
	prof, err := profile.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse profile %s: %w", filename, err)
	}
	return FromPprof(prof)
}

// FromPprof builds the call profile of a pprof profile. The time of a call site is the sum of the values of the
// samples whose stack goes through it, counted once per sample.
func FromPprof(prof *profile.Profile) (*CallProfile, error) {
	if err := prof.CheckValid(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	idx := valueIndex(prof)
	if idx < 0 {
		return nil, fmt.Errorf("profile has no sample type")
	}
	total := 0.0
	var records []CallRecord
	for _, sample := range prof.Sample {
		value := float64(sample.Value[idx])
		total += value
		frames := sampleFrames(sample)
		counted := map[CallRecord]bool{}
		// frames[i] is called by frames[i+1]
		for i := 0; i+1 < len(frames); i++ {
			caller, callee := frames[i+1], frames[i]
			r := CallRecord{Caller: caller.function, File: caller.file, Line: caller.line, Callee: callee.function}
			if counted[r] {
				continue
			}
			counted[r] = true
			r.Time = value
			records = append(records, r)
		}
	}
	return New(total, records), nil
}

// valueIndex returns the index of the cpu time in the sample values, or of the last value when there is no cpu time
func valueIndex(prof *profile.Profile) int {
	for i, st := range prof.SampleType {
		if st.Type == "cpu" {
			return i
		}
	}
	return len(prof.SampleType) - 1
}

// sampleFrames returns the frames of the stack of the sample from the leaf to the root, including inlined frames
func sampleFrames(sample *profile.Sample) []frame {
	var frames []frame
	for _, loc := range sample.Location {
		for _, line := range loc.Line {
			if line.Function == nil {
				continue
			}
			frames = append(frames, frame{function: line.Function.Name, file: line.Function.Filename,
				line: int(line.Line)})
		}
	}
	return frames
}
