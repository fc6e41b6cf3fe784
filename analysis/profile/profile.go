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

// Package profile loads the dynamic call graph of a run of the analyzed program: the time spent in the calls made
// at each call site, and the functions actually called at the indirect call sites.
//
// Two formats are supported. A call-site profile is a yaml file listing the call sites with their time:
//
//	main-time: 120
//	calls:
//	  - caller: main.main
//	    file: main.go
//	    line: 12
//	    callee: main.compute
//	    time: 80
//
// A CPU profile written by runtime/pprof is read with github.com/google/pprof/profile; the time of a call site is
// the sum of the samples whose stack contains it.
//
// Call sites are identified by the runtime name of the calling function, the base name of the file and the line.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"golang.org/x/tools/go/ssa"
	"gopkg.in/yaml.v3"
)

// SiteKey identifies a call site in a profile
type SiteKey struct {
	Caller string
	File   string
	Line   int
}

func (k SiteKey) String() string {
	return fmt.Sprintf("%s@%s:%d", k.Caller, k.File, k.Line)
}

// KeyOf returns the key of the call site of the program
func KeyOf(site ssa.CallInstruction) SiteKey {
	pos := lang.InstrPosition(site)
	key := SiteKey{Caller: lang.RuntimeName(site.Parent()), Line: pos.Line}
	if pos.IsValid() {
		key.File = filepath.Base(pos.Filename)
	}
	return key
}

// CallRecord is the time spent in the calls from one call site to one callee
type CallRecord struct {
	Caller string  `yaml:"caller"`
	File   string  `yaml:"file"`
	Line   int     `yaml:"line"`
	Callee string  `yaml:"callee,omitempty"`
	Time   float64 `yaml:"time"`
}

// Key returns the key of the call site of the record
func (r CallRecord) Key() SiteKey {
	return SiteKey{Caller: r.Caller, File: filepath.Base(r.File), Line: r.Line}
}

type yamlProfile struct {
	MainTime float64      `yaml:"main-time"`
	Calls    []CallRecord `yaml:"calls"`
}

// CallProfile is a dynamic call graph with execution times
type CallProfile struct {
	mainTime float64
	records  []CallRecord
	bySite   map[SiteKey][]int
}

// New returns a profile with the records. If mainTime is zero, the total time is the time of the calls made by
// main.main.
func New(mainTime float64, records []CallRecord) *CallProfile {
	p := &CallProfile{mainTime: mainTime, bySite: map[SiteKey][]int{}}
	for _, r := range records {
		p.add(r)
	}
	if p.mainTime == 0 {
		for _, r := range p.records {
			if r.Caller == "main.main" {
				p.mainTime += r.Time
			}
		}
	}
	return p
}

func (p *CallProfile) add(r CallRecord) {
	r.File = filepath.Base(r.File)
	key := r.Key()
	for _, i := range p.bySite[key] {
		if p.records[i].Callee == r.Callee {
			p.records[i].Time += r.Time
			return
		}
	}
	p.bySite[key] = append(p.bySite[key], len(p.records))
	p.records = append(p.records, r)
}

// Load loads the profile in filename. Files with the extensions .pprof, .prof, .pb and .pb.gz are read as pprof
// CPU profiles, other files as yaml call-site profiles.
func Load(filename string) (*CallProfile, error) {
	if IsPprof(filename) {
		return LoadPprof(filename)
	}
	return LoadYAML(filename)
}

// IsPprof returns true if the name of the file is the name of a pprof profile
func IsPprof(filename string) bool {
	for _, ext := range []string{".pprof", ".prof", ".pb", ".pb.gz"} {
		if strings.HasSuffix(filename, ext) {
			return true
		}
	}
	return false
}

// LoadYAML loads a yaml call-site profile
func LoadYAML(filename string) (*CallProfile, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read profile: %w", err)
	}
	var yp yamlProfile
	if err := yaml.Unmarshal(b, &yp); err != nil {
		return nil, fmt.Errorf("could not unmarshal profile %s: %w", filename, err)
	}
	for i, r := range yp.Calls {
		if r.Caller == "" || r.Line <= 0 {
			return nil, fmt.Errorf("profile %s: call %d has no caller or line", filename, i)
		}
		if r.Time < 0 {
			return nil, fmt.Errorf("profile %s: call %d has a negative time", filename, i)
		}
	}
	return New(yp.MainTime, yp.Calls), nil
}

// Records returns the records of the profile, sorted by decreasing time
func (p *CallProfile) Records() []CallRecord {
	res := append([]CallRecord(nil), p.records...)
	sort.SliceStable(res, func(i, j int) bool { return res[i].Time > res[j].Time })
	return res
}

// TotalTime returns the execution time of the program
func (p *CallProfile) TotalTime() float64 {
	return p.mainTime
}

// ExecutionTime returns the time spent in the calls at site. When several callees have been recorded at the
// position of the site, only the records of its static callee count, if it has one.
func (p *CallProfile) ExecutionTime(site ssa.CallInstruction) float64 {
	indices := p.bySite[KeyOf(site)]
	if len(indices) == 0 {
		return 0
	}
	callee := ""
	if f := site.Common().StaticCallee(); f != nil && len(indices) > 1 {
		callee = lang.RuntimeName(f)
	}
	t := 0.0
	for _, i := range indices {
		r := p.records[i]
		if callee == "" || r.Callee == "" || r.Callee == callee {
			t += r.Time
		}
	}
	return t
}

// ConcreteCallee returns the function called at site, if a single callee has been recorded at its position
func (p *CallProfile) ConcreteCallee(site ssa.CallInstruction) (string, bool) {
	name := ""
	for _, i := range p.bySite[KeyOf(site)] {
		r := p.records[i]
		if r.Callee == "" {
			continue
		}
		if name != "" && name != r.Callee {
			return "", false
		}
		name = r.Callee
	}
	return name, name != ""
}
