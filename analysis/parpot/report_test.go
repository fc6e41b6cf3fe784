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

package parpot_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/awslabs/ar-go-parpot/analysis/parpot"
)

func TestWriteReport(t *testing.T) {
	profile := fakeProfile{times: map[string]float64{"f": 10, "g": 5}, total: 100}
	res, _, _ := analyzeMain(t, aliasSrc, profile, nil)
	var buf bytes.Buffer
	if err := parpot.WriteReport(&buf, res, parpot.ReportOptions{MinSavingPercent: 1}); err != nil {
		t.Fatalf("could not write report: %v", err)
	}
	expected := " maintime: 100\n" +
		"Dependence Analysis Result:\n" +
		"  Parent-function: main (main.go)\n" +
		"  Functions: ( f(main.go, 9) g(main.go, 10) )     saving: [ 5 % ]\n" +
		"    g: x -> x - True dependence\n" +
		parpot.Separator + "\n"
	if buf.String() != expected {
		t.Errorf("unexpected report:\n%s\nexpected:\n%s", buf.String(), expected)
	}
}

func TestReportThreshold(t *testing.T) {
	profile := fakeProfile{times: map[string]float64{"f": 10, "g": 5}, total: 1000}
	res, _, _ := analyzeMain(t, independentSrc, profile, nil)

	for _, test := range []struct {
		opts parpot.ReportOptions
		want int
	}{
		{parpot.ReportOptions{MinSavingPercent: 0.4}, 1},
		{parpot.ReportOptions{MinSavingPercent: 0.4, MaxNodeSets: 1}, 1},
		{parpot.ReportOptions{MinSavingPercent: 1}, 0},
	} {
		groups := parpot.Groups(res, test.opts)
		if len(groups) != test.want {
			t.Errorf("threshold %g: expected %d groups, got %d", test.opts.MinSavingPercent, test.want, len(groups))
		}
	}

	var buf bytes.Buffer
	if err := parpot.WriteReport(&buf, res, parpot.ReportOptions{MinSavingPercent: 1}); err != nil {
		t.Fatalf("could not write report: %v", err)
	}
	if strings.Contains(buf.String(), "Parent-function") {
		t.Errorf("a set saving 0.5%% should not be reported above 1%%:\n%s", buf.String())
	}
}

func TestReportWithoutProfile(t *testing.T) {
	res, _, _ := analyzeMain(t, aliasSrc, nil, nil)
	if len(res.NodeSets) != 1 {
		t.Fatalf("expected one node set, got %d", len(res.NodeSets))
	}
	if groups := parpot.Groups(res, parpot.ReportOptions{MinSavingPercent: 1}); len(groups) != 1 {
		t.Fatalf("expected the group to be kept without a total time, got %d groups", len(groups))
	}
	var buf bytes.Buffer
	if err := parpot.WriteReport(&buf, res, parpot.ReportOptions{MinSavingPercent: 1}); err != nil {
		t.Fatalf("could not write report: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, " maintime: 0\n") {
		t.Errorf("expected a zero main time, got:\n%s", out)
	}
	if !strings.Contains(out, "Parent-function: main (main.go)") || !strings.Contains(out, "saving: [ 0 % ]") {
		t.Errorf("expected the group with a zero saving, got:\n%s", out)
	}
}

func TestSavingRange(t *testing.T) {
	g, m := members(t, 10, 5, 3)
	res := &parpot.Result{
		Root:      g.Function,
		TotalTime: 100,
		NodeSets:  []*parpot.NodeSet{parpot.NewNodeSet(g, m)},
	}
	groups := parpot.Groups(res, parpot.ReportOptions{})
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	var buf bytes.Buffer
	if err := parpot.WriteGroup(&buf, groups[0]); err != nil {
		t.Fatalf("could not write group: %v", err)
	}
	if !strings.Contains(buf.String(), "saving: [3 % - 8 % ]") {
		t.Errorf("expected a saving range, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "( f(main.go, 10) g(main.go, 11) h(main.go, 12) )") {
		t.Errorf("unexpected members:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	profile := fakeProfile{times: map[string]float64{"f": 10, "g": 5}, total: 100}
	res, _, _ := analyzeMain(t, aliasSrc, profile, nil)
	var buf bytes.Buffer
	if err := parpot.WriteJSON(&buf, res, parpot.ReportOptions{}); err != nil {
		t.Fatalf("could not write report: %v", err)
	}
	var report parpot.JSONReport
	if err := json.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if report.MainTime != 100 || report.Root != "main.main" || len(report.Groups) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	group := report.Groups[0]
	if group.Rank != 1 || group.TrueDeps != 1 || group.MaxPercent != 5 || len(group.Members) != 2 {
		t.Errorf("unexpected group %+v", group)
	}
	if len(group.Dependencies) != 1 || group.Dependencies[0].Callee != "g" || group.Dependencies[0].Own != "x" {
		t.Errorf("unexpected dependencies %+v", group.Dependencies)
	}
}
