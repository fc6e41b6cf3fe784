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

package serve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/analysis/render"
	"github.com/go-chi/chi/v5"
)

func (a *App) handleNodeSets(w http.ResponseWriter, r *http.Request) {
	opts := a.opts
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			http.Error(w, fmt.Sprintf("invalid limit %q", limitStr), http.StatusBadRequest)
			return
		}
		if limit > 0 && (opts.MaxNodeSets <= 0 || limit < opts.MaxNodeSets) {
			opts.MaxNodeSets = limit
		}
	}
	groups := parpot.Groups(a.res, opts)
	if groups == nil {
		groups = []parpot.GroupReport{}
	}
	writeJSON(w, groups)
}

func (a *App) handleNodeSet(w http.ResponseWriter, r *http.Request) {
	rankStr := chi.URLParam(r, "rank")
	rank, err := strconv.Atoi(rankStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid rank %q", rankStr), http.StatusBadRequest)
		return
	}
	if rank < 1 || rank > len(a.res.NodeSets) {
		http.Error(w, fmt.Sprintf("no node set of rank %d", rank), http.StatusNotFound)
		return
	}
	// ranks are positions in the whole ranking, whatever the report options
	groups := parpot.Groups(a.res, parpot.ReportOptions{MaxNodeSets: rank})
	writeJSON(w, groups[rank-1])
}

func (a *App) handleFunctionGraph(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid function name", http.StatusBadRequest)
		return
	}
	f, ok := a.functions[name]
	if !ok {
		http.Error(w, fmt.Sprintf("function %s is not analyzed", name), http.StatusNotFound)
		return
	}
	var b bytes.Buffer
	if err := render.WriteDependenceGraph(&b, a.res.Graphs[f], a.resolver); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeDot(w, b.Bytes())
}

func (a *App) handleCallTree(w http.ResponseWriter, r *http.Request) {
	highlight := r.URL.Query().Get("cycles") == "true"
	var b bytes.Buffer
	if err := render.WriteCallTree(&b, a.res.CallTree, highlight); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeDot(w, b.Bytes())
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	if err := parpot.WriteReport(&b, a.res, a.opts); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(b.Bytes())
}

func writeDot(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
