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
	"net/http"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/tools/go/ssa"
)

// App holds the result served and the handlers of the routes
type App struct {
	res       *parpot.Result
	opts      parpot.ReportOptions
	resolver  parpot.CalleeResolver
	functions map[string]*ssa.Function
}

// NewApp returns an App serving res. The groups listed are the ones kept by opts; resolver names the callees in
// the rendered graphs and may be nil.
func NewApp(res *parpot.Result, opts parpot.ReportOptions, resolver parpot.CalleeResolver) *App {
	functions := make(map[string]*ssa.Function, len(res.Graphs))
	for f := range res.Graphs {
		functions[lang.RuntimeName(f)] = f
	}
	return &App{
		res:       res,
		opts:      opts,
		resolver:  resolver,
		functions: functions,
	}
}

// Handler returns the HTTP handler (router with recovery and routes).
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/nodesets", a.handleNodeSets)
	r.Get("/nodesets/{rank}", a.handleNodeSet)
	r.Get("/functions/{name}/graph", a.handleFunctionGraph)
	r.Get("/calltree", a.handleCallTree)
	r.Get("/report", a.handleReport)
	return r
}
