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

// Package serve implements a tool that runs the analysis once and serves its results over HTTP.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"github.com/awslabs/ar-go-parpot/cmd/parpot/tools"
)

const usage = `Run the analysis and serve its results over HTTP.
Usage:
  parpot serve [options] <package path(s)>
Routes:
  GET /nodesets                the reported groups, as JSON (?limit=n)
  GET /nodesets/{rank}         one group, as JSON
  GET /functions/{name}/graph  the dependence graph of a function, as dot
  GET /calltree                the call tree of the analysis, as dot
  GET /report                  the text report
Examples:
  % parpot serve -config config.yaml -addr localhost:8080 main.go
`

// Flags represents the parsed serve sub-command flags.
type Flags struct {
	tools.CommonFlags
	addr string
}

// NewFlags returns the parsed serve sub-command flags from args.
func NewFlags(args []string) (Flags, error) {
	flags := tools.NewUnparsedCommonFlags("serve")
	addr := flags.FlagSet.String("addr", ":8080", "address the server listens on")
	tools.SetUsage(flags.FlagSet, usage)
	common, err := flags.Parse("serve", args)
	if err != nil {
		return Flags{}, err
	}
	return Flags{CommonFlags: common, addr: *addr}, nil
}

// Run runs the analysis with flags and serves the result until the process is interrupted.
func Run(flags Flags) error {
	a, err := tools.LoadAnalysis(flags.CommonFlags)
	if err != nil {
		return err
	}
	res, err := a.Run()
	if err != nil {
		return err
	}
	app := NewApp(res, parpot.ReportOptionsFromConfig(a.Config), a.State.Resolver)
	srv := &http.Server{
		Addr:         flags.addr,
		Handler:      app.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Infof("Listening on %s, %d groups\n", flags.addr, len(res.NodeSets))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.Logger.Infof("Shutting down...\n")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
