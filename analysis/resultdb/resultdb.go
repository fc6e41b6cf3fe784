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

// Package resultdb exports the ranked node sets of the parallelization potential analysis to a SQLite database,
// so that the results of several runs can be queried and compared.
package resultdb

import (
	"fmt"
	"strings"
	"time"

	"github.com/awslabs/ar-go-parpot/analysis/lang"
	"github.com/awslabs/ar-go-parpot/analysis/parpot"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	root      TEXT NOT NULL,
	main_time REAL NOT NULL,
	created   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS node_sets (
	run              INTEGER NOT NULL REFERENCES runs(id),
	rank             INTEGER NOT NULL,
	parent           TEXT NOT NULL,
	parent_file      TEXT,
	true_deps        INTEGER NOT NULL,
	anti_deps        INTEGER NOT NULL,
	output_deps      INTEGER NOT NULL,
	control_deps     INTEGER NOT NULL,
	no_dominate_deps INTEGER NOT NULL,
	cost             REAL NOT NULL,
	score            REAL NOT NULL,
	min_saving       REAL NOT NULL,
	max_saving       REAL NOT NULL,
	min_percent      REAL NOT NULL,
	max_percent      REAL NOT NULL,
	stores           INTEGER NOT NULL,
	PRIMARY KEY (run, rank)
);
CREATE TABLE IF NOT EXISTS members (
	run      INTEGER NOT NULL,
	rank     INTEGER NOT NULL,
	position INTEGER NOT NULL,
	callee   TEXT NOT NULL,
	file     TEXT,
	line     INTEGER,
	time     REAL NOT NULL,
	stores   INTEGER NOT NULL,
	PRIMARY KEY (run, rank, position)
);
CREATE TABLE IF NOT EXISTS dependencies (
	run            INTEGER NOT NULL,
	rank           INTEGER NOT NULL,
	position       INTEGER NOT NULL,
	callee         TEXT NOT NULL,
	own_object     TEXT,
	foreign_object TEXT,
	kinds          TEXT NOT NULL,
	PRIMARY KEY (run, rank, position)
);
CREATE INDEX IF NOT EXISTS node_sets_by_parent ON node_sets (run, parent);
`

// DB is a connection to a result database. It is not safe for concurrent use.
type DB struct {
	conn *sqlite.Conn
}

// Run is a row of the runs table
type Run struct {
	ID       int64
	Root     string
	MainTime float64
	Created  time.Time
}

// Open opens the database at path, creating it and its tables if needed. The path ":memory:" opens a private
// in-memory database.
func Open(path string) (*DB, error) {
	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate, sqlite.OpenReadWrite, sqlite.OpenWAL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the database
func (db *DB) Close() error {
	return db.conn.Close()
}

// WriteRun stores the groups of one analysis of root in a new run and returns the id of the run. All the rows
// are written in one transaction.
func (db *DB) WriteRun(root string, mainTime float64, groups []parpot.GroupReport) (runID int64, err error) {
	defer sqlitex.Save(db.conn)(&err)

	err = sqlitex.Execute(db.conn, `INSERT INTO runs (root, main_time, created) VALUES (?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{root, mainTime, time.Now().UTC().Format(time.RFC3339)}})
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID = db.conn.LastInsertRowID()

	if err = db.insertNodeSets(runID, groups); err != nil {
		return 0, err
	}
	if err = db.insertMembers(runID, groups); err != nil {
		return 0, err
	}
	if err = db.insertDependencies(runID, groups); err != nil {
		return 0, err
	}
	return runID, nil
}

func (db *DB) insertNodeSets(runID int64, groups []parpot.GroupReport) error {
	stmt, err := db.conn.Prepare(`INSERT INTO node_sets (run, rank, parent, parent_file, true_deps, anti_deps,
		output_deps, control_deps, no_dominate_deps, cost, score, min_saving, max_saving, min_percent, max_percent,
		stores) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node set insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, g := range groups {
		stmt.BindInt64(1, runID)
		stmt.BindInt64(2, int64(g.Rank))
		stmt.BindText(3, g.Parent)
		bindTextOrNull(stmt, 4, g.ParentFile)
		stmt.BindInt64(5, int64(g.TrueDeps))
		stmt.BindInt64(6, int64(g.AntiDeps))
		stmt.BindInt64(7, int64(g.OutputDeps))
		stmt.BindInt64(8, int64(g.ControlDeps))
		stmt.BindInt64(9, int64(g.NoDominateDeps))
		stmt.BindFloat(10, g.Cost)
		stmt.BindFloat(11, g.Score)
		stmt.BindFloat(12, g.MinSaving)
		stmt.BindFloat(13, g.MaxSaving)
		stmt.BindFloat(14, g.MinPercent)
		stmt.BindFloat(15, g.MaxPercent)
		stmt.BindInt64(16, int64(g.Stores))
		if _, err := stmt.Step(); err != nil {
			return fmt.Errorf("insert node set %d: %w", g.Rank, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

func (db *DB) insertMembers(runID int64, groups []parpot.GroupReport) error {
	stmt, err := db.conn.Prepare(`INSERT INTO members (run, rank, position, callee, file, line, time, stores)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, g := range groups {
		for i, m := range g.Members {
			stmt.BindInt64(1, runID)
			stmt.BindInt64(2, int64(g.Rank))
			stmt.BindInt64(3, int64(i))
			stmt.BindText(4, m.Callee)
			bindTextOrNull(stmt, 5, m.File)
			bindIntOrNull(stmt, 6, m.Line)
			stmt.BindFloat(7, m.Time)
			stmt.BindInt64(8, int64(m.Stores))
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert member %s of node set %d: %w", m.Callee, g.Rank, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

func (db *DB) insertDependencies(runID int64, groups []parpot.GroupReport) error {
	stmt, err := db.conn.Prepare(`INSERT INTO dependencies (run, rank, position, callee, own_object,
		foreign_object, kinds) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare dependence insert: %w", err)
	}
	defer func() { _ = stmt.Finalize() }()

	for _, g := range groups {
		for i, d := range g.Dependencies {
			stmt.BindInt64(1, runID)
			stmt.BindInt64(2, int64(g.Rank))
			stmt.BindInt64(3, int64(i))
			stmt.BindText(4, d.Callee)
			bindTextOrNull(stmt, 5, d.Own)
			bindTextOrNull(stmt, 6, d.Foreign)
			stmt.BindText(7, strings.Join(d.Kinds, ","))
			if _, err := stmt.Step(); err != nil {
				return fmt.Errorf("insert dependence of node set %d: %w", g.Rank, err)
			}
			_ = stmt.Reset()
		}
	}
	return nil
}

// Runs returns all the runs of the database, the most recent first
func (db *DB) Runs() ([]Run, error) {
	var runs []Run
	err := sqlitex.ExecuteTransient(db.conn, `SELECT id, root, main_time, created FROM runs ORDER BY id DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				created, err := time.Parse(time.RFC3339, stmt.ColumnText(3))
				if err != nil {
					return fmt.Errorf("invalid creation time of run %d: %w", stmt.ColumnInt64(0), err)
				}
				runs = append(runs, Run{
					ID:       stmt.ColumnInt64(0),
					Root:     stmt.ColumnText(1),
					MainTime: stmt.ColumnFloat(2),
					Created:  created,
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return runs, nil
}

// NodeSets reads back the groups of a run, ordered by rank. The NodeSet field of the groups is nil.
func (db *DB) NodeSets(runID int64) ([]parpot.GroupReport, error) {
	var groups []parpot.GroupReport
	byRank := map[int]int{}
	err := sqlitex.Execute(db.conn, `SELECT rank, parent, parent_file, true_deps, anti_deps, output_deps,
		control_deps, no_dominate_deps, cost, score, min_saving, max_saving, min_percent, max_percent, stores
		FROM node_sets WHERE run = ? ORDER BY rank`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				g := parpot.GroupReport{
					Rank:           int(stmt.ColumnInt64(0)),
					Parent:         stmt.ColumnText(1),
					ParentFile:     stmt.ColumnText(2),
					TrueDeps:       int(stmt.ColumnInt64(3)),
					AntiDeps:       int(stmt.ColumnInt64(4)),
					OutputDeps:     int(stmt.ColumnInt64(5)),
					ControlDeps:    int(stmt.ColumnInt64(6)),
					NoDominateDeps: int(stmt.ColumnInt64(7)),
					Cost:           stmt.ColumnFloat(8),
					Score:          stmt.ColumnFloat(9),
					MinSaving:      stmt.ColumnFloat(10),
					MaxSaving:      stmt.ColumnFloat(11),
					MinPercent:     stmt.ColumnFloat(12),
					MaxPercent:     stmt.ColumnFloat(13),
					Stores:         int(stmt.ColumnInt64(14)),
				}
				byRank[g.Rank] = len(groups)
				groups = append(groups, g)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query node sets of run %d: %w", runID, err)
	}

	err = sqlitex.Execute(db.conn, `SELECT rank, callee, file, line, time, stores FROM members WHERE run = ?
		ORDER BY rank, position`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				i, ok := byRank[int(stmt.ColumnInt64(0))]
				if !ok {
					return fmt.Errorf("member of unknown node set %d", stmt.ColumnInt64(0))
				}
				groups[i].Members = append(groups[i].Members, parpot.MemberReport{
					Callee: stmt.ColumnText(1),
					File:   stmt.ColumnText(2),
					Line:   int(stmt.ColumnInt64(3)),
					Time:   stmt.ColumnFloat(4),
					Stores: int(stmt.ColumnInt64(5)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query members of run %d: %w", runID, err)
	}

	err = sqlitex.Execute(db.conn, `SELECT rank, callee, own_object, foreign_object, kinds FROM dependencies
		WHERE run = ? ORDER BY rank, position`,
		&sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				i, ok := byRank[int(stmt.ColumnInt64(0))]
				if !ok {
					return fmt.Errorf("dependence of unknown node set %d", stmt.ColumnInt64(0))
				}
				groups[i].Dependencies = append(groups[i].Dependencies, parpot.DependenceReport{
					Callee:  stmt.ColumnText(1),
					Own:     stmt.ColumnText(2),
					Foreign: stmt.ColumnText(3),
					Kinds:   strings.Split(stmt.ColumnText(4), ","),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("query dependencies of run %d: %w", runID, err)
	}
	return groups, nil
}

// Export opens the database at path, writes the groups of res reported with opts in a new run and closes the
// database
func Export(path string, res *parpot.Result, opts parpot.ReportOptions) (int64, error) {
	db, err := Open(path)
	if err != nil {
		return 0, err
	}
	id, err := db.WriteRun(lang.RuntimeName(res.Root), res.TotalTime, parpot.Groups(res, opts))
	if closeErr := db.Close(); err == nil && closeErr != nil {
		return 0, fmt.Errorf("close database: %w", closeErr)
	}
	return id, err
}

// Helper functions for nullable bindings.

func bindTextOrNull(stmt *sqlite.Stmt, param int, val string) {
	if val == "" {
		stmt.BindNull(param)
	} else {
		stmt.BindText(param, val)
	}
}

func bindIntOrNull(stmt *sqlite.Stmt, param, val int) {
	if val == 0 {
		stmt.BindNull(param)
	} else {
		stmt.BindInt64(param, int64(val))
	}
}
