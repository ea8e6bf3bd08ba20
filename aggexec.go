/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package aggexec

import (
	"context"
	"errors"
	"fmt"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/aggregator"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/ddl"
	"github.com/rulego/aggexec/executor"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/store"
	"github.com/rulego/aggexec/types"
)

// Engine bundles a catalog of aggregate definitions with an executor
// resolving against it.
//
// Example:
//
//	engine, err := aggexec.New(aggexec.WithDatabase("aggregates.db"))
//	if err != nil {
//		return err
//	}
//	defer engine.Close()
//	_, err = engine.Execute(ctx, `CREATE AGGREGATE total(int8) (sfunc = int8pl, stype = int8)`)
//	value, err := engine.Aggregate(ctx, "total(int8)", rows)
type Engine struct {
	catalog  *catalog.Catalog
	executor *executor.Executor
	store    *store.Store
	log      logger.Logger

	// collected from options
	dbPath      string
	catalogFile string
	workers     int
	builtins    bool
}

// New creates an engine. User-defined aggregates persisted by the selected
// database or catalog file are loaded before New returns.
//
// Example:
//
//	// in-memory catalog holding the builtin aggregates
//	engine, _ := aggexec.New()
//
//	// catalog persisted in SQLite
//	engine, _ := aggexec.New(aggexec.WithDatabase("aggregates.db"), aggexec.WithWorkers(8))
func New(opts ...Option) (*Engine, error) {
	e := &Engine{builtins: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.GetDefault()
	}
	if e.dbPath != "" && e.catalogFile != "" {
		return nil, errors.New("a database and a catalog file cannot both back the catalog")
	}

	catOpts := []catalog.Option{catalog.WithLogger(e.log)}
	if !e.builtins {
		catOpts = append(catOpts, catalog.WithoutBuiltins())
	}
	switch {
	case e.dbPath != "":
		st, err := store.Open(e.dbPath)
		if err != nil {
			return nil, err
		}
		e.store = st
		catOpts = append(catOpts, catalog.WithPersister(st))
	case e.catalogFile != "":
		catOpts = append(catOpts, catalog.WithPersister(catalog.NewFilePersister(e.catalogFile)))
	}

	cat, err := catalog.New(catOpts...)
	if err == nil {
		err = cat.Load(context.Background())
	}
	if err != nil {
		e.Close()
		return nil, err
	}
	e.catalog = cat

	execOpts := []executor.Option{executor.WithCatalog(cat), executor.WithLogger(e.log)}
	if e.workers > 0 {
		execOpts = append(execOpts, executor.WithWorkers(e.workers))
	}
	e.executor = executor.New(execOpts...)
	return e, nil
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Executor returns the engine's executor.
func (e *Engine) Executor() *executor.Executor { return e.executor }

// Execute runs CREATE FUNCTION, CREATE AGGREGATE and DROP AGGREGATE
// statements against the catalog.
func (e *Engine) Execute(ctx context.Context, sql string) (*ddl.Result, error) {
	return ddl.Exec(ctx, e.catalog, sql)
}

// Run evaluates a request through the executor.
func (e *Engine) Run(ctx context.Context, req executor.Request) (*executor.Result, error) {
	return e.executor.Run(ctx, req)
}

// Aggregate evaluates the aggregate identified by id sequentially over rows.
// Ordered-set aggregates take their direct arguments from direct.
func (e *Engine) Aggregate(ctx context.Context, id string, rows [][]types.Datum, direct ...types.Datum) (types.Datum, error) {
	res, err := e.executor.Run(ctx, executor.Request{Aggregate: id, Rows: rows, Direct: direct})
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// Field configures one output column of a grouped aggregation by
// aggregate identifier.
type Field struct {
	Aggregate   string
	InputFields []string
	Expression  string
	Filter      string
	Direct      []types.Datum
	Alias       string
}

// GroupBy creates a group aggregator whose fields are resolved against the
// catalog.
//
// Example:
//
//	agg, err := engine.GroupBy([]string{"device"},
//		aggexec.Field{Aggregate: "avg(float8)", InputFields: []string{"temperature"}, Alias: "avg_temp"},
//		aggexec.Field{Aggregate: "count()", InputFields: []string{aggregator.CountStar}, Filter: "temperature > 30", Alias: "hot"},
//	)
func (e *Engine) GroupBy(groupFields []string, fields ...Field) (*aggregator.GroupAggregator, error) {
	aggFields := make([]aggregator.AggregationField, len(fields))
	for i, f := range fields {
		def, err := e.resolve(f.Aggregate)
		if err != nil {
			return nil, err
		}
		aggFields[i] = aggregator.AggregationField{
			Aggregate:   def,
			InputFields: f.InputFields,
			Expression:  f.Expression,
			Filter:      f.Filter,
			Direct:      f.Direct,
			OutputAlias: f.Alias,
		}
	}
	return aggregator.NewGroupAggregator(groupFields, aggFields, aggregator.WithLogger(e.log))
}

func (e *Engine) resolve(id string) (*aggregate.Definition, error) {
	def, err := e.catalog.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", id, err)
	}
	return def, nil
}

// Close releases the database backing the catalog, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	err := e.store.Close()
	e.store = nil
	return err
}
