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

package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/orderedset"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
	"github.com/rulego/aggexec/window"
)

// Request describes one aggregation.
type Request struct {
	// Definition is the aggregate to run. When nil, Aggregate is looked up
	// in the executor's catalog.
	Definition *aggregate.Definition
	Aggregate  string
	Mode       Mode
	// Rows holds the aggregated arguments of each input row in delivery
	// order. Values are coerced to the aggregate's argument types.
	Rows [][]types.Datum
	// Partitions optionally fixes the parallel split of the input. When
	// set, Rows is ignored by parallel runs; when Rows is unset, the other
	// strategies read the partitions concatenated in order.
	Partitions [][][]types.Datum
	// Direct holds the direct arguments of ordered-set aggregates.
	Direct []types.Datum
	// Frames lists the window frames of windowed runs.
	Frames []window.Frame
	// Group labels the aggregation in errors and logs.
	Group string
}

// Result is the outcome of a run. Windowed runs fill Values, one per
// frame; all other runs fill Value.
type Result struct {
	RunID    uuid.UUID
	Strategy Strategy
	Value    types.Datum
	Values   []types.Datum
	// Partitions is the number of partial states combined by a parallel run.
	Partitions int
	Window     window.Stats
}

// Executor selects and drives the callback sequence of aggregations.
// It holds no per-run state and is safe for concurrent use.
type Executor struct {
	workers int
	catalog *catalog.Catalog
	log     logger.Logger
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		workers: runtime.NumCPU(),
		log:     logger.GetDefault().Named("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newRunID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

func (e *Executor) definition(req *Request) (*aggregate.Definition, error) {
	if req.Definition != nil {
		return req.Definition, nil
	}
	if req.Aggregate == "" {
		return nil, errors.New("request names no aggregate")
	}
	if e.catalog == nil {
		return nil, fmt.Errorf("cannot resolve %s: executor has no catalog", req.Aggregate)
	}
	return e.catalog.Lookup(req.Aggregate)
}

// Run selects the strategy for the request and evaluates it. Callback
// failures are returned as *ExecutionError; a cancelled context returns
// the context's error.
func (e *Executor) Run(ctx context.Context, req Request) (*Result, error) {
	def, err := e.definition(&req)
	if err != nil {
		return nil, err
	}
	strategy, err := Select(def, req.Mode)
	if err != nil {
		return nil, err
	}
	if err := coerceRequest(def, &req); err != nil {
		return nil, fmt.Errorf("%s: %w", def.ID(), err)
	}
	if req.Rows == nil && req.Partitions != nil {
		req.Rows = flatten(req.Partitions)
	}
	res := &Result{RunID: newRunID(), Strategy: strategy}
	e.log.Debug("run %s: %s %s in %s mode", res.RunID, def.ID(), strategy, req.Mode)

	switch strategy {
	case StrategySequential:
		res.Value, err = state.Fold(ctx, def.Regular(), req.Rows, nil)
	case StrategyParallel:
		res.Value, res.Partitions, err = e.parallel(ctx, def, &req)
	case StrategyMovingWindow, StrategyWindowRecompute:
		var opts []window.Option
		opts = append(opts, window.WithLogger(e.log))
		if strategy == StrategyWindowRecompute {
			opts = append(opts, window.WithoutMoving())
		}
		res.Values, res.Window, err = window.Evaluate(ctx, def, req.Rows, req.Frames, opts...)
	case StrategyOrderedSet:
		res.Value, err = orderedset.Evaluate(ctx, def, req.Rows, req.Direct)
	}
	if err != nil {
		return nil, e.wrap(ctx, def, &req, res, err)
	}
	return res, nil
}

func (e *Executor) wrap(ctx context.Context, def *aggregate.Definition, req *Request, res *Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		e.log.Debug("run %s cancelled: %v", res.RunID, ctxErr)
		return ctxErr
	}
	execErr := &ExecutionError{
		Aggregate: def.ID(),
		Group:     req.Group,
		Strategy:  res.Strategy,
		RunID:     res.RunID,
		Err:       err,
	}
	var frameErr *window.FrameError
	if errors.As(err, &frameErr) {
		f := frameErr.Frame
		execErr.Frame = &f
		execErr.Err = frameErr.Err
	}
	e.log.Warn("%v", execErr)
	return execErr
}

// coerceRequest replaces the rows, partitions and direct arguments of req
// with copies coerced to the argument types of def. The caller's slices are
// left untouched.
func coerceRequest(def *aggregate.Definition, req *Request) error {
	argTypes := def.AggregatedArgTypes()
	rows, err := coerceRows(argTypes, req.Rows)
	if err != nil {
		return err
	}
	req.Rows = rows
	if req.Partitions != nil {
		parts := make([][][]types.Datum, len(req.Partitions))
		for i, part := range req.Partitions {
			if parts[i], err = coerceRows(argTypes, part); err != nil {
				return fmt.Errorf("partition %d: %w", i, err)
			}
		}
		req.Partitions = parts
	}
	if req.Direct != nil {
		if req.Direct, err = coerceRow(def.DirectArgTypes(), req.Direct); err != nil {
			return fmt.Errorf("direct arguments: %w", err)
		}
	}
	return nil
}

func coerceRows(argTypes []types.Type, rows [][]types.Datum) ([][]types.Datum, error) {
	if rows == nil {
		return nil, nil
	}
	out := make([][]types.Datum, len(rows))
	for i, row := range rows {
		if len(row) < len(argTypes) {
			return nil, fmt.Errorf("row %d has %d arguments, want %d", i, len(row), len(argTypes))
		}
		c, err := coerceRow(argTypes, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// coerceRow coerces the leading values of row; values past the declared
// types are passed through.
func coerceRow(argTypes []types.Type, row []types.Datum) ([]types.Datum, error) {
	out := make([]types.Datum, len(row))
	for j, v := range row {
		if j >= len(argTypes) {
			out[j] = v
			continue
		}
		c, err := argTypes[j].Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", j+1, err)
		}
		out[j] = c
	}
	return out, nil
}

func flatten(parts [][][]types.Datum) [][]types.Datum {
	rows := make([][]types.Datum, 0)
	for _, part := range parts {
		rows = append(rows, part...)
	}
	return rows
}

// partitions splits rows into at most n contiguous chunks. Combining the
// chunks in order reproduces the delivery order of the input.
func partitions(rows [][]types.Datum, n int) [][][]types.Datum {
	if n > len(rows) {
		n = len(rows)
	}
	if n < 1 {
		n = 1
	}
	parts := make([][][]types.Datum, n)
	size, extra := len(rows)/n, len(rows)%n
	start := 0
	for i := range parts {
		end := start + size
		if i < extra {
			end++
		}
		parts[i] = rows[start:end]
		start = end
	}
	return parts
}

// parallel advances one state per partition concurrently, transfers each
// as a Partial and combines them in partition order in a single reducer
// before finalizing.
func (e *Executor) parallel(ctx context.Context, def *aggregate.Definition, req *Request) (types.Datum, int, error) {
	parts := req.Partitions
	if parts == nil {
		parts = partitions(req.Rows, e.workers)
	}
	phase := def.Regular()
	partials := make([]state.Partial, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	for i, rows := range parts {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error("partition %d worker panic recovered: %v", i, r)
					err = fmt.Errorf("partition %d: panic: %v", i, r)
				}
			}()
			st, err := phase.Initialize()
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := st.Advance(row); err != nil {
					return err
				}
			}
			partials[i], err = st.Export()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	acc, err := phase.Initialize()
	if err != nil {
		return nil, 0, err
	}
	for _, part := range partials {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		st, err := phase.Import(part)
		if err != nil {
			return nil, 0, err
		}
		if err := acc.Combine(st); err != nil {
			return nil, 0, err
		}
	}
	out, err := acc.Finalize(nil)
	return out, len(partials), err
}
