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

package window

import (
	"context"
	"errors"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
)

var (
	ErrInvalidFrame = errors.New("invalid window frame")
	ErrNotWindowed  = errors.New("ordered-set aggregates cannot run over window frames")
)

// Stats counts how frames were evaluated.
type Stats struct {
	// Incremental frames were reached by sliding the moving state.
	Incremental int `json:"incremental"`
	// Rebuilds rebuilt the moving state from the frame's rows.
	Rebuilds int `json:"rebuilds"`
	// Underflows were recovered by recomputing the frame sequentially.
	Underflows int `json:"underflows"`
	// Recomputes ran the regular sequential path for aggregates without a
	// moving set.
	Recomputes int `json:"recomputes"`
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger fallbacks are reported to at DEBUG.
func WithLogger(log logger.Logger) Option {
	return func(e *Evaluator) {
		e.log = log.Named("window")
	}
}

// WithoutMoving forces every frame through the sequential path even when
// the aggregate has a moving set.
func WithoutMoving() Option {
	return func(e *Evaluator) {
		e.phase = nil
	}
}

// Evaluator computes an aggregate over a sequence of frames of one
// partition. Frames are evaluated in call order; consecutive frames whose
// head and tail only move forward are reached incrementally.
type Evaluator struct {
	def   *aggregate.Definition
	rows  [][]types.Datum
	phase *state.Phase
	log   logger.Logger

	st    *state.State
	cur   Frame
	stats Stats
}

// NewEvaluator creates an evaluator over the aggregated argument rows of
// one partition.
func NewEvaluator(def *aggregate.Definition, rows [][]types.Datum, opts ...Option) (*Evaluator, error) {
	if def.Kind.Ordered() {
		return nil, ErrNotWindowed
	}
	e := &Evaluator{
		def:   def,
		rows:  rows,
		phase: def.MovingPhase(),
		log:   logger.GetDefault().Named("window"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Incremental reports whether frames can be reached through the moving set.
func (e *Evaluator) Incremental() bool { return e.phase != nil }

// Stats returns the evaluation counters so far.
func (e *Evaluator) Stats() Stats { return e.stats }

// Evaluate returns the aggregate result over f. An inverse transition
// reporting underflow never surfaces: the frame is recomputed sequentially
// and the moving state rebuilt from it.
func (e *Evaluator) Evaluate(ctx context.Context, f Frame) (types.Datum, error) {
	if err := f.check(len(e.rows)); err != nil {
		return nil, err
	}
	if e.phase == nil {
		e.stats.Recomputes++
		return state.Fold(ctx, e.def.Regular(), e.rows[f.Start:f.End], nil)
	}

	if e.st == nil || f.Start < e.cur.Start || f.End < e.cur.End || f.Start > e.cur.End {
		if err := e.rebuild(ctx, f); err != nil {
			return nil, err
		}
		return e.st.Finalize(nil)
	}

	err := e.slide(ctx, f)
	if errors.Is(err, functions.ErrUnderflow) {
		e.stats.Underflows++
		e.log.Debug("%s: inverse underflow sliding %s to %s, recomputing: %v", e.def.ID(), e.cur, f, err)
		out, err := state.Fold(ctx, e.def.Regular(), e.rows[f.Start:f.End], nil)
		if err != nil {
			return nil, err
		}
		if err := e.rebuild(ctx, f); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err != nil {
		e.st = nil
		return nil, err
	}
	e.stats.Incremental++
	return e.st.Finalize(nil)
}

// slide retracts the rows leaving the frame head, oldest first, then
// advances the rows entering at the tail.
func (e *Evaluator) slide(ctx context.Context, f Frame) error {
	for i := e.cur.Start; i < f.Start; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.st.Retract(e.rows[i]); err != nil {
			return err
		}
		e.cur.Start = i + 1
	}
	for i := e.cur.End; i < f.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.st.Advance(e.rows[i]); err != nil {
			return err
		}
		e.cur.End = i + 1
	}
	return nil
}

func (e *Evaluator) rebuild(ctx context.Context, f Frame) error {
	e.stats.Rebuilds++
	st, err := e.phase.Initialize()
	if err != nil {
		e.st = nil
		return err
	}
	for _, row := range e.rows[f.Start:f.End] {
		if err := ctx.Err(); err != nil {
			e.st = nil
			return err
		}
		if err := st.Advance(row); err != nil {
			e.st = nil
			return err
		}
	}
	e.st, e.cur = st, f
	return nil
}

// Evaluate computes def over every frame in order.
func Evaluate(ctx context.Context, def *aggregate.Definition, rows [][]types.Datum, frames []Frame, opts ...Option) ([]types.Datum, Stats, error) {
	e, err := NewEvaluator(def, rows, opts...)
	if err != nil {
		return nil, Stats{}, err
	}
	out := make([]types.Datum, len(frames))
	for i, f := range frames {
		v, err := e.Evaluate(ctx, f)
		if err != nil {
			return out[:i], e.stats, &FrameError{Index: i, Frame: f, Err: err}
		}
		out[i] = v
	}
	return out, e.stats, nil
}

// FrameError locates a failure within a frame sequence.
type FrameError struct {
	Index int
	Frame Frame
	Err   error
}

func (e *FrameError) Error() string {
	return "frame " + e.Frame.String() + ": " + e.Err.Error()
}

func (e *FrameError) Unwrap() error { return e.Err }
