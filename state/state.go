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

// Package state implements the transition state of one running aggregation:
// seeding, advancing, retracting, combining, finalizing and transferring it.
package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/types"
)

// Phase bundles the callbacks of one execution mode of an aggregate: the
// regular callbacks, or the moving-window ones.
type Phase struct {
	// Moving selects the moving-window roles in error reports.
	Moving     bool
	Trans      *functions.Proc
	Inverse    *functions.Proc
	Final      *functions.Proc
	FinalExtra bool
	Combine    *functions.Proc
	Serial     *functions.Proc
	Deserial   *functions.Proc
	Type       types.Type
	InitValue  *string
	ResultType types.Type
}

// State is a transition state exclusively owned by one aggregation: a
// group, a window or a partial-aggregation partition.
type State struct {
	phase *Phase
	value types.Datum
	// unseeded is set while no initial value exists and no row has been
	// absorbed; the first transition both seeds and transitions.
	unseeded bool
	rows     int64
}

// Partial is a transition state in transferable form. Data is set when the
// phase serializes its state; otherwise Value carries it verbatim.
type Partial struct {
	Data     []byte
	Value    types.Datum
	Null     bool
	Unseeded bool
	Rows     int64
}

// Initialize creates a fresh state from the phase's initial literal, or an
// unseeded state when there is none.
func (p *Phase) Initialize() (*State, error) {
	s := &State{phase: p}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) reset() error {
	s.rows = 0
	if s.phase.InitValue == nil {
		s.value, s.unseeded = nil, true
		return nil
	}
	v, err := s.phase.Type.ParseLiteral(*s.phase.InitValue)
	if err != nil {
		return err
	}
	s.value, s.unseeded = v, false
	return nil
}

// Reset re-initializes the state in place.
func (s *State) Reset() error {
	return s.reset()
}

// Value returns the current transition value. NULL is nil.
func (s *State) Value() types.Datum { return s.value }

// Unseeded reports whether the state still awaits its first input.
func (s *State) Unseeded() bool { return s.unseeded }

// Rows returns the number of rows absorbed by transition calls.
func (s *State) Rows() int64 { return s.rows }

// Phase returns the callbacks this state is driven by.
func (s *State) Phase() *Phase { return s.phase }

func hasNull(args []types.Datum) bool {
	for _, a := range args {
		if a == nil {
			return true
		}
	}
	return false
}

func (p *Phase) role(regular, moving functions.Role) functions.Role {
	if p.Moving {
		return moving
	}
	return regular
}

// Advance folds one input row into the state. A strict transition skips
// rows with a NULL argument, copies the first non-NULL input as the seed of
// an unseeded state and leaves a NULL state NULL.
func (s *State) Advance(args []types.Datum) error {
	trans := s.phase.Trans
	if trans.Strict {
		if hasNull(args) {
			return nil
		}
		if s.unseeded {
			if len(args) > 0 {
				s.value = types.CopyDatum(args[0])
			}
			s.unseeded = false
			s.rows++
			return nil
		}
		if s.value == nil {
			return nil
		}
	}
	out, err := trans.Transition()(s.value, args)
	if err != nil {
		return &CallbackError{Role: s.phase.role(functions.RoleTransition, functions.RoleMovingTransition), Proc: trans.Name, Err: err}
	}
	s.value, s.unseeded = out, false
	s.rows++
	return nil
}

// Retract removes the effect of one previously advanced row through the
// inverse transition. Removing the last absorbed row re-initializes the
// state. An inverse reporting underflow leaves the state unusable and the
// returned error matches functions.ErrUnderflow.
func (s *State) Retract(args []types.Datum) error {
	inv := s.phase.Inverse
	if inv == nil {
		return fmt.Errorf("%w: no inverse transition", functions.ErrUnderflow)
	}
	if inv.Strict && hasNull(args) {
		return nil
	}
	if s.rows <= 1 {
		return s.reset()
	}
	if inv.Strict && s.value == nil {
		return nil
	}
	out, err := inv.Transition()(s.value, args)
	if err != nil {
		return &CallbackError{Role: functions.RoleMovingInverse, Proc: inv.Name, Err: err}
	}
	s.value = out
	s.rows--
	return nil
}

// Finalize produces the aggregate result. Direct arguments are passed to the
// final function only when the phase sets FinalExtra. Without a final
// function the state itself, coerced to the result type, is the result.
func (s *State) Finalize(direct []types.Datum) (types.Datum, error) {
	final := s.phase.Final
	if final == nil {
		if s.value == nil || s.phase.ResultType == nil || types.SameType(s.phase.ResultType, s.phase.Type) {
			return s.value, nil
		}
		out, err := s.phase.ResultType.Coerce(s.value)
		if err != nil {
			return nil, fmt.Errorf("cast state to %s: %w", s.phase.ResultType.Name(), err)
		}
		return out, nil
	}

	var extra []types.Datum
	if s.phase.FinalExtra {
		extra = direct
	}
	if final.Strict && (s.value == nil || hasNull(extra)) {
		return nil, nil
	}
	out, err := final.Final()(s.value, extra)
	if err != nil {
		return nil, &CallbackError{Role: s.phase.role(functions.RoleFinal, functions.RoleMovingFinal), Proc: final.Name, Err: err}
	}
	return out, nil
}

// Combine merges other into s. A strict combine function is not called
// when either side is NULL or unseeded; the other side is kept instead.
func (s *State) Combine(other *State) error {
	comb := s.phase.Combine
	if comb == nil {
		return errors.New("aggregate has no combine function")
	}
	if other.unseeded && other.rows == 0 && other.value == nil {
		return nil
	}
	if comb.Strict {
		if s.value == nil {
			s.value, s.unseeded = types.CopyDatum(other.value), other.unseeded
			s.rows += other.rows
			return nil
		}
		if other.value == nil {
			s.rows += other.rows
			return nil
		}
	}
	out, err := comb.Combine()(s.value, other.value)
	if err != nil {
		return &CallbackError{Role: functions.RoleCombine, Proc: comb.Name, Err: err}
	}
	s.value, s.unseeded = out, false
	s.rows += other.rows
	return nil
}

// Export converts the state into transferable form, serializing it when
// the phase declares a serialization function.
func (s *State) Export() (Partial, error) {
	p := Partial{Null: s.value == nil, Unseeded: s.unseeded, Rows: s.rows}
	if p.Null {
		return p, nil
	}
	if s.phase.Serial == nil {
		p.Value = s.value
		return p, nil
	}
	data, err := s.phase.Serial.Serialize()(s.value)
	if err != nil {
		return Partial{}, &CallbackError{Role: functions.RoleSerialize, Proc: s.phase.Serial.Name, Err: err}
	}
	p.Data = data
	return p, nil
}

// Import rebuilds a state from its transferable form.
func (p *Phase) Import(part Partial) (*State, error) {
	s := &State{phase: p, unseeded: part.Unseeded, rows: part.Rows}
	if part.Null {
		return s, nil
	}
	if p.Deserial == nil {
		s.value = part.Value
		return s, nil
	}
	v, err := p.Deserial.Deserialize()(part.Data)
	if err != nil {
		return nil, &CallbackError{Role: functions.RoleDeserialize, Proc: p.Deserial.Name, Err: err}
	}
	s.value = v
	return s, nil
}

// Fold runs the sequential callback sequence over rows: initialize, one
// advance per row in delivery order, finalize. Cancellation is checked
// between callback invocations.
func Fold(ctx context.Context, p *Phase, rows [][]types.Datum, direct []types.Datum) (types.Datum, error) {
	s, err := p.Initialize()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Advance(row); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Finalize(direct)
}
