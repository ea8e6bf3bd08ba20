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

package aggregate

import (
	"errors"
	"fmt"

	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
)

// MovingSet holds the moving-window callbacks of an aggregate.
type MovingSet struct {
	TransFn    *functions.Proc
	InvTransFn *functions.Proc
	// FinalFn is optional; without it the regular final function applies.
	FinalFn    *functions.Proc
	FinalExtra bool
	TransType  types.Type
	TransSpace int
	InitValue  *string
}

// Definition is a resolved aggregate: every name in its Spec bound to a
// procedure, operator or type. Definitions are immutable once validated.
type Definition struct {
	Spec Spec

	ArgTypes      []types.Type
	Kind          Kind
	NumDirectArgs int

	TransFn    *functions.Proc
	FinalFn    *functions.Proc
	CombineFn  *functions.Proc
	SerialFn   *functions.Proc
	DeserialFn *functions.Proc
	FinalExtra bool
	SortOp     *functions.Operator

	TransType  types.Type
	TransSpace int
	InitValue  *string
	ResultType types.Type

	Moving *MovingSet

	regular *state.Phase
	moving  *state.Phase
}

// ID returns the unique identifier name(argtype,...).
func (d *Definition) ID() string { return d.Spec.ID() }

// Name returns the aggregate name.
func (d *Definition) Name() string { return d.Spec.Name }

func (d *Definition) split() int {
	switch {
	case d.NumDirectArgs < 0:
		return 0
	case d.NumDirectArgs > len(d.ArgTypes):
		return len(d.ArgTypes)
	}
	return d.NumDirectArgs
}

// DirectArgTypes returns the types of the direct arguments.
func (d *Definition) DirectArgTypes() []types.Type { return d.ArgTypes[:d.split()] }

// AggregatedArgTypes returns the types of the arguments fed to the transition.
func (d *Definition) AggregatedArgTypes() []types.Type { return d.ArgTypes[d.split():] }

// HasMoving reports whether the moving-window callback set is present.
func (d *Definition) HasMoving() bool { return d.Moving != nil }

// CanCombine reports whether partial states can be merged.
func (d *Definition) CanCombine() bool { return d.CombineFn != nil }

// NeedsSerialization reports whether partial states must travel serialized.
func (d *Definition) NeedsSerialization() bool { return d.SerialFn != nil && d.DeserialFn != nil }

// Regular returns the callbacks of sequential, parallel and ordered-set
// execution.
func (d *Definition) Regular() *state.Phase { return d.regular }

// MovingPhase returns the callbacks of incremental window evaluation, or
// nil without a moving set. A moving set without its own final function
// falls back to the regular one.
func (d *Definition) MovingPhase() *state.Phase { return d.moving }

func (d *Definition) buildPhases() {
	d.regular = &state.Phase{
		Trans:      d.TransFn,
		Final:      d.FinalFn,
		FinalExtra: d.FinalExtra,
		Combine:    d.CombineFn,
		Serial:     d.SerialFn,
		Deserial:   d.DeserialFn,
		Type:       d.TransType,
		InitValue:  d.InitValue,
		ResultType: d.ResultType,
	}
	if d.Moving == nil {
		return
	}
	m := d.Moving
	d.moving = &state.Phase{
		Moving:     true,
		Trans:      m.TransFn,
		Inverse:    m.InvTransFn,
		Final:      m.FinalFn,
		FinalExtra: m.FinalExtra,
		Type:       m.TransType,
		InitValue:  m.InitValue,
		ResultType: d.ResultType,
	}
	if m.FinalFn == nil {
		d.moving.Final, d.moving.FinalExtra = d.FinalFn, d.FinalExtra
	}
}

// resolver binds the names of a Spec. Missing names stay nil so that the
// pairing checks can report them.
type resolver struct {
	reg  *functions.Registry
	errs []error
}

func (r *resolver) typ(field, name string) types.Type {
	if name == "" {
		return nil
	}
	t, err := r.reg.Types().Lookup(name)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", field, err))
	}
	return t
}

func (r *resolver) proc(field, name string) *functions.Proc {
	if name == "" {
		return nil
	}
	p, err := r.reg.Lookup(name)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", field, err))
	}
	return p
}

// Resolve binds the names of spec against reg without validating the
// result. Unknown names are reported as resolution errors wrapping
// types.ErrUnknownType, functions.ErrUnknownFunction or
// functions.ErrUnknownOperator.
func Resolve(spec Spec, reg *functions.Registry) (*Definition, error) {
	if spec.Name == "" {
		return nil, errors.New("aggregate name is required")
	}
	if spec.TransFn == "" {
		return nil, fmt.Errorf("aggregate %s: sfunc is required", spec.ID())
	}
	if spec.TransType == "" {
		return nil, fmt.Errorf("aggregate %s: stype is required", spec.ID())
	}

	r := &resolver{reg: reg}
	spec = spec.Clone()
	d := &Definition{
		Spec:          spec,
		Kind:          spec.Kind.OrDefault(),
		NumDirectArgs: spec.NumDirectArgs,
		FinalExtra:    spec.FinalExtra,
		TransSpace:    spec.TransSpace,
		InitValue:     spec.InitValue,
	}
	d.ArgTypes = make([]types.Type, len(spec.ArgTypes))
	for i, name := range spec.ArgTypes {
		d.ArgTypes[i] = r.typ(fmt.Sprintf("args[%d]", i), name)
	}
	d.TransType = r.typ("stype", spec.TransType)
	d.TransFn = r.proc("sfunc", spec.TransFn)
	d.FinalFn = r.proc("finalfunc", spec.FinalFn)
	d.CombineFn = r.proc("combinefunc", spec.CombineFn)
	d.SerialFn = r.proc("serialfunc", spec.SerialFn)
	d.DeserialFn = r.proc("deserialfunc", spec.DeserialFn)

	if spec.HasMoving() || spec.MFinalFn != "" {
		d.Moving = &MovingSet{
			TransFn:    r.proc("msfunc", spec.MTransFn),
			InvTransFn: r.proc("minvfunc", spec.MInvTransFn),
			FinalFn:    r.proc("mfinalfunc", spec.MFinalFn),
			FinalExtra: spec.MFinalExtra,
			TransType:  r.typ("mstype", spec.MTransType),
			TransSpace: spec.MTransSpace,
			InitValue:  spec.MInitValue,
		}
	}

	switch {
	case spec.ResultType != "":
		d.ResultType = r.typ("returns", spec.ResultType)
	case d.FinalFn != nil:
		d.ResultType = r.typ("finalfunc", d.FinalFn.RetType)
	default:
		d.ResultType = d.TransType
	}

	if spec.SortOp != "" && len(reg.Operators(spec.SortOp)) == 0 {
		r.errs = append(r.errs, fmt.Errorf("sortop: %w: %s", functions.ErrUnknownOperator, spec.SortOp))
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("aggregate %s: %w", spec.ID(), errors.Join(r.errs...))
	}
	if spec.SortOp != "" {
		if agg := d.AggregatedArgTypes(); len(agg) == 1 {
			d.SortOp, _ = reg.LookupOperator(spec.SortOp, agg[0].Name(), agg[0].Name())
		}
	}
	d.buildPhases()
	return d, nil
}

// Validate resolves spec against reg and checks it. It returns the first
// *ValidationError in rule order, or a resolution error.
func Validate(spec Spec, reg *functions.Registry) (*Definition, error) {
	d, err := Resolve(spec, reg)
	if err != nil {
		return nil, err
	}
	if errs := Check(d); len(errs) > 0 {
		return nil, errs[0]
	}
	return d, nil
}
