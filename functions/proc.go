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

package functions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/rulego/aggexec/types"
)

// Role identifies the slot a procedure fills in an aggregate definition.
type Role string

const (
	RoleTransition       Role = "transition"
	RoleFinal            Role = "final"
	RoleCombine          Role = "combine"
	RoleSerialize        Role = "serialize"
	RoleDeserialize      Role = "deserialize"
	RoleMovingTransition Role = "moving transition"
	RoleMovingInverse    Role = "moving inverse"
	RoleMovingFinal      Role = "moving final"
)

var (
	// ErrUnderflow is returned by an inverse transition that cannot remove a
	// row from its state. The window evaluator recovers from it by
	// recomputing the frame.
	ErrUnderflow = errors.New("inverse transition underflow")
	// ErrArgType is returned by typed adapters when a value does not have the
	// Go representation the callback was written for.
	ErrArgType = errors.New("unexpected argument representation")
)

// Callable is the uniform invocation form of a procedure. For state
// callbacks args[0] is the transition state.
type Callable func(args []types.Datum) (types.Datum, error)

// Role-specific callback forms handed out by Proc.
type (
	TransitionFunc  func(state types.Datum, args []types.Datum) (types.Datum, error)
	FinalFunc       func(state types.Datum, direct []types.Datum) (types.Datum, error)
	CombineFunc     func(a, b types.Datum) (types.Datum, error)
	SerializeFunc   func(state types.Datum) ([]byte, error)
	DeserializeFunc func(data []byte) (types.Datum, error)
)

// Proc is a resolved procedure: its positional signature plus an
// implementation. Procs are immutable after registration.
type Proc struct {
	Name        string
	ArgTypes    []string
	RetType     string
	Strict      bool
	Variadic    bool
	Description string
	// Source holds the expression body of expr-defined procedures.
	Source string
	call   Callable
}

// NewProc creates a procedure. Argument and return type names are
// canonicalized.
func NewProc(name string, argTypes []string, retType string, strict bool, call Callable) *Proc {
	args := make([]string, len(argTypes))
	for i, a := range argTypes {
		args[i] = types.Normalize(a)
	}
	return &Proc{
		Name:     strings.ToLower(name),
		ArgTypes: args,
		RetType:  types.Normalize(retType),
		Strict:   strict,
		call:     call,
	}
}

// WithVariadic marks the last parameter as repeating.
func (p *Proc) WithVariadic() *Proc {
	p.Variadic = true
	return p
}

// WithDescription sets the human readable description.
func (p *Proc) WithDescription(desc string) *Proc {
	p.Description = desc
	return p
}

// ParamType returns the declared type of the i-th argument, repeating the
// last parameter for variadic procedures. ok is false past the arity.
func (p *Proc) ParamType(i int) (string, bool) {
	n := len(p.ArgTypes)
	switch {
	case i < n:
		return p.ArgTypes[i], true
	case p.Variadic && n > 0:
		return p.ArgTypes[n-1], true
	}
	return "", false
}

// AcceptsArity reports whether the procedure can be called with n arguments.
func (p *Proc) AcceptsArity(n int) bool {
	if p.Variadic {
		return n >= len(p.ArgTypes)-1
	}
	return n == len(p.ArgTypes)
}

// Signature renders name(arg, ...) -> ret.
func (p *Proc) Signature() string {
	args := strings.Join(p.ArgTypes, ", ")
	if p.Variadic {
		args += "..."
	}
	return fmt.Sprintf("%s(%s) -> %s", p.Name, args, p.RetType)
}

func (p *Proc) String() string { return p.Name }

// Call invokes the procedure. NULL handling for strict procedures is the
// caller's responsibility.
func (p *Proc) Call(args []types.Datum) (types.Datum, error) {
	if p.call == nil {
		return nil, fmt.Errorf("function %s has no implementation", p.Name)
	}
	return p.call(args)
}

// Transition returns the procedure as a transition or inverse transition.
func (p *Proc) Transition() TransitionFunc {
	return func(state types.Datum, args []types.Datum) (types.Datum, error) {
		return p.Call(prepend(state, args))
	}
}

// Final returns the procedure as a final function.
func (p *Proc) Final() FinalFunc {
	return func(state types.Datum, direct []types.Datum) (types.Datum, error) {
		return p.Call(prepend(state, direct))
	}
}

// Combine returns the procedure as a combine function.
func (p *Proc) Combine() CombineFunc {
	return func(a, b types.Datum) (types.Datum, error) {
		return p.Call([]types.Datum{a, b})
	}
}

// Serialize returns the procedure as a serialization function.
func (p *Proc) Serialize() SerializeFunc {
	return func(state types.Datum) ([]byte, error) {
		out, err := p.Call([]types.Datum{state})
		if err != nil {
			return nil, err
		}
		data, ok := out.([]byte)
		if !ok {
			return nil, fmt.Errorf("%w: %s returned %T, want bytea", ErrArgType, p.Name, out)
		}
		return data, nil
	}
}

// Deserialize returns the procedure as a deserialization function.
func (p *Proc) Deserialize() DeserializeFunc {
	return func(data []byte) (types.Datum, error) {
		return p.Call([]types.Datum{data})
	}
}

func prepend(first types.Datum, rest []types.Datum) []types.Datum {
	args := make([]types.Datum, 0, len(rest)+1)
	args = append(args, first)
	return append(args, rest...)
}

// as converts a Datum into the Go representation a typed callback expects.
// NULL converts to the zero value.
func as[T any](v types.Datum) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrArgType, v, zero)
	}
	return t, nil
}

// datum converts a typed callback result into a Datum, mapping nil
// pointers, slices and maps to NULL.
func datum[T any](v T, err error) (types.Datum, error) {
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Invalid:
		return nil, nil
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
	}
	return v, nil
}

func arg[T any](args []types.Datum, i int) (T, error) {
	if i >= len(args) {
		var zero T
		return zero, fmt.Errorf("missing argument %d", i+1)
	}
	return as[T](args[i])
}

// Transition adapts a strictly typed single-input transition.
func Transition[S, In any](fn func(state S, in In) (S, error)) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		in, err := arg[In](args, 1)
		if err != nil {
			return nil, err
		}
		out, err := fn(s, in)
		return datum(out, err)
	}
}

// Final adapts a strictly typed final function without direct arguments.
func Final[S, R any](fn func(state S) (R, error)) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		out, err := fn(s)
		return datum(out, err)
	}
}

// Combine adapts a strictly typed combine function.
func Combine[S any](fn func(a, b S) (S, error)) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		a, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[S](args, 1)
		if err != nil {
			return nil, err
		}
		out, err := fn(a, b)
		return datum(out, err)
	}
}

// Serialize adapts a typed state encoder.
func Serialize[S any](fn func(state S) ([]byte, error)) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := arg[S](args, 0)
		if err != nil {
			return nil, err
		}
		return fn(s)
	}
}

// Deserialize adapts a typed state decoder.
func Deserialize[S any](fn func(data []byte) (S, error)) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		data, err := arg[[]byte](args, 0)
		if err != nil {
			return nil, err
		}
		out, err := fn(data)
		return datum(out, err)
	}
}
