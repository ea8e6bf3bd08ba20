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
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/aggexec/types"
)

// ExprSpec describes a user procedure whose body is an expr-lang expression.
//
// The expression sees its positional arguments as a1..aN and as the list
// args. For state callbacks the first two arguments are also bound to
// state and value:
//
//	state == nil ? value : state + value
type ExprSpec struct {
	Name       string   `yaml:"name"`
	ArgTypes   []string `yaml:"args"`
	RetType    string   `yaml:"returns"`
	Strict     bool     `yaml:"strict"`
	Expression string   `yaml:"expression"`
}

// NewExprProc compiles spec into a procedure without registering it.
func (r *Registry) NewExprProc(spec ExprSpec) (*Proc, error) {
	if spec.Name == "" {
		return nil, errors.New("function name must not be empty")
	}
	ret, err := r.types.Lookup(spec.RetType)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", spec.Name, err)
	}
	program, err := r.program(spec.Expression)
	if err != nil {
		return nil, fmt.Errorf("function %s: %w", spec.Name, err)
	}

	call := func(args []types.Datum) (types.Datum, error) {
		out, err := expr.Run(program, exprEnv(args))
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", spec.Name, err)
		}
		return ret.Coerce(out)
	}
	p := NewProc(spec.Name, spec.ArgTypes, spec.RetType, spec.Strict, call)
	p.Source = spec.Expression
	return p, nil
}

// RegisterExpr compiles and registers an expression procedure.
func (r *Registry) RegisterExpr(spec ExprSpec) (*Proc, error) {
	p, err := r.NewExprProc(spec)
	if err != nil {
		return nil, err
	}
	if err := r.Register(p); err != nil {
		return nil, err
	}
	return p, nil
}

// program returns the compiled form of an expression, compiling at most
// once per distinct source text.
func (r *Registry) program(expression string) (*vm.Program, error) {
	if cached, ok := r.programs.Get(expression); ok {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.Env(exprEnv(nil)), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	r.programs.Add(expression, program)
	return program, nil
}

func exprEnv(args []types.Datum) map[string]any {
	list := make([]any, len(args))
	copy(list, args)
	env := map[string]any{
		"args":  list,
		"state": nil,
		"value": nil,
	}
	if len(args) > 0 {
		env["state"] = args[0]
	}
	if len(args) > 1 {
		env["value"] = args[1]
	}
	for i, a := range args {
		env["a"+strconv.Itoa(i+1)] = a
	}
	return env
}
