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

package condition

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Condition decides whether a row takes part in an aggregation.
type Condition interface {
	Evaluate(env interface{}) (bool, error)
	String() string
}

type ExprCondition struct {
	source  string
	program *vm.Program
}

var options = []expr.Option{
	expr.Function("like_match", func(params ...any) (any, error) {
		if len(params) != 2 {
			return false, fmt.Errorf("like_match function requires 2 parameters")
		}
		if params[0] == nil || params[1] == nil {
			return false, nil
		}
		text, ok1 := params[0].(string)
		pattern, ok2 := params[1].(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("like_match function requires string parameters")
		}
		return MatchLike(text, pattern), nil
	}),
	expr.Function("is_null", func(params ...any) (any, error) {
		if len(params) != 1 {
			return false, fmt.Errorf("is_null function requires 1 parameter")
		}
		return params[0] == nil, nil
	}),
	expr.Function("is_not_null", func(params ...any) (any, error) {
		if len(params) != 1 {
			return false, fmt.Errorf("is_not_null function requires 1 parameter")
		}
		return params[0] != nil, nil
	}),
	expr.AllowUndefinedVariables(),
}

// NewExprCondition compiles a boolean expression over the fields of a row.
func NewExprCondition(expression string) (*ExprCondition, error) {
	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("compile condition %q: %w", expression, err)
	}
	return &ExprCondition{source: expression, program: program}, nil
}

// Evaluate runs the condition against env. A NULL result counts as false,
// as in a SQL FILTER clause; any other non-boolean result is an error.
func (ec *ExprCondition) Evaluate(env interface{}) (bool, error) {
	result, err := expr.Run(ec.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", ec.source, err)
	}
	switch v := result.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	}
	return false, fmt.Errorf("condition %q returned %T, not bool", ec.source, result)
}

func (ec *ExprCondition) String() string { return ec.source }

// MatchLike reports whether text matches a SQL LIKE pattern, where %
// matches any sequence of characters and _ exactly one.
func MatchLike(text, pattern string) bool {
	t, p := []rune(text), []rune(pattern)
	// star/mark remember the last % for backtracking
	ti, pi, star, mark := 0, 0, -1, 0
	for ti < len(t) {
		switch {
		case pi < len(p) && (p[pi] == '_' || p[pi] == t[ti]):
			ti++
			pi++
		case pi < len(p) && p[pi] == '%':
			star, mark = pi, ti
			pi++
		case star >= 0:
			mark++
			ti, pi = mark, star+1
		default:
			return false
		}
	}
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}
