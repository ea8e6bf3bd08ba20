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
	"fmt"

	"github.com/rulego/aggexec/types"
)

// Strategy is the btree strategy an operator implements.
type Strategy int

const (
	StrategyLess Strategy = iota + 1
	StrategyLessEqual
	StrategyEqual
	StrategyGreaterEqual
	StrategyGreater
)

var strategyByName = map[string]Strategy{
	"<":  StrategyLess,
	"<=": StrategyLessEqual,
	"=":  StrategyEqual,
	">=": StrategyGreaterEqual,
	">":  StrategyGreater,
}

// Operator is a binary comparison operator over two operand types.
type Operator struct {
	Name     string
	Left     string
	Right    string
	Strategy Strategy
}

// NewOperator creates a comparison operator. The strategy is derived
// from the operator symbol.
func NewOperator(name, left, right string) (*Operator, error) {
	strategy, ok := strategyByName[name]
	if !ok {
		return nil, fmt.Errorf("%s is not a comparison operator", name)
	}
	return &Operator{
		Name:     name,
		Left:     types.Normalize(left),
		Right:    types.Normalize(right),
		Strategy: strategy,
	}, nil
}

// StrictOrdering reports whether the operator is irreflexive, asymmetric
// and transitive, i.e. usable as a MIN/MAX sort operator.
func (o *Operator) StrictOrdering() bool {
	return o.Strategy == StrategyLess || o.Strategy == StrategyGreater
}

func (o *Operator) String() string {
	return operatorKey(o.Name, o.Left, o.Right)
}

// BuiltinOperators returns the comparison operators of the ordered builtin types.
func BuiltinOperators() []*Operator {
	var ops []*Operator
	for _, typ := range []string{types.NameInt4, types.NameInt8, types.NameFloat8, types.NameNumeric, types.NameText, types.NameBool} {
		for _, name := range []string{"<", "<=", "=", ">=", ">"} {
			op, _ := NewOperator(name, typ, typ)
			ops = append(ops, op)
		}
	}
	return ops
}
