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

/*
Package aggregate defines aggregate functions and validates them before
registration.

A Spec is the persisted, name-based row of the aggregate catalog. Resolve
binds its names to procedures, operators and types; Validate additionally
runs the consistency rules and returns an immutable Definition.

# Core Features

• Three kinds: normal, ordered-set and hypothetical-set aggregates
• Regular, combine, serialization and moving-window callback slots
• Seven validation rules reported in a fixed order as *ValidationError
• Prebuilt state phases for sequential and moving-window execution

# Validation Rules

Rules run in this order and the first failure is reported:

	INVALID_ARGUMENT_SHAPE         kind and direct argument count disagree
	INCOMPLETE_SERIALIZATION_PAIR  serialfunc without deserialfunc or vice versa
	INCOMPLETE_MOVING_SET          msfunc, minvfunc and mstype not given together
	SIGNATURE_MISMATCH             a callback does not fit the state or argument types
	UNNECESSARY_SERIALIZATION      serialization declared for a by-value state
	INVALID_SORT_OPERATOR          sortop is not a strict ordering of the argument type
	INVALID_INITIAL_LITERAL        initcond or minitcond does not parse

Usage:

	reg := functions.NewBuiltinRegistry(nil)
	def, err := aggregate.Validate(aggregate.Spec{
		Name:      "max",
		ArgTypes:  []string{"int8"},
		TransFn:   "int8larger",
		TransType: "int8",
		SortOp:    ">",
	}, reg)
	if errors.Is(err, aggregate.ErrInvalidSortOperator) {
		// ...
	}
*/
package aggregate
