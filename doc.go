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
Package aggexec executes user-definable aggregate functions under the
transition-state contract of pg_aggregate.

An aggregate is a transition function folding rows into a state plus an
optional final function, combine function, serialization pair, moving-window
callbacks and sort operator. aggexec validates such definitions, chooses an
execution strategy for each run and drives the callbacks.

# Core Features

• Transition State Model - Seeding, strictness and NULL handling of the state
• Definition Validator - Seven named consistency rules, all reported at once
• Strategy Selection - Sequential, parallel, moving-window and ordered-set execution
• Parallel Aggregation - Worker partitions combined by one reducer, opaque states serialized
• Moving Windows - Inverse transitions with sequential fallback on underflow
• Ordered-Set Aggregates - Percentiles and hypothetical-set ranks over sorted input
• DDL and Persistence - CREATE AGGREGATE statements, SQLite or YAML catalogs
• Grouped Aggregation - Per-group states over map or struct rows

# Packages

	types       semantic types: literals, comparison, coercion
	functions   callback registry, builtin and expression-defined procedures
	state       transition state of one aggregation
	aggregate   definitions and the validator
	catalog     registry of definitions, YAML persistence
	store       SQLite persistence
	ddl         CREATE AGGREGATE / CREATE FUNCTION / DROP AGGREGATE
	executor    strategy selection and drivers
	window      moving-window protocol
	orderedset  ordered-set and hypothetical-set protocol
	aggregator  grouped aggregation
	condition   FILTER clause conditions

Usage:

	engine, err := aggexec.New()
	if err != nil {
		return err
	}
	value, err := engine.Aggregate(ctx, "avg(float8)", [][]types.Datum{{1.0}, {2.0}, {6.0}})
*/
package aggexec
