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
Package functions provides the procedures that implement aggregate callbacks.

An aggregate definition refers to its transition, final, combine and
serialization callbacks by name. This package resolves those names to Procs:
a positional signature (argument types, return type, strictness) plus an
implementation. The engine never resolves overloads; names are unique.

# Core Features

• Procedure Registry - explicitly owned, case-insensitive, one per catalog
• Role Views - Transition, Final, Combine, Serialize and Deserialize callback forms
• Typed Adapters - generic wrappers turning typed Go functions into Callables
• Expression Procedures - user callbacks written in expr-lang, compiled once and cached
• Sort Operators - comparison operators with their btree strategy

# Builtin Procedures

	int8inc, int8inc_any, int8dec, int8dec_any, int8pl       count
	int4larger ... textsmaller                               min / max
	int4_sum, int4_avg_accum[_inv], int8_avg, int2int4_sum   sum / avg over int4
	float8pl, float8_accum, float8_combine, float8_*         float8 statistics
	numeric_avg_accum, numeric_accum_inv, numeric_avg_*      exact sum / avg
	booland_statefunc, bool_accum[_inv], bool_alltrue        bool_and / bool_or
	int8and, int8or                                          bit_and / bit_or
	string_agg_*, array_agg_*                                string_agg / array_agg
	ordered_set_transition[_multi], percentile_*, *rank*     ordered-set aggregates

# Expression Procedures

	reg := functions.NewBuiltinRegistry(nil)
	_, err := reg.RegisterExpr(functions.ExprSpec{
		Name:       "int8_sumsq",
		ArgTypes:   []string{"int8", "int8"},
		RetType:    "int8",
		Expression: "state + value * value",
	})

Arguments are bound as a1..aN, args, and for state callbacks as state and
value. The result is coerced to the declared return type.
*/
package functions
