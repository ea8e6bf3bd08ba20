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
Package types provides the semantic types referenced by aggregate definitions.

Every transition state type, argument type and result type named in a catalog
entry resolves to a Type. The engine consults a Type for four things only:

• Literal parsing - initial states are persisted as text and parsed on registration
• Ordering - sort operators and ordered-set buffering compare values through it
• Coercion - loosely typed inputs (CLI values, YAML documents) are converted on entry
• Opacity - opaque states must be serialized before crossing a worker boundary

# Builtin Types

	int4, int8        int64
	float8            float64
	numeric           *apd.Decimal
	bool              bool
	text              string (NFC normalized)
	bytea             []byte
	int8[], float8[]  []int64, []float64
	internal          opaque, no literal form
	any               pseudo-type matching every type

A nil Datum is SQL NULL for every type.

# Usage

	reg := types.NewRegistry()
	t, _ := reg.Lookup("bigint")       // int8
	v, _ := t.ParseLiteral("42")       // int64(42)
	c, _ := t.Compare(v, int64(7))     // 1
*/
package types
