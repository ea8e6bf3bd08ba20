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
Package condition compiles row conditions for aggregate FILTER clauses.

Conditions are boolean expr-lang expressions over the fields of a row. A row
takes part in a filtered aggregation only when its condition is true; a NULL
result excludes it like false.

# Core Features

• Boolean Expression Evaluation - Compiled once, evaluated per row
• LIKE Pattern Matching - SQL-style pattern matching with % and _ wildcards
• NULL Checking - is_null and is_not_null over missing or NULL fields

# Custom Functions

	like_match(text, pattern) - SQL LIKE operation with % and _ wildcards
	is_null(value)            - Check if value is NULL
	is_not_null(value)        - Check if value is not NULL

Usage:

	cond, err := condition.NewExprCondition("status == 'ok' && like_match(device, 'th-%')")
	if err != nil {
		return err
	}
	ok, err := cond.Evaluate(map[string]interface{}{"status": "ok", "device": "th-01"})
*/
package condition
