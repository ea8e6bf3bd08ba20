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
Package ddl reads aggregate definitions written as PostgreSQL DDL.

Statements are parsed with the PostgreSQL parser itself (pg_query), so any
script accepted by PostgreSQL parses the same way here; only the statements
that define aggregates are understood.

# Core Features

• CREATE [OR REPLACE] AGGREGATE in both the current and the old (basetype) syntax
• Ordered-set "(direct ORDER BY aggregated)" argument lists and the hypothetical attribute
• CREATE FUNCTION ... LANGUAGE expr for expression-defined callbacks
• DROP AGGREGATE [IF EXISTS]
• "-" accepted as the absent-callback marker

Usage:

	res, err := ddl.Exec(ctx, cat, `
		CREATE FUNCTION int8_sumsq(int8, int8) RETURNS int8
			LANGUAGE expr STRICT AS 'state + value * value';
		CREATE AGGREGATE sumsq(int8) (sfunc = int8_sumsq, stype = int8, initcond = '0');
	`)
*/
package ddl
