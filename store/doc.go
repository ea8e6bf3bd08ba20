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

// Package store persists the aggregate catalog in SQLite.
//
// Each aggregate is one row of the aggregates table, shaped after the
// classic pg_aggregate catalog: callback and type columns hold names and
// are NULL when absent, so "no initial value" and the empty literal stay
// distinct. Expression-defined procedures live in the functions table.
// Rows are returned in insertion order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - busy_timeout=5000: Waits on lock contention
//   - Single connection: SQLite has one writer
package store
