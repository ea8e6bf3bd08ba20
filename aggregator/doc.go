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
Package aggregator provides grouped aggregation over loosely typed rows.

A GroupAggregator groups map or struct rows by a list of fields and keeps one
transition state per group and aggregation field, driven by resolved aggregate
definitions from the catalog.

# Core Features

• Group Aggregation - Group data by specified fields and apply any catalog aggregate
• Type Coercion - Field values are coerced to each aggregate's argument types
• Expression Support - An aggregated argument can be computed from the whole row
• Ordered-Set Fields - Rows are buffered per group and sorted at finalization
• Partial Aggregation - Aggregators filled independently merge through combine functions
• Thread Safety - Concurrent aggregation operations with proper synchronization

# Grouping

Group keys are the string forms of the group field values; results report the
original values. Missing aggregated fields are NULL, a missing or NULL group
field rejects the row.

Usage:

	cat, _ := catalog.New()
	avg, _ := cat.Lookup("avg(numeric)")
	agg, _ := aggregator.NewGroupAggregator(
		[]string{"device"},
		[]aggregator.AggregationField{
			{Aggregate: avg, InputFields: []string{"temperature"}, OutputAlias: "temp_avg"},
		},
	)
	agg.Add(map[string]interface{}{"device": "aa", "temperature": 25.5})
	results, _ := agg.GetResults()
*/
package aggregator
