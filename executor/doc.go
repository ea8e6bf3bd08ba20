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
Package executor selects and drives the callback sequence of an aggregation.

Selection is a pure function of the definition and the requested mode; see
Select. Run then executes the chosen strategy:

# Core Features

• Sequential - one state, one transition per row in delivery order, one final call
• Parallel - one state per partition on its own goroutine, partial states transferred
(serialized when the state is opaque) and combined by a single reducer
• Moving window - incremental frames through the window package, recomputation without a moving set
• Ordered set - buffered, sorted input through the orderedset package
• Cancellation checked between callback invocations
• Failures reported with the aggregate, group, frame and run identifier

Usage:

	exec := executor.New(executor.WithWorkers(4), executor.WithCatalog(cat))
	res, err := exec.Run(ctx, executor.Request{
		Aggregate: "count(any)",
		Mode:      executor.ModeParallelizable,
		Rows:      rows,
	})
*/
package executor
