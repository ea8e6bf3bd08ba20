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
Package window evaluates aggregates over sequences of window frames.

An aggregate with a moving set slides one moving-state across consecutive
frames: rows leaving the head are removed through the inverse transition,
rows entering at the tail are added through the moving transition. Frames
that jump backwards or skip ahead rebuild the moving state from their rows.
Aggregates without a moving set recompute every frame from scratch.

# Core Features

• Incremental evaluation through the moving transition and its inverse
• Underflow recovery - an inverse that cannot undo a row falls back to the sequential path for that frame
• Frame generators - tumbling, sliding and ROWS BETWEEN frames over a partition
• Evaluation statistics for diagnostics

# Underflow

Inverse transitions may refuse to remove a row, e.g. the exact numeric
accumulator when the removed value was the last one carrying the largest
scale. The evaluator then recomputes the frame with the regular callbacks,
rebuilds the moving state from the frame and continues sliding. The
underflow is logged at DEBUG and counted in Stats, never returned.

Usage:

	frames := window.RowsBetween(len(rows), 2, 0)
	results, stats, err := window.Evaluate(ctx, def, rows, frames)
*/
package window
