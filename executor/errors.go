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

package executor

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rulego/aggexec/window"
)

// ExecutionError reports a failed aggregation together with the aggregate,
// group and frame it was computing. Err is the underlying failure, usually
// a *state.CallbackError carrying the callback's own error.
type ExecutionError struct {
	Aggregate string
	Group     string
	Strategy  Strategy
	// Frame is set for windowed runs.
	Frame *window.Frame
	RunID uuid.UUID
	Err   error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "aggregate %s", e.Aggregate)
	if e.Group != "" {
		fmt.Fprintf(&b, " group %q", e.Group)
	}
	if e.Frame != nil {
		fmt.Fprintf(&b, " frame %s", e.Frame)
	}
	if e.RunID == uuid.Nil {
		fmt.Fprintf(&b, " (%s): %v", e.Strategy, e.Err)
	} else {
		fmt.Fprintf(&b, " (%s run %s): %v", e.Strategy, e.RunID, e.Err)
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error { return e.Err }
