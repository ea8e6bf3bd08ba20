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

package state

import (
	"fmt"

	"github.com/rulego/aggexec/functions"
)

// CallbackError reports a failure raised by an aggregate callback. The
// callback's own error is preserved and reachable through errors.Is/As.
type CallbackError struct {
	Role functions.Role
	Proc string
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s function %s: %v", e.Role, e.Proc, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
