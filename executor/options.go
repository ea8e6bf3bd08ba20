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
	"runtime"

	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/logger"
)

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Executor) {
		e.log = log.Named("executor")
	}
}

// WithWorkers sets the number of partitions rows are split into for
// parallel runs. Values below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		e.workers = n
	}
}

// WithCatalog resolves Request.Aggregate identifiers through cat.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Executor) {
		e.catalog = cat
	}
}
