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

package aggexec

import (
	"io"

	"github.com/rulego/aggexec/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger of the engine and every component it creates.
//
// Example:
//
//	engine, _ := aggexec.New(aggexec.WithLogger(logger.NewLogger(logger.DEBUG, os.Stderr)))
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithLogOutput logs at level to output.
func WithLogOutput(output io.Writer, level logger.Level) Option {
	return func(e *Engine) {
		e.log = logger.NewLogger(level, output)
	}
}

// WithDatabase persists user-defined functions and aggregates in the
// SQLite database at path.
func WithDatabase(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithCatalogFile persists user-defined functions and aggregates in the
// YAML catalog file at path.
func WithCatalogFile(path string) Option {
	return func(e *Engine) {
		e.catalogFile = path
	}
}

// WithWorkers sets the number of parallel partitions. The default is the
// number of CPUs.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithoutBuiltins starts from an empty catalog.
func WithoutBuiltins() Option {
	return func(e *Engine) {
		e.builtins = false
	}
}
