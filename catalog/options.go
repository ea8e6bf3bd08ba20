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

package catalog

import (
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
)

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used for registrations, drops and rejected
// definitions.
func WithLogger(log logger.Logger) Option {
	return func(c *Catalog) {
		c.log = log.Named("catalog")
	}
}

// WithFunctions resolves aggregates against reg instead of a fresh
// builtin registry.
func WithFunctions(reg *functions.Registry) Option {
	return func(c *Catalog) {
		c.funcs = reg
	}
}

// WithPersister stores registrations and drops through p.
func WithPersister(p Persister) Option {
	return func(c *Catalog) {
		c.persister = p
	}
}

// WithDependencyChecker consults fn before dropping an aggregate.
func WithDependencyChecker(fn DependencyFunc) Option {
	return func(c *Catalog) {
		c.inUse = fn
	}
}

// WithoutBuiltins starts with an empty catalog.
func WithoutBuiltins() Option {
	return func(c *Catalog) {
		c.builtins = false
	}
}
