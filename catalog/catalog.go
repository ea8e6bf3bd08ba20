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
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/types"
)

var (
	ErrNotFound  = errors.New("aggregate not found")
	ErrExists    = errors.New("aggregate already exists")
	ErrInUse     = errors.New("aggregate is referenced by stored plans")
	ErrBuiltin   = errors.New("builtin aggregates cannot be dropped")
	ErrAmbiguous = errors.New("aggregate call is ambiguous")
)

// Persister stores user-defined functions and aggregates.
type Persister interface {
	Load(ctx context.Context) ([]functions.ExprSpec, []aggregate.Spec, error)
	SaveFunction(ctx context.Context, spec functions.ExprSpec) error
	SaveAggregate(ctx context.Context, spec aggregate.Spec) error
	DeleteAggregate(ctx context.Context, id string) error
}

// DependencyFunc reports whether stored query plans still reference the
// aggregate with the given identifier.
type DependencyFunc func(id string) (bool, error)

// Catalog is an explicitly owned aggregate registry. Definitions are
// validated atomically on registration and immutable afterwards.
type Catalog struct {
	mu        sync.RWMutex
	funcs     *functions.Registry
	defs      map[string]*aggregate.Definition
	builtin   map[string]bool
	persister Persister
	inUse     DependencyFunc
	log       logger.Logger
	builtins  bool
}

// New creates a catalog. Builtin aggregates are registered unless
// WithoutBuiltins is given.
func New(opts ...Option) (*Catalog, error) {
	c := &Catalog{
		defs:     make(map[string]*aggregate.Definition),
		builtin:  make(map[string]bool),
		log:      logger.GetDefault().Named("catalog"),
		builtins: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.funcs == nil {
		c.funcs = functions.NewBuiltinRegistry(nil)
	}
	if c.builtins {
		for _, spec := range BuiltinSpecs() {
			def, err := aggregate.Validate(spec, c.funcs)
			if err != nil {
				return nil, fmt.Errorf("builtin %s: %w", spec.ID(), err)
			}
			c.defs[def.ID()] = def
			c.builtin[def.ID()] = true
		}
	}
	return c, nil
}

// Functions returns the function registry aggregates are resolved against.
func (c *Catalog) Functions() *functions.Registry { return c.funcs }

// Types returns the type registry.
func (c *Catalog) Types() *types.Registry { return c.funcs.Types() }

// Register validates spec and adds it to the catalog. A rejected or
// unpersisted definition leaves the catalog unchanged.
func (c *Catalog) Register(ctx context.Context, spec aggregate.Spec) (*aggregate.Definition, error) {
	def, err := aggregate.Validate(spec, c.funcs)
	if err != nil {
		c.log.Warn("rejected aggregate %s: %v", spec.ID(), err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.defs[def.ID()]; exists {
		return nil, fmt.Errorf("%w: %s", ErrExists, def.ID())
	}
	if c.persister != nil {
		if err := c.persister.SaveAggregate(ctx, def.Spec); err != nil {
			return nil, fmt.Errorf("persist aggregate %s: %w", def.ID(), err)
		}
	}
	c.defs[def.ID()] = def
	c.log.Info("registered aggregate %s", def.ID())
	return def, nil
}

// Replace validates spec and installs it, overwriting a user-defined
// aggregate with the same identifier. The old definition stays in place
// until the replacement is persisted.
func (c *Catalog) Replace(ctx context.Context, spec aggregate.Spec) (*aggregate.Definition, error) {
	def, err := aggregate.Validate(spec, c.funcs)
	if err != nil {
		c.log.Warn("rejected aggregate %s: %v", spec.ID(), err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.builtin[def.ID()] {
		return nil, fmt.Errorf("%w: %s", ErrBuiltin, def.ID())
	}
	if c.persister != nil {
		if err := c.persister.SaveAggregate(ctx, def.Spec); err != nil {
			return nil, fmt.Errorf("persist aggregate %s: %w", def.ID(), err)
		}
	}
	_, replaced := c.defs[def.ID()]
	c.defs[def.ID()] = def
	if replaced {
		c.log.Info("replaced aggregate %s", def.ID())
	} else {
		c.log.Info("registered aggregate %s", def.ID())
	}
	return def, nil
}

// CreateFunction compiles an expression procedure and registers it for
// use by later aggregate definitions.
func (c *Catalog) CreateFunction(ctx context.Context, spec functions.ExprSpec) (*functions.Proc, error) {
	p, err := c.funcs.NewExprProc(spec)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.funcs.Get(p.Name); exists {
		return nil, fmt.Errorf("function %s already registered", p.Name)
	}
	if c.persister != nil {
		if err := c.persister.SaveFunction(ctx, spec); err != nil {
			return nil, fmt.Errorf("persist function %s: %w", p.Name, err)
		}
	}
	if err := c.funcs.Register(p); err != nil {
		return nil, err
	}
	c.log.Info("registered function %s", p.Signature())
	return p, nil
}

// Lookup returns the definition with the given identifier, e.g. "sum(int8)".
func (c *Catalog) Lookup(id string) (*aggregate.Definition, error) {
	key, err := canonicalID(id)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def, nil
}

// canonicalID normalizes the name and argument types of an identifier.
func canonicalID(id string) (string, error) {
	open := strings.IndexByte(id, '(')
	if open < 0 || !strings.HasSuffix(id, ")") {
		return "", fmt.Errorf("%w: malformed identifier %q", ErrNotFound, id)
	}
	spec := aggregate.Spec{Name: strings.TrimSpace(id[:open])}
	if args := strings.TrimSpace(id[open+1 : len(id)-1]); args != "" {
		spec.ArgTypes = strings.Split(args, ",")
	}
	return spec.ID(), nil
}

// LookupCall resolves an aggregate call by name and actual argument types.
// An exact signature wins; otherwise the single definition whose declared
// types accept the actual ones is returned.
func (c *Catalog) LookupCall(name string, argTypes ...string) (*aggregate.Definition, error) {
	want := aggregate.Spec{Name: name, ArgTypes: argTypes}
	if def, err := c.Lookup(want.ID()); err == nil {
		return def, nil
	}

	var found []*aggregate.Definition
	for _, def := range c.LookupByName(name) {
		if accepts(def.Spec.ArgTypes, argTypes) {
			found = append(found, def)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, want.ID())
	case 1:
		return found[0], nil
	}
	ids := make([]string, len(found))
	for i, def := range found {
		ids[i] = def.ID()
	}
	return nil, fmt.Errorf("%w: %s matches %s", ErrAmbiguous, want.ID(), strings.Join(ids, ", "))
}

func accepts(params, actual []string) bool {
	if len(params) != len(actual) {
		return false
	}
	for i := range params {
		if !types.Matches(params[i], actual[i]) {
			return false
		}
	}
	return true
}

// LookupByName returns every overload of an aggregate, sorted by identifier.
func (c *Catalog) LookupByName(name string) []*aggregate.Definition {
	name = strings.ToLower(strings.TrimSpace(name))

	c.mu.RLock()
	defer c.mu.RUnlock()

	var defs []*aggregate.Definition
	for _, def := range c.defs {
		if strings.ToLower(def.Name()) == name {
			defs = append(defs, def)
		}
	}
	sortDefs(defs)
	return defs
}

// List returns all definitions sorted by identifier.
func (c *Catalog) List() []*aggregate.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]*aggregate.Definition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def)
	}
	sortDefs(defs)
	return defs
}

func sortDefs(defs []*aggregate.Definition) {
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID() < defs[j].ID() })
}

// IsBuiltin reports whether id names a builtin aggregate.
func (c *Catalog) IsBuiltin(id string) bool {
	key, err := canonicalID(id)
	if err != nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.builtin[key]
}

// Drop removes a user-defined aggregate. It fails with ErrInUse while the
// dependency checker reports references to it.
func (c *Catalog) Drop(ctx context.Context, id string) error {
	key, err := canonicalID(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.defs[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.builtin[key] {
		return fmt.Errorf("%w: %s", ErrBuiltin, key)
	}
	if c.inUse != nil {
		used, err := c.inUse(key)
		if err != nil {
			return fmt.Errorf("check dependencies of %s: %w", key, err)
		}
		if used {
			return fmt.Errorf("%w: %s", ErrInUse, key)
		}
	}
	if c.persister != nil {
		if err := c.persister.DeleteAggregate(ctx, key); err != nil {
			return fmt.Errorf("delete aggregate %s: %w", key, err)
		}
	}
	delete(c.defs, key)
	c.log.Info("dropped aggregate %s", key)
	return nil
}

// Load registers the functions and aggregates held by the persister.
// Entries already present are skipped; entries that fail to resolve or
// validate are reported together after the rest have been loaded.
func (c *Catalog) Load(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	fns, specs, err := c.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	var errs []error
	for _, fn := range fns {
		if _, exists := c.funcs.Get(fn.Name); exists {
			continue
		}
		if _, err := c.funcs.RegisterExpr(fn); err != nil {
			c.log.Warn("skipping function %s: %v", fn.Name, err)
			errs = append(errs, err)
		}
	}

	loaded := 0
	for _, spec := range specs {
		def, err := aggregate.Validate(spec, c.funcs)
		if err != nil {
			c.log.Warn("skipping aggregate %s: %v", spec.ID(), err)
			errs = append(errs, err)
			continue
		}
		c.mu.Lock()
		if _, exists := c.defs[def.ID()]; !exists {
			c.defs[def.ID()] = def
			loaded++
		}
		c.mu.Unlock()
	}
	c.log.Info("loaded %d aggregates", loaded)
	return errors.Join(errs...)
}

// Invalidate discards all user-defined aggregates and reloads them from the
// persister, re-resolving them against the current function registry.
func (c *Catalog) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	for id := range c.defs {
		if !c.builtin[id] {
			delete(c.defs, id)
		}
	}
	c.mu.Unlock()
	c.log.Debug("catalog invalidated")
	return c.Load(ctx)
}
