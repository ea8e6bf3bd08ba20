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

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/condition"
	"github.com/rulego/aggexec/executor"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/orderedset"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
)

// CountStar is the input field of zero-argument aggregates such as count(*).
const CountStar = "*"

// ErrNotMergeable is returned by Merge when an aggregate has no combine
// function or the two aggregators are configured differently.
var ErrNotMergeable = errors.New("aggregators cannot be merged")

// Aggregator aggregator interface
type Aggregator interface {
	Add(data interface{}) error
	GetResults() ([]map[string]interface{}, error)
	Reset()
}

// AggregationField defines configuration for a single aggregation field
type AggregationField struct {
	// Aggregate is the resolved definition the field is computed with.
	Aggregate *aggregate.Definition
	// InputFields name the aggregated arguments in input order. Use
	// CountStar for aggregates without arguments.
	InputFields []string
	// Expression optionally computes the single aggregated argument from
	// the whole row instead of reading InputFields.
	Expression string
	// Filter optionally restricts the rows the field aggregates, like a
	// SQL FILTER (WHERE ...) clause.
	Filter string
	// Direct holds the direct arguments of ordered-set aggregates.
	Direct []types.Datum
	// OutputAlias names the result column. Defaults to the aggregate name.
	OutputAlias string
}

// GroupAggregator keeps one transition state per group and aggregation
// field. Rows are folded as they arrive; ordered-set fields buffer their
// rows until GetResults.
type GroupAggregator struct {
	aggregationFields []AggregationField
	groupFields       []string
	programs          []*vm.Program
	filters           []condition.Condition
	groups            map[string]*group
	order             []string
	mu                sync.RWMutex
	log               logger.Logger
}

type group struct {
	keys []interface{}
	// label is the readable group key used in errors.
	label   string
	states  []*state.State
	buffers []*orderedset.Buffer
}

// Option configures a GroupAggregator.
type Option func(*GroupAggregator)

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(ga *GroupAggregator) {
		ga.log = log.Named("aggregator")
	}
}

// NewGroupAggregator creates a new group aggregator
func NewGroupAggregator(groupFields []string, aggregationFields []AggregationField, opts ...Option) (*GroupAggregator, error) {
	ga := &GroupAggregator{
		aggregationFields: make([]AggregationField, len(aggregationFields)),
		groupFields:       groupFields,
		programs:          make([]*vm.Program, len(aggregationFields)),
		filters:           make([]condition.Condition, len(aggregationFields)),
		groups:            make(map[string]*group),
		log:               logger.GetDefault().Named("aggregator"),
	}
	for _, opt := range opts {
		opt(ga)
	}

	for i, field := range aggregationFields {
		if field.Aggregate == nil {
			return nil, fmt.Errorf("aggregation field %d has no aggregate", i)
		}
		def := field.Aggregate
		if field.OutputAlias == "" {
			field.OutputAlias = def.Name()
		}
		want := len(def.AggregatedArgTypes())
		switch {
		case field.Expression != "":
			if want != 1 {
				return nil, fmt.Errorf("%s: an expression supplies one argument, %s takes %d", field.OutputAlias, def.ID(), want)
			}
			program, err := expr.Compile(field.Expression, expr.AllowUndefinedVariables())
			if err != nil {
				return nil, fmt.Errorf("%s: compile %q: %w", field.OutputAlias, field.Expression, err)
			}
			ga.programs[i] = program
		case len(field.InputFields) == 1 && field.InputFields[0] == CountStar:
			if want != 0 {
				return nil, fmt.Errorf("%s: %s requires %d arguments", field.OutputAlias, def.ID(), want)
			}
		case len(field.InputFields) != want:
			return nil, fmt.Errorf("%s: %s takes %d aggregated arguments, got %d fields", field.OutputAlias, def.ID(), want, len(field.InputFields))
		}
		if field.Filter != "" {
			cond, err := condition.NewExprCondition(field.Filter)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field.OutputAlias, err)
			}
			ga.filters[i] = cond
		}
		if def.Kind.Ordered() && len(field.Direct) != len(def.DirectArgTypes()) {
			return nil, fmt.Errorf("%s: %s takes %d direct arguments, got %d", field.OutputAlias, def.ID(), len(def.DirectArgTypes()), len(field.Direct))
		}
		ga.aggregationFields[i] = field
	}
	return ga, nil
}

func (ga *GroupAggregator) newGroup(keys []interface{}, label string) (*group, error) {
	g := &group{
		keys:    keys,
		label:   label,
		states:  make([]*state.State, len(ga.aggregationFields)),
		buffers: make([]*orderedset.Buffer, len(ga.aggregationFields)),
	}
	for i, field := range ga.aggregationFields {
		var err error
		if field.Aggregate.Kind.Ordered() {
			g.buffers[i], err = orderedset.NewBuffer(field.Aggregate)
		} else {
			g.states[i], err = field.Aggregate.Regular().Initialize()
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field.OutputAlias, err)
		}
	}
	return g, nil
}

// fieldValue reads a top-level field of a map or struct row.
func fieldValue(v reflect.Value, field string) (interface{}, bool) {
	var f reflect.Value
	if v.Kind() == reflect.Map {
		f = v.MapIndex(reflect.ValueOf(field))
	} else {
		f = v.FieldByName(field)
	}
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}

// env is the expression environment of a row.
func env(data interface{}, v reflect.Value) interface{} {
	if v.Kind() == reflect.Map {
		return v.Interface()
	}
	return data
}

func rowValue(data interface{}) (reflect.Value, error) {
	if data == nil {
		return reflect.Value{}, fmt.Errorf("data cannot be nil")
	}
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String {
		return v, nil
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("unsupported data type: %T, expected struct or map", data)
	}
	return v, nil
}

// groupKey encodes the group field values as the map key of a group. Each
// value is written as a length-prefixed kind tag and a length-prefixed
// string form, so values containing separators or differing only in kind
// never share a key. label joins the string forms with '|' for errors.
func (ga *GroupAggregator) groupKey(v reflect.Value) (key, label string, keys []interface{}, err error) {
	var b strings.Builder
	labels := make([]string, len(ga.groupFields))
	keys = make([]interface{}, len(ga.groupFields))
	for i, field := range ga.groupFields {
		val, found := fieldValue(v, field)
		if !found {
			return "", "", nil, fmt.Errorf("field %s not found", field)
		}
		if val == nil {
			return "", "", nil, fmt.Errorf("field %s has nil value", field)
		}
		s, err := cast.ToStringE(val)
		if err != nil {
			s = fmt.Sprintf("%v", val)
		}
		tag := kindTag(val)
		fmt.Fprintf(&b, "%d:%s%d:%s", len(tag), tag, len(s), s)
		keys[i], labels[i] = val, s
	}
	return b.String(), strings.Join(labels, "|"), keys, nil
}

// kindTag groups Go kinds that hold the same SQL value: every signed
// integer kind shares a tag, as do unsigned integers and floats.
func kindTag(val interface{}) string {
	switch reflect.ValueOf(val).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return "uint"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "bool"
	}
	return fmt.Sprintf("%T", val)
}

// arguments extracts and coerces the aggregated arguments of field i.
func (ga *GroupAggregator) arguments(i int, data interface{}, v reflect.Value) ([]types.Datum, error) {
	field := ga.aggregationFields[i]
	argTypes := field.Aggregate.AggregatedArgTypes()
	if len(argTypes) == 0 {
		return nil, nil
	}
	args := make([]types.Datum, len(argTypes))
	if program := ga.programs[i]; program != nil {
		out, err := expr.Run(program, env(data, v))
		if err != nil {
			return nil, fmt.Errorf("evaluate %q: %w", field.Expression, err)
		}
		args[0] = out
	} else {
		for j, name := range field.InputFields {
			// missing fields are NULL
			args[j], _ = fieldValue(v, name)
		}
	}
	for j, typ := range argTypes {
		d, err := typ.Coerce(args[j])
		if err != nil {
			return nil, fmt.Errorf("argument %d of %s: %w", j+1, field.Aggregate.ID(), err)
		}
		args[j] = d
	}
	return args, nil
}

func (ga *GroupAggregator) Add(data interface{}) error {
	v, err := rowValue(data)
	if err != nil {
		return err
	}

	ga.mu.Lock()
	defer ga.mu.Unlock()

	key, label, keys, err := ga.groupKey(v)
	if err != nil {
		return err
	}

	// extract every argument before touching the group so that a bad row
	// leaves all states unchanged
	rows := make([][]types.Datum, len(ga.aggregationFields))
	skip := make([]bool, len(ga.aggregationFields))
	for i, field := range ga.aggregationFields {
		if cond := ga.filters[i]; cond != nil {
			pass, err := cond.Evaluate(env(data, v))
			if err != nil {
				return fmt.Errorf("%s: %w", field.OutputAlias, err)
			}
			if skip[i] = !pass; skip[i] {
				continue
			}
		}
		rows[i], err = ga.arguments(i, data, v)
		if err != nil {
			return fmt.Errorf("%s: %w", field.OutputAlias, err)
		}
	}

	g, exists := ga.groups[key]
	if !exists {
		if g, err = ga.newGroup(keys, label); err != nil {
			return err
		}
		ga.groups[key] = g
		ga.order = append(ga.order, key)
	}

	for i, field := range ga.aggregationFields {
		if skip[i] {
			continue
		}
		if b := g.buffers[i]; b != nil {
			err = b.Add(rows[i])
		} else {
			err = g.states[i].Advance(rows[i])
		}
		if err != nil {
			return ga.failure(field, g.label, executor.StrategySequential, err)
		}
	}
	return nil
}

func (ga *GroupAggregator) failure(field AggregationField, label string, strategy executor.Strategy, err error) error {
	execErr := &executor.ExecutionError{
		Aggregate: field.Aggregate.ID(),
		Group:     label,
		Strategy:  strategy,
		Err:       err,
	}
	ga.log.Warn("%v", execErr)
	return execErr
}

// GetResults finalizes every group. Groups are returned in the order they
// were first seen; group fields keep their original values.
func (ga *GroupAggregator) GetResults() ([]map[string]interface{}, error) {
	return ga.Results(context.Background())
}

// Results is GetResults with cancellation of the ordered-set sorts.
func (ga *GroupAggregator) Results(ctx context.Context) ([]map[string]interface{}, error) {
	ga.mu.RLock()
	defer ga.mu.RUnlock()

	if len(ga.aggregationFields) == 0 && len(ga.groupFields) == 0 {
		return []map[string]interface{}{}, nil
	}

	result := make([]map[string]interface{}, 0, len(ga.groups))
	for _, key := range ga.order {
		g := ga.groups[key]
		row := make(map[string]interface{}, len(ga.groupFields)+len(ga.aggregationFields))
		for i, field := range ga.groupFields {
			row[field] = g.keys[i]
		}
		for i, field := range ga.aggregationFields {
			var (
				out types.Datum
				err error
			)
			if b := g.buffers[i]; b != nil {
				out, err = b.Finalize(ctx, field.Direct)
				if err != nil && ctx.Err() != nil {
					return nil, ctx.Err()
				}
			} else {
				out, err = g.states[i].Finalize(nil)
			}
			if err != nil {
				strategy := executor.StrategySequential
				if g.buffers[i] != nil {
					strategy = executor.StrategyOrderedSet
				}
				return nil, ga.failure(field, g.label, strategy, err)
			}
			row[field.OutputAlias] = out
		}
		result = append(result, row)
	}
	return result, nil
}

// Merge combines the groups of other into ga through each aggregate's
// combine function, transferring opaque states through their serialization
// pair. Both aggregators must be built from the same fields. Ordered-set
// fields concatenate their buffered rows.
func (ga *GroupAggregator) Merge(other *GroupAggregator) error {
	if ga == other {
		return fmt.Errorf("%w: cannot merge an aggregator into itself", ErrNotMergeable)
	}
	if len(other.aggregationFields) != len(ga.aggregationFields) || len(other.groupFields) != len(ga.groupFields) {
		return fmt.Errorf("%w: different fields", ErrNotMergeable)
	}
	for i, field := range ga.aggregationFields {
		if other.aggregationFields[i].Aggregate.ID() != field.Aggregate.ID() {
			return fmt.Errorf("%w: field %s is %s, got %s", ErrNotMergeable, field.OutputAlias, field.Aggregate.ID(), other.aggregationFields[i].Aggregate.ID())
		}
		if !field.Aggregate.Kind.Ordered() && !field.Aggregate.CanCombine() {
			return fmt.Errorf("%w: %s has no combine function", ErrNotMergeable, field.Aggregate.ID())
		}
	}

	other.mu.RLock()
	defer other.mu.RUnlock()
	ga.mu.Lock()
	defer ga.mu.Unlock()

	for _, key := range other.order {
		src := other.groups[key]
		dst, exists := ga.groups[key]
		if !exists {
			var err error
			if dst, err = ga.newGroup(src.keys, src.label); err != nil {
				return err
			}
			ga.groups[key] = dst
			ga.order = append(ga.order, key)
		}
		for i, field := range ga.aggregationFields {
			if err := merge(dst, src, i, field); err != nil {
				return ga.failure(field, dst.label, executor.StrategyParallel, err)
			}
		}
	}
	return nil
}

func merge(dst, src *group, i int, field AggregationField) error {
	if b := src.buffers[i]; b != nil {
		for _, row := range b.Rows() {
			if err := dst.buffers[i].Add(row); err != nil {
				return err
			}
		}
		return nil
	}
	part, err := src.states[i].Export()
	if err != nil {
		return err
	}
	st, err := field.Aggregate.Regular().Import(part)
	if err != nil {
		return err
	}
	return dst.states[i].Combine(st)
}

// Len returns the number of groups.
func (ga *GroupAggregator) Len() int {
	ga.mu.RLock()
	defer ga.mu.RUnlock()
	return len(ga.groups)
}

func (ga *GroupAggregator) Reset() {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.groups = make(map[string]*group)
	ga.order = nil
}
