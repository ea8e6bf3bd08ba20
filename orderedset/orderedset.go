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

package orderedset

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
)

var (
	ErrNotOrdered    = errors.New("aggregate is not an ordered-set aggregate")
	ErrArgumentCount = errors.New("wrong number of arguments")
)

// Buffer collects the aggregated argument rows of one group until the
// group is finalized.
type Buffer struct {
	def  *aggregate.Definition
	keys []types.Type
	rows [][]types.Datum
}

// NewBuffer creates an empty buffer for an ordered-set or hypothetical-set
// aggregate.
func NewBuffer(def *aggregate.Definition) (*Buffer, error) {
	if !def.Kind.Ordered() {
		return nil, fmt.Errorf("%w: %s", ErrNotOrdered, def.ID())
	}
	return &Buffer{def: def, keys: def.AggregatedArgTypes()}, nil
}

// Add buffers one row of aggregated arguments. The row is copied.
func (b *Buffer) Add(row []types.Datum) error {
	if len(row) != len(b.keys) {
		return fmt.Errorf("%w: %s takes %d aggregated arguments, got %d", ErrArgumentCount, b.def.ID(), len(b.keys), len(row))
	}
	copied := make([]types.Datum, len(row))
	for i, v := range row {
		copied[i] = types.CopyDatum(v)
	}
	b.rows = append(b.rows, copied)
	return nil
}

// Len returns the number of buffered rows.
func (b *Buffer) Len() int { return len(b.rows) }

// Rows returns the buffered rows in arrival order. The slice is shared
// with the buffer and must not be modified.
func (b *Buffer) Rows() [][]types.Datum { return b.rows }

// Reset drops the buffered rows.
func (b *Buffer) Reset() { b.rows = b.rows[:0] }

// Finalize sorts the buffered rows, feeds them to the transition in sorted
// order and finalizes with the direct arguments. The buffer keeps its rows,
// so it can be finalized again with other direct arguments.
func (b *Buffer) Finalize(ctx context.Context, direct []types.Datum) (types.Datum, error) {
	if len(direct) != b.def.NumDirectArgs {
		return nil, fmt.Errorf("%w: %s takes %d direct arguments, got %d", ErrArgumentCount, b.def.ID(), b.def.NumDirectArgs, len(direct))
	}
	sorted := slices.Clone(b.rows)
	if err := SortRows(b.keys, sorted); err != nil {
		return nil, err
	}
	return state.Fold(ctx, b.def.Regular(), sorted, direct)
}

// SortRows sorts rows ascending by every column in turn using each column
// type's comparator, NULLs last. The sort is stable.
func SortRows(keys []types.Type, rows [][]types.Datum) error {
	var sortErr error
	slices.SortStableFunc(rows, func(a, b []types.Datum) int {
		c, err := compareRows(keys, a, b)
		if err != nil && sortErr == nil {
			sortErr = err
		}
		return c
	})
	return sortErr
}

func compareRows(keys []types.Type, a, b []types.Datum) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, err := compareNullsLast(keyType(keys, i), a[i], b[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	return 0, nil
}

func keyType(keys []types.Type, i int) types.Type {
	if i < len(keys) {
		return keys[i]
	}
	return types.Any
}

func compareNullsLast(t types.Type, a, b types.Datum) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return 1, nil
	case b == nil:
		return -1, nil
	}
	return t.Compare(a, b)
}

// Evaluate runs the ordered-set protocol over rows in one call.
func Evaluate(ctx context.Context, def *aggregate.Definition, rows [][]types.Datum, direct []types.Datum) (types.Datum, error) {
	b, err := NewBuffer(def)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := b.Add(row); err != nil {
			return nil, err
		}
	}
	return b.Finalize(ctx, direct)
}
