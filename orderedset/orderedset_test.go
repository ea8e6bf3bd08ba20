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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/types"
)

var cat *catalog.Catalog

func init() {
	var err error
	cat, err = catalog.New(catalog.WithLogger(logger.NewDiscardLogger()))
	if err != nil {
		panic(err)
	}
}

func lookup(t *testing.T, id string) *aggregate.Definition {
	t.Helper()
	def, err := cat.Lookup(id)
	require.NoError(t, err)
	return def
}

func column(values ...types.Datum) [][]types.Datum {
	out := make([][]types.Datum, len(values))
	for i, v := range values {
		out[i] = []types.Datum{v}
	}
	return out
}

func TestPercentiles(t *testing.T) {
	ctx := context.Background()
	rows := column(30.0, nil, 10.0, 20.0)

	out, err := Evaluate(ctx, lookup(t, "percentile_disc(float8,any)"), rows, []types.Datum{0.5})
	require.NoError(t, err)
	assert.Equal(t, 20.0, out)

	out, err = Evaluate(ctx, lookup(t, "percentile_cont(float8,float8)"), column(4.0, 1.0, 3.0, 2.0), []types.Datum{0.25})
	require.NoError(t, err)
	assert.InDelta(t, 1.75, out, 1e-12)

	out, err = Evaluate(ctx, lookup(t, "percentile_disc(float8,any)"), nil, []types.Datum{0.5})
	require.NoError(t, err)
	assert.Nil(t, out, "empty group")
}

func TestHypotheticalRanks(t *testing.T) {
	ctx := context.Background()
	rows := column(int64(3), int64(1), nil, int64(2), int64(2))

	b, err := NewBuffer(lookup(t, "rank(any,any)"))
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, b.Add(row))
	}
	assert.Equal(t, 5, b.Len())

	out, err := b.Finalize(ctx, []types.Datum{int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(4), out)

	// finalizing again with another hypothetical row
	out, err = b.Finalize(ctx, []types.Datum{int64(2)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out)

	out, err = Evaluate(ctx, lookup(t, "dense_rank(any,any)"), rows, []types.Datum{int64(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out)

	out, err = Evaluate(ctx, lookup(t, "cume_dist(any,any)"), rows, []types.Datum{int64(2)})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, out, 1e-12)

	b.Reset()
	assert.Zero(t, b.Len())
}

func TestDeliveryOrderDoesNotMatter(t *testing.T) {
	def := lookup(t, "percentile_disc(float8,any)")
	a, err := Evaluate(context.Background(), def, column(5.0, 1.0, 4.0, 2.0, 3.0), []types.Datum{0.4})
	require.NoError(t, err)
	b, err := Evaluate(context.Background(), def, column(1.0, 2.0, 3.0, 4.0, 5.0), []types.Datum{0.4})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 2.0, a)
}

func TestSortRows(t *testing.T) {
	rows := [][]types.Datum{
		{int64(2), "b"},
		{int64(1), "z"},
		{int64(2), "a"},
		{nil, "a"},
		{int64(1), nil},
	}
	require.NoError(t, SortRows([]types.Type{types.Int8, types.Text}, rows))
	assert.Equal(t, [][]types.Datum{
		{int64(1), "z"},
		{int64(1), nil},
		{int64(2), "a"},
		{int64(2), "b"},
		{nil, "a"},
	}, rows)

	err := SortRows([]types.Type{types.Any}, [][]types.Datum{{"x"}, {int64(1)}})
	assert.ErrorIs(t, err, types.ErrNotComparable)
}

func TestErrors(t *testing.T) {
	_, err := NewBuffer(lookup(t, "count(any)"))
	assert.ErrorIs(t, err, ErrNotOrdered)

	b, err := NewBuffer(lookup(t, "percentile_disc(float8,any)"))
	require.NoError(t, err)
	assert.ErrorIs(t, b.Add([]types.Datum{1.0, 2.0}), ErrArgumentCount)

	_, err = b.Finalize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrArgumentCount)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, b.Add([]types.Datum{1.0}))
	_, err = b.Finalize(ctx, []types.Datum{0.5})
	assert.ErrorIs(t, err, context.Canceled)
}
