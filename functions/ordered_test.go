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

package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/aggexec/types"
)

func sortedState(t *testing.T, reg *Registry, transfn string, rows ...[]types.Datum) types.Datum {
	t.Helper()
	var state types.Datum
	for _, row := range rows {
		state = call(t, reg, transfn, append([]types.Datum{state}, row...)...)
	}
	return state
}

func TestPercentileFinals(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	state := sortedState(t, reg, "ordered_set_transition",
		[]types.Datum{1.0}, []types.Datum{nil}, []types.Datum{2.0}, []types.Datum{3.0}, []types.Datum{4.0})

	rows := state.(*SortedRows).Rows
	assert.Len(t, rows, 4, "single-column transition skips NULL")

	assert.Equal(t, 2.0, call(t, reg, "percentile_disc_final", state, 0.5))
	assert.Equal(t, 1.0, call(t, reg, "percentile_disc_final", state, 0.0))
	assert.Equal(t, 4.0, call(t, reg, "percentile_disc_final", state, 1.0))

	assert.InDelta(t, 2.5, call(t, reg, "percentile_cont_float8_final", state, 0.5), 1e-12)
	assert.InDelta(t, 3.25, call(t, reg, "percentile_cont_float8_final", state, 0.75), 1e-12)
	assert.Equal(t, 4.0, call(t, reg, "percentile_cont_float8_final", state, 1.0))

	assert.Nil(t, call(t, reg, "percentile_disc_final", state, nil))
	assert.Nil(t, call(t, reg, "percentile_disc_final", nil, 0.5))

	p, _ := reg.Get("percentile_cont_float8_final")
	_, err := p.Call([]types.Datum{state, 1.5})
	assert.Error(t, err)
}

func TestHypotheticalFinals(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	// sorted input: 1, 2, 2, 3, NULL
	state := sortedState(t, reg, "ordered_set_transition_multi",
		[]types.Datum{int64(1)}, []types.Datum{int64(2)}, []types.Datum{int64(2)},
		[]types.Datum{int64(3)}, []types.Datum{nil})
	require.Len(t, state.(*SortedRows).Rows, 5, "multi-column transition keeps NULL")

	assert.Equal(t, int64(4), call(t, reg, "rank_final", state, int64(3)))
	assert.Equal(t, int64(3), call(t, reg, "dense_rank_final", state, int64(3)))
	assert.Equal(t, int64(2), call(t, reg, "rank_final", state, int64(2)))
	assert.Equal(t, int64(1), call(t, reg, "rank_final", state, int64(0)))
	assert.Equal(t, int64(5), call(t, reg, "rank_final", state, nil))

	assert.InDelta(t, 0.6, call(t, reg, "percent_rank_final", state, int64(3)), 1e-12)
	// rows <= 2 are 1, 2, 2 plus the hypothetical row: 4 of 6
	assert.InDelta(t, 4.0/6.0, call(t, reg, "cume_dist_final", state, int64(2)), 1e-12)

	assert.Equal(t, int64(1), call(t, reg, "rank_final", nil, int64(7)))
	assert.Equal(t, 0.0, call(t, reg, "percent_rank_final", nil, int64(7)))

	p, _ := reg.Get("rank_final")
	_, err := p.Call([]types.Datum{state, int64(1), int64(2)})
	assert.Error(t, err)
}

func TestCompareNullsLast(t *testing.T) {
	c, err := CompareNullsLast(nil, int64(1))
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	c, err = CompareNullsLast(int64(1), nil)
	require.NoError(t, err)
	assert.Equal(t, -1, c)

	c, err = CompareNullsLast(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c)
}
