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
	"errors"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/aggexec/types"
)

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func accumulate(t *testing.T, reg *Registry, values ...string) types.Datum {
	t.Helper()
	var state types.Datum
	for _, v := range values {
		var in types.Datum
		if v != "" {
			in = dec(t, v)
		}
		state = call(t, reg, "numeric_avg_accum", state, in)
	}
	return state
}

func TestNumericSumAndAvg(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	state := accumulate(t, reg, "1.50", "2", "", "3.25")

	sum := call(t, reg, "numeric_sum", state).(*apd.Decimal)
	assert.Equal(t, "6.75", sum.Text('f'))

	avg := call(t, reg, "numeric_avg", state).(*apd.Decimal)
	assert.Equal(t, "2.2500000000000000", avg.Text('f'))

	assert.Nil(t, call(t, reg, "numeric_sum", nil))
	assert.Nil(t, call(t, reg, "numeric_avg", call(t, reg, "numeric_avg_accum", nil, nil)))
}

func TestNumericNaN(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	state := call(t, reg, "numeric_avg_accum", nil, &apd.Decimal{Form: apd.NaN})
	state = call(t, reg, "numeric_avg_accum", state, dec(t, "1"))

	sum := call(t, reg, "numeric_sum", state).(*apd.Decimal)
	assert.Equal(t, apd.NaN, sum.Form)

	state = call(t, reg, "numeric_accum_inv", state, &apd.Decimal{Form: apd.NaN})
	sum = call(t, reg, "numeric_sum", state).(*apd.Decimal)
	assert.Equal(t, "1", sum.Text('f'))
}

func TestNumericInverse(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	inv, err := reg.Lookup("numeric_accum_inv")
	require.NoError(t, err)

	state := accumulate(t, reg, "1.5", "2.5", "3")
	state, err = inv.Call([]types.Datum{state, dec(t, "2.5")})
	require.NoError(t, err)
	assert.Equal(t, "4.5", call(t, reg, "numeric_sum", state).(*apd.Decimal).Text('f'))

	// 1.5 is now the only value with scale 1; its removal would change the
	// display scale of the sum
	_, err = inv.Call([]types.Datum{state, dec(t, "1.5")})
	assert.True(t, errors.Is(err, ErrUnderflow))

	// integer-only states never underflow
	state = accumulate(t, reg, "1", "2")
	state, err = inv.Call([]types.Datum{state, dec(t, "1")})
	require.NoError(t, err)
	state, err = inv.Call([]types.Datum{state, dec(t, "2")})
	require.NoError(t, err)
	assert.Nil(t, call(t, reg, "numeric_sum", state))

	_, err = inv.Call([]types.Datum{nil, dec(t, "1")})
	assert.True(t, errors.Is(err, ErrUnderflow))
}

func TestInt8AvgAccum(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	var state types.Datum
	for _, v := range []int64{10, 20, 30} {
		state = call(t, reg, "int8_avg_accum", state, v)
	}
	assert.Equal(t, "60", call(t, reg, "numeric_sum", state).(*apd.Decimal).Text('f'))

	state = call(t, reg, "int8_avg_accum_inv", state, int64(10))
	assert.Equal(t, "25.0000000000000000", call(t, reg, "numeric_avg", state).(*apd.Decimal).Text('f'))
}

func TestNumericSerializationRoundTrip(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	state := accumulate(t, reg, "1.25", "-7", "1000000000000000000000.5")

	data := call(t, reg, "numeric_avg_serialize", state)
	restored := call(t, reg, "numeric_avg_deserialize", data)
	want, got := state.(*numAccum), restored.(*numAccum)
	assert.Equal(t, want.n, got.n)
	assert.Equal(t, want.maxScale, got.maxScale)
	assert.Equal(t, want.maxScaleCount, got.maxScaleCount)
	assert.Equal(t, 0, want.sum.Cmp(&got.sum))

	other := accumulate(t, reg, "3.125")
	a := call(t, reg, "numeric_sum", call(t, reg, "numeric_avg_combine", state, other)).(*apd.Decimal)
	b := call(t, reg, "numeric_sum", call(t, reg, "numeric_avg_combine", restored, other)).(*apd.Decimal)
	assert.Equal(t, a.Text('f'), b.Text('f'))

	p, _ := reg.Get("numeric_avg_deserialize")
	_, err := p.Call([]types.Datum{[]byte{0x80}})
	assert.Error(t, err)
}

func TestNumericCombineAssociative(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	a := accumulate(t, reg, "0.1", "0.2")
	b := accumulate(t, reg, "0.3")
	c := accumulate(t, reg, "1.005", "7")

	left := call(t, reg, "numeric_avg_combine", call(t, reg, "numeric_avg_combine", a, b), c)
	right := call(t, reg, "numeric_avg_combine", a, call(t, reg, "numeric_avg_combine", b, c))

	for _, final := range []string{"numeric_sum", "numeric_avg"} {
		l := call(t, reg, final, left).(*apd.Decimal)
		r := call(t, reg, final, right).(*apd.Decimal)
		assert.Equal(t, l.Text('f'), r.Text('f'), final)
	}
	assert.Equal(t, "8.605", call(t, reg, "numeric_sum", left).(*apd.Decimal).Text('f'))

	// combine leaves its inputs untouched
	assert.Equal(t, "0.3", call(t, reg, "numeric_sum", a).(*apd.Decimal).Text('f'))
	assert.Nil(t, call(t, reg, "numeric_avg_combine", nil, nil))
}

func TestDivideScale(t *testing.T) {
	q, err := divide(apd.New(1, 0), apd.New(3, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, "0.3333333333333333", q.Text('f'))

	q, err = divide(apd.New(2, 0), apd.New(3, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, "0.6666666666666667", q.Text('f'))

	q, err = divide(apd.New(100000000, 0), apd.New(1, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, "100000000.00000000", q.Text('f'))

	_, err = divide(apd.New(1, 0), apd.New(0, 0), 0)
	assert.Error(t, err)
}

func TestNumericVariance(t *testing.T) {
	reg := NewBuiltinRegistry(nil)
	var state types.Datum
	for _, v := range []int64{1, 2, 3, 4} {
		state = call(t, reg, "int8_accum", state, v)
	}

	assert.Equal(t, "1.2500000000000000", call(t, reg, "numeric_var_pop", state).(*apd.Decimal).Text('f'))
	assert.Equal(t, "1.6666666666666667", call(t, reg, "numeric_var_samp", state).(*apd.Decimal).Text('f'))
	pop, err := call(t, reg, "numeric_stddev_pop", state).(*apd.Decimal).Float64()
	require.NoError(t, err)
	assert.InDelta(t, 1.118033988749895, pop, 1e-12)
	samp, err := call(t, reg, "numeric_stddev_samp", state).(*apd.Decimal).Float64()
	require.NoError(t, err)
	assert.InDelta(t, 1.2909944487358056, samp, 1e-12)

	// serialization keeps the sum of squares
	restored := call(t, reg, "numeric_avg_deserialize", call(t, reg, "numeric_avg_serialize", state))
	assert.Equal(t, "1.6666666666666667", call(t, reg, "numeric_var_samp", restored).(*apd.Decimal).Text('f'))

	// partial states combine into the same variance
	var left, right types.Datum
	left = call(t, reg, "int8_accum", call(t, reg, "int8_accum", nil, int64(1)), int64(2))
	right = call(t, reg, "int8_accum", call(t, reg, "int8_accum", nil, int64(3)), int64(4))
	merged := call(t, reg, "numeric_avg_combine", left, right)
	assert.Equal(t, "1.2500000000000000", call(t, reg, "numeric_var_pop", merged).(*apd.Decimal).Text('f'))

	state = call(t, reg, "int8_accum_inv", state, int64(4))
	assert.Equal(t, "0.6666666666666667", call(t, reg, "numeric_var_pop", state).(*apd.Decimal).Text('f'))

	single := call(t, reg, "int8_accum", nil, int64(7))
	assert.Nil(t, call(t, reg, "numeric_var_samp", single))
	assert.Equal(t, "0", call(t, reg, "numeric_var_pop", single).(*apd.Decimal).Text('f'))

	// avg states carry no squares
	p, _ := reg.Get("numeric_var_pop")
	_, err = p.Call([]types.Datum{accumulate(t, reg, "1", "2")})
	assert.Error(t, err)
}
