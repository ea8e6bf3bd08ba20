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

package types

import (
	"errors"
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name     string
		typ      Type
		literal  string
		expected Datum
	}{
		{"int4", Int4, " 42 ", int64(42)},
		{"int8", Int8, "-9000000000", int64(-9000000000)},
		{"float8", Float8, "1.5", 1.5},
		{"float8 infinity", Float8, "Infinity", math.Inf(1)},
		{"bool t", Bool, "t", true},
		{"bool off", Bool, "off", false},
		{"text", Text, "hello", "hello"},
		{"bytea hex", Bytea, `\x0102`, []byte{1, 2}},
		{"int8 array", Int8Array, "{0,0}", []int64{0, 0}},
		{"int8 empty array", Int8Array, "{}", []int64{}},
		{"float8 array", Float8Array, "{0,0,0}", []float64{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.typ.ParseLiteral(tt.literal)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseLiteral_Errors(t *testing.T) {
	_, err := Int4.ParseLiteral("3000000000")
	assert.Error(t, err)

	_, err = Int8.ParseLiteral("abc")
	assert.Error(t, err)

	_, err = Bool.ParseLiteral("maybe")
	assert.Error(t, err)

	_, err = Int8Array.ParseLiteral("0,0")
	assert.Error(t, err)

	_, err = Int8Array.ParseLiteral("{1,NULL}")
	assert.Error(t, err)

	_, err = Internal.ParseLiteral("anything")
	assert.True(t, errors.Is(err, ErrNoLiteral))
}

func TestParseLiteral_TextNormalization(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9
	v, err := Text.ParseLiteral("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\u00e9", v)
}

func TestNumericLiteral(t *testing.T) {
	v, err := Numeric.ParseLiteral("12.50")
	require.NoError(t, err)
	d, ok := v.(*apd.Decimal)
	require.True(t, ok)
	assert.Equal(t, "12.50", Numeric.Format(d))

	c, err := Numeric.Compare(d, int64(12))
	require.NoError(t, err)
	assert.Equal(t, 1, c)
}

func TestFormatRoundTrip(t *testing.T) {
	for _, typ := range []Type{Int4, Int8, Float8, Numeric, Bool, Text, Bytea, Int8Array, Float8Array} {
		lits := map[string]string{
			NameInt4:      "7",
			NameInt8:      "-3",
			NameFloat8:    "NaN",
			NameNumeric:   "1.25",
			NameBool:      "true",
			NameText:      "abc",
			NameBytea:     `\xff00`,
			NameInt8Arr:   "{1,2,3}",
			NameFloat8Arr: "{0.5,-1}",
		}
		lit := lits[typ.Name()]
		v, err := typ.ParseLiteral(lit)
		require.NoError(t, err, typ.Name())
		assert.Equal(t, lit, typ.Format(v), typ.Name())
	}
	assert.Equal(t, "NULL", Int8.Format(nil))
}

func TestCoerce(t *testing.T) {
	v, err := Int8.Coerce(int32(5))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	v, err = Int8.Coerce("08")
	require.NoError(t, err)
	assert.Equal(t, int64(8), v)

	_, err = Int4.Coerce(int64(math.MaxInt32) + 1)
	assert.Error(t, err)

	v, err = Float8.Coerce(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = Numeric.Coerce(int64(10))
	require.NoError(t, err)
	assert.Equal(t, "10", v.(*apd.Decimal).String())

	v, err = Int8Array.Coerce([]any{1, "2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, v)

	v, err = Int8.Coerce(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Int8.Coerce("x")
	assert.Error(t, err)
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		a, b     Datum
		expected int
	}{
		{int64(1), int64(2), -1},
		{int64(2), 2.0, 0},
		{3.5, int64(3), 1},
		{math.NaN(), math.Inf(1), 1},
		{"a", "b", -1},
		{false, true, -1},
		{[]byte{2}, []byte{1}, 1},
		{apd.New(5, -1), 0.4, 1},
		{int64(1), apd.New(2, 0), -1},
	}
	for _, tt := range tests {
		c, err := CompareValues(tt.a, tt.b)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, c, "%v vs %v", tt.a, tt.b)
	}

	_, err := CompareValues("a", int64(1))
	assert.True(t, errors.Is(err, ErrNotComparable))

	_, err = Internal.Compare(1, 2)
	assert.True(t, errors.Is(err, ErrNotComparable))
}

func TestCopyDatum(t *testing.T) {
	src := []int64{1, 2}
	cp := CopyDatum(src).([]int64)
	cp[0] = 99
	assert.Equal(t, int64(1), src[0])

	d := apd.New(1, 0)
	dc := CopyDatum(d).(*apd.Decimal)
	_, err := apd.BaseContext.Add(dc, dc, apd.New(1, 0))
	require.NoError(t, err)
	assert.Equal(t, "1", d.String())

	assert.Equal(t, "x", CopyDatum("x"))
}

func TestNormalizeAndMatches(t *testing.T) {
	assert.Equal(t, NameInt8, Normalize("BIGINT"))
	assert.Equal(t, NameFloat8, Normalize("double   precision"))
	assert.Equal(t, NameInt8Arr, Normalize("bigint[]"))
	assert.Equal(t, NameAny, Normalize(`"any"`))

	assert.True(t, Matches("any", "text"))
	assert.True(t, Matches("integer", "int4"))
	assert.False(t, Matches("int4", "int8"))
	assert.True(t, SameType(Int8, Int8))
	assert.False(t, SameType(Int8, nil))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()

	typ, err := reg.Lookup("Boolean")
	require.NoError(t, err)
	assert.Equal(t, NameBool, typ.Name())

	_, err = reg.Lookup("point")
	assert.True(t, errors.Is(err, ErrUnknownType))

	err = reg.Register(Int8)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Contains(t, reg.Names(), NameInternal)
	assert.True(t, Internal.Opaque())
	assert.False(t, Int8Array.Opaque())
}
