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
	"math"
	"sync"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/executor"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
)

var (
	testCatalog     *catalog.Catalog
	testCatalogOnce sync.Once
)

func def(t *testing.T, id string) *aggregate.Definition {
	t.Helper()
	testCatalogOnce.Do(func() {
		var err error
		testCatalog, err = catalog.New(catalog.WithLogger(logger.NewDiscardLogger()))
		if err != nil {
			panic(err)
		}
	})
	d, err := testCatalog.Lookup(id)
	require.NoError(t, err)
	return d
}

func newAggregator(t *testing.T, groupFields []string, fields ...AggregationField) *GroupAggregator {
	t.Helper()
	agg, err := NewGroupAggregator(groupFields, fields, WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	return agg
}

func decimalText(t *testing.T, v interface{}) string {
	t.Helper()
	d, ok := v.(*apd.Decimal)
	require.True(t, ok, "%T is not numeric", v)
	return d.Text('f')
}

func assertDecimal(t *testing.T, want string, v interface{}) {
	t.Helper()
	d, ok := v.(*apd.Decimal)
	require.True(t, ok, "%T is not numeric", v)
	w, _, err := apd.NewFromString(want)
	require.NoError(t, err)
	assert.Zero(t, w.Cmp(d), "want %s, got %s", want, d.Text('f'))
}

type testData struct {
	Device      string
	Temperature float64
	Humidity    float64
}

func TestGroupAggregator_MultiFieldSum(t *testing.T) {
	agg := newAggregator(t, []string{"Device"},
		AggregationField{Aggregate: def(t, "sum(float8)"), InputFields: []string{"temperature"}, OutputAlias: "temperature_sum"},
		AggregationField{Aggregate: def(t, "sum(float8)"), InputFields: []string{"humidity"}, OutputAlias: "humidity_sum"},
	)

	testData := []map[string]interface{}{
		{"Device": "aa", "temperature": 25.5, "humidity": 60.0},
		{"Device": "aa", "temperature": 26.8, "humidity": 55.0},
		{"Device": "bb", "temperature": 22.3, "humidity": 65.0},
		{"Device": "bb", "temperature": 23.5, "humidity": 70.0},
	}
	for _, d := range testData {
		require.NoError(t, agg.Add(d))
	}

	results, err := agg.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "aa", results[0]["Device"])
	assert.InDelta(t, 52.3, results[0]["temperature_sum"], 1e-9)
	assert.InDelta(t, 115.0, results[0]["humidity_sum"], 1e-9)
	assert.Equal(t, "bb", results[1]["Device"])
	assert.InDelta(t, 45.8, results[1]["temperature_sum"], 1e-9)
	assert.InDelta(t, 135.0, results[1]["humidity_sum"], 1e-9)
}

func TestGroupAggregator_StructRows(t *testing.T) {
	agg := newAggregator(t, []string{"Device"},
		AggregationField{Aggregate: def(t, "max(float8)"), InputFields: []string{"Temperature"}},
		AggregationField{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, OutputAlias: "rows"},
	)
	require.NoError(t, agg.Add(testData{Device: "cc", Temperature: 24.5}))
	require.NoError(t, agg.Add(&testData{Device: "cc", Temperature: 27.8}))

	results, err := agg.GetResults()
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"Device": "cc", "max": 27.8, "rows": int64(2)},
	}, results)
}

func TestGroupAggregator_DistinctKeys(t *testing.T) {
	agg := newAggregator(t, []string{"a", "b"},
		AggregationField{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, OutputAlias: "n"},
	)
	rows := []map[string]interface{}{
		{"a": "x|y", "b": "z"},
		{"a": "x", "b": "y|z"},
		{"a": 1, "b": "k"},
		{"a": "1", "b": "k"},
		{"a": "x|y", "b": "z"},
		{"a": int64(1), "b": "k"},
	}
	for _, row := range rows {
		require.NoError(t, agg.Add(row))
	}
	assert.Equal(t, 4, agg.Len())

	results, err := agg.GetResults()
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"a": "x|y", "b": "z", "n": int64(2)},
		{"a": "x", "b": "y|z", "n": int64(1)},
		{"a": 1, "b": "k", "n": int64(2)},
		{"a": "1", "b": "k", "n": int64(1)},
	}, results)
}

func TestGroupAggregator_CoercionAndNulls(t *testing.T) {
	agg := newAggregator(t, []string{"site", "line"},
		AggregationField{Aggregate: def(t, "avg(numeric)"), InputFields: []string{"reading"}, OutputAlias: "avg"},
		AggregationField{Aggregate: def(t, "count(any)"), InputFields: []string{"reading"}, OutputAlias: "readings"},
		AggregationField{Aggregate: def(t, "sum(int8)"), InputFields: []string{"units"}, OutputAlias: "units"},
	)
	rows := []map[string]interface{}{
		{"site": "north", "line": 1, "reading": "1.5", "units": "2"},
		{"site": "north", "line": 1, "reading": 2, "units": 3.0},
		{"site": "north", "line": 1, "reading": nil, "units": int32(5)},
		{"site": "north", "line": 2, "units": 1},
	}
	for _, r := range rows {
		require.NoError(t, agg.Add(r))
	}
	assert.Equal(t, 2, agg.Len())

	results, err := agg.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0]["line"], "group values keep their type")
	assertDecimal(t, "1.75", results[0]["avg"])
	assert.Equal(t, int64(2), results[0]["readings"])
	assertDecimal(t, "10", results[0]["units"])

	assert.Nil(t, results[1]["avg"], "avg over no rows is NULL")
	assert.Equal(t, int64(0), results[1]["readings"])
	assertDecimal(t, "1", results[1]["units"])

	err = agg.Add(map[string]interface{}{"site": "north", "line": 1, "reading": "warm"})
	assert.Error(t, err)
	results, err = agg.GetResults()
	require.NoError(t, err)
	assert.Equal(t, int64(2), results[0]["readings"], "rejected rows leave states unchanged")
}

func TestGroupAggregator_Expression(t *testing.T) {
	agg := newAggregator(t, []string{"device"},
		AggregationField{Aggregate: def(t, "sum(float8)"), Expression: "temperature * 9 / 5 + 32", OutputAlias: "fahrenheit_sum"},
		AggregationField{Aggregate: def(t, "bool_and(bool)"), Expression: "temperature < 30", OutputAlias: "all_cool"},
	)
	require.NoError(t, agg.Add(map[string]interface{}{"device": "aa", "temperature": 10.0}))
	require.NoError(t, agg.Add(map[string]interface{}{"device": "aa", "temperature": 35.0}))

	results, err := agg.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 145.0, results[0]["fahrenheit_sum"], 1e-9)
	assert.Equal(t, false, results[0]["all_cool"])
}

func TestGroupAggregator_OrderedSet(t *testing.T) {
	agg := newAggregator(t, []string{"device"},
		AggregationField{Aggregate: def(t, "percentile_disc(float8,any)"), InputFields: []string{"latency"}, Direct: []types.Datum{0.5}, OutputAlias: "p50"},
		AggregationField{Aggregate: def(t, "rank(any,any)"), InputFields: []string{"latency"}, Direct: []types.Datum{25.0}, OutputAlias: "rank_of_25"},
	)
	for _, v := range []float64{40, 10, 30, 20} {
		require.NoError(t, agg.Add(map[string]interface{}{"device": "aa", "latency": v}))
	}

	results, err := agg.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 20.0, results[0]["p50"])
	assert.Equal(t, int64(3), results[0]["rank_of_25"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = agg.Results(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGroupAggregator_Merge(t *testing.T) {
	fields := []AggregationField{
		{Aggregate: def(t, "avg(numeric)"), InputFields: []string{"v"}, OutputAlias: "avg"},
		{Aggregate: def(t, "count(any)"), InputFields: []string{"v"}, OutputAlias: "n"},
		{Aggregate: def(t, "string_agg(text,text)"), InputFields: []string{"tag", "sep"}, OutputAlias: "tags"},
		{Aggregate: def(t, "percentile_cont(float8,float8)"), InputFields: []string{"v"}, Direct: []types.Datum{0.5}, OutputAlias: "median"},
	}
	whole := newAggregator(t, []string{"g"}, fields...)
	left := newAggregator(t, []string{"g"}, fields...)
	right := newAggregator(t, []string{"g"}, fields...)

	rows := []map[string]interface{}{
		{"g": "a", "v": 1, "tag": "x", "sep": ","},
		{"g": "b", "v": 2.5, "tag": "y", "sep": ","},
		{"g": "a", "v": 4, "tag": "z", "sep": ","},
		{"g": "c", "v": 7, "tag": "w", "sep": ","},
		{"g": "a", "v": 10, "tag": "q", "sep": ","},
	}
	for i, r := range rows {
		require.NoError(t, whole.Add(r))
		if i < 2 {
			require.NoError(t, left.Add(r))
		} else {
			require.NoError(t, right.Add(r))
		}
	}
	require.NoError(t, left.Merge(right))

	want, err := whole.GetResults()
	require.NoError(t, err)
	got, err := left.GetResults()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i]["g"], got[i]["g"])
		assert.Equal(t, decimalText(t, want[i]["avg"]), decimalText(t, got[i]["avg"]))
		assert.Equal(t, want[i]["n"], got[i]["n"])
		assert.Equal(t, want[i]["tags"], got[i]["tags"])
		assert.Equal(t, want[i]["median"], got[i]["median"])
	}
	assert.Equal(t, "x,z,q", got[0]["tags"])
	assert.Equal(t, 4.0, got[0]["median"])

	assert.ErrorIs(t, left.Merge(left), ErrNotMergeable)
	other := newAggregator(t, []string{"g"}, AggregationField{Aggregate: def(t, "array_agg(any)"), InputFields: []string{"v"}})
	assert.ErrorIs(t, other.Merge(newAggregator(t, []string{"g"}, AggregationField{Aggregate: def(t, "array_agg(any)"), InputFields: []string{"v"}})), ErrNotMergeable)
	assert.ErrorIs(t, left.Merge(other), ErrNotMergeable)
}

func TestGroupAggregator_CallbackFailure(t *testing.T) {
	big := newAggregator(t, []string{"device"},
		AggregationField{Aggregate: def(t, "sum(int8)"), InputFields: []string{"v"}},
		AggregationField{Aggregate: def(t, "bit_or(int8)"), InputFields: []string{"v"}},
	)
	require.NoError(t, big.Add(map[string]interface{}{"device": "aa", "v": int64(math.MaxInt64)}))
	require.NoError(t, big.Add(map[string]interface{}{"device": "aa", "v": int64(1)}))
	results, err := big.GetResults()
	require.NoError(t, err)
	assertDecimal(t, "9223372036854775808", results[0]["sum"])

	def(t, "count()")
	total, err := testCatalog.Register(context.Background(), aggregate.Spec{
		Name: "total", ArgTypes: []string{"int8"}, TransFn: "int8pl", TransType: "int8",
	})
	if errors.Is(err, catalog.ErrExists) {
		total, err = testCatalog.Lookup("total(int8)")
	}
	require.NoError(t, err)
	count := newAggregator(t, []string{"device"},
		AggregationField{Aggregate: def(t, "max(int8)"), InputFields: []string{"v"}},
		AggregationField{Aggregate: total, InputFields: []string{"v"}},
	)
	require.NoError(t, count.Add(map[string]interface{}{"device": "dd", "v": int64(math.MaxInt64)}))
	err = count.Add(map[string]interface{}{"device": "dd", "v": int64(1)})
	require.Error(t, err)

	var execErr *executor.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "total(int8)", execErr.Aggregate)
	assert.Equal(t, "dd", execErr.Group)
	var cbErr *state.CallbackError
	require.True(t, errors.As(err, &cbErr))
	assert.ErrorIs(t, err, functions.ErrOverflow)
}

func TestGroupAggregator_Errors(t *testing.T) {
	sum := def(t, "sum(float8)")

	_, err := NewGroupAggregator(nil, []AggregationField{{InputFields: []string{"v"}}})
	assert.Error(t, err)
	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: sum, InputFields: []string{"a", "b"}}})
	assert.Error(t, err)
	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: sum, InputFields: []string{CountStar}}})
	assert.Error(t, err)
	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: sum, Expression: "v +"}})
	assert.Error(t, err)
	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: def(t, "string_agg(text,text)"), Expression: "v"}})
	assert.Error(t, err)
	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: def(t, "percentile_disc(float8,any)"), InputFields: []string{"v"}}})
	assert.Error(t, err, "missing direct argument")

	agg := newAggregator(t, []string{"device"}, AggregationField{Aggregate: sum, InputFields: []string{"v"}})
	assert.Error(t, agg.Add(nil))
	assert.Error(t, agg.Add(42))
	assert.Error(t, agg.Add(map[string]interface{}{"v": 1.0}), "missing group field")
	assert.Error(t, agg.Add(map[string]interface{}{"device": nil, "v": 1.0}))

	require.NoError(t, agg.Add(map[string]interface{}{"device": "aa", "v": 1.0}))
	agg.Reset()
	assert.Equal(t, 0, agg.Len())
	results, err := agg.GetResults()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGroupAggregator_NoGroupFields(t *testing.T) {
	agg := newAggregator(t, nil, AggregationField{Aggregate: def(t, "stddev(float8)"), InputFields: []string{"v"}})
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		require.NoError(t, agg.Add(map[string]interface{}{"v": v}))
	}
	results, err := agg.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, math.Sqrt(32.0/7.0), results[0]["stddev"], 1e-12)

	empty, err := NewGroupAggregator(nil, nil)
	require.NoError(t, err)
	results, err = empty.GetResults()
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGroupAggregator_Filter(t *testing.T) {
	agg := newAggregator(t, []string{"device"},
		AggregationField{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, OutputAlias: "total"},
		AggregationField{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, Filter: "status == 'error'", OutputAlias: "errors"},
		AggregationField{Aggregate: def(t, "avg(float8)"), InputFields: []string{"latency"}, Filter: "like_match(path, '/api/%')", OutputAlias: "api_latency"},
	)
	rows := []map[string]interface{}{
		{"device": "aa", "status": "ok", "path": "/api/users", "latency": 10.0},
		{"device": "aa", "status": "error", "path": "/api/orders", "latency": 30.0},
		{"device": "aa", "status": "error", "path": "/health", "latency": 1.0},
		{"device": "bb", "status": "ok", "path": "/health", "latency": 2.0},
	}
	for _, r := range rows {
		require.NoError(t, agg.Add(r))
	}

	results, err := agg.GetResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(3), results[0]["total"])
	assert.Equal(t, int64(2), results[0]["errors"])
	assert.InDelta(t, 20.0, results[0]["api_latency"], 1e-12)
	assert.Equal(t, int64(1), results[1]["total"])
	assert.Equal(t, int64(0), results[1]["errors"])
	assert.Nil(t, results[1]["api_latency"], "no row passed the filter")

	_, err = NewGroupAggregator(nil, []AggregationField{{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, Filter: "status =="}})
	assert.Error(t, err)

	bad := newAggregator(t, nil, AggregationField{Aggregate: def(t, "count()"), InputFields: []string{CountStar}, Filter: "latency"})
	assert.Error(t, bad.Add(map[string]interface{}{"latency": 3.0}), "non-boolean filter")
}
