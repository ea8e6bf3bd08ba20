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

package executor

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
	"github.com/rulego/aggexec/state"
	"github.com/rulego/aggexec/types"
	"github.com/rulego/aggexec/window"
)

func newCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(catalog.WithLogger(logger.NewDiscardLogger()))
	require.NoError(t, err)
	return cat
}

func lookup(t *testing.T, cat *catalog.Catalog, id string) *aggregate.Definition {
	t.Helper()
	def, err := cat.Lookup(id)
	require.NoError(t, err)
	return def
}

func register(t *testing.T, cat *catalog.Catalog, spec aggregate.Spec) *aggregate.Definition {
	t.Helper()
	def, err := cat.Register(context.Background(), spec)
	require.NoError(t, err)
	return def
}

func newExecutor(cat *catalog.Catalog, opts ...Option) *Executor {
	return New(append([]Option{WithCatalog(cat), WithLogger(logger.NewDiscardLogger())}, opts...)...)
}

func column(values ...types.Datum) [][]types.Datum {
	out := make([][]types.Datum, len(values))
	for i, v := range values {
		out[i] = []types.Datum{v}
	}
	return out
}

func dec(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestSelect(t *testing.T) {
	cat := newCatalog(t)
	noSerial := register(t, cat, aggregate.Spec{
		Name: "sum_unshared", ArgTypes: []string{"numeric"},
		TransFn: "numeric_avg_accum", FinalFn: "numeric_sum", CombineFn: "numeric_avg_combine",
		TransType: "internal",
	})
	noCombine := register(t, cat, aggregate.Spec{
		Name: "total", ArgTypes: []string{"int8"}, TransFn: "int8pl", TransType: "int8",
	})

	tests := []struct {
		def  *aggregate.Definition
		mode Mode
		want Strategy
		err  bool
	}{
		{lookup(t, cat, "count(any)"), ModeSequential, StrategySequential, false},
		{lookup(t, cat, "count(any)"), ModeParallelizable, StrategyParallel, false},
		{lookup(t, cat, "avg(numeric)"), ModeParallelizable, StrategyParallel, false},
		{noSerial, ModeParallelizable, StrategySequential, false},
		{noCombine, ModeParallelizable, StrategySequential, false},
		{lookup(t, cat, "string_agg(text,text)"), ModeParallelizable, StrategySequential, false},
		{lookup(t, cat, "corr(float8,float8)"), ModeParallelizable, StrategyParallel, false},
		{lookup(t, cat, "stddev_pop(numeric)"), ModeWindowed, StrategyMovingWindow, false},
		{lookup(t, cat, "count(any)"), ModeWindowed, StrategyMovingWindow, false},
		{lookup(t, cat, "sum(float8)"), ModeWindowed, StrategyWindowRecompute, false},
		{lookup(t, cat, "count(any)"), ModeOrderedSet, 0, true},
		{lookup(t, cat, "percentile_disc(float8,any)"), ModeOrderedSet, StrategyOrderedSet, false},
		{lookup(t, cat, "percentile_disc(float8,any)"), ModeSequential, StrategyOrderedSet, false},
		{lookup(t, cat, "rank(any,any)"), ModeParallelizable, StrategyOrderedSet, false},
		{lookup(t, cat, "rank(any,any)"), ModeWindowed, 0, true},
		{lookup(t, cat, "count(any)"), Mode(42), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.def.ID()+"/"+tt.mode.String(), func(t *testing.T) {
			got, err := Select(tt.def, tt.mode)
			if tt.err {
				assert.ErrorIs(t, err, ErrStrategyUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSequential, ModeParallelizable, ModeWindowed, ModeOrderedSet} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	m, err := ParseMode("ordered-set")
	require.NoError(t, err)
	assert.Equal(t, ModeOrderedSet, m)
	_, err = ParseMode("fast")
	assert.Error(t, err)
}

func TestRun_CountOverPartitions(t *testing.T) {
	cat := newCatalog(t)
	parts := make([][][]types.Datum, 4)
	for i := range parts {
		for j := 0; j < 250; j++ {
			parts[i] = append(parts[i], []types.Datum{int64(i*250 + j)})
		}
	}
	res, err := newExecutor(cat).Run(context.Background(), Request{
		Aggregate:  "count(any)",
		Mode:       ModeParallelizable,
		Partitions: parts,
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyParallel, res.Strategy)
	assert.Equal(t, 4, res.Partitions)
	assert.Equal(t, int64(1000), res.Value)
	assert.Equal(t, uuid.Version(7), res.RunID.Version())
}

func TestRun_MaxWithSortOperator(t *testing.T) {
	cat := newCatalog(t)
	def := lookup(t, cat, "max(int8)")
	require.NotNil(t, def.SortOp)
	assert.Equal(t, ">", def.SortOp.Name)

	inputs := []int64{3, 1, 4, 1, 5, 9, 2, 6}
	r := rand.New(rand.NewSource(7))
	exec := newExecutor(cat, WithWorkers(3))
	for i := 0; i < 10; i++ {
		r.Shuffle(len(inputs), func(a, b int) { inputs[a], inputs[b] = inputs[b], inputs[a] })
		rows := make([][]types.Datum, len(inputs))
		for j, v := range inputs {
			rows[j] = []types.Datum{v}
		}
		for _, mode := range []Mode{ModeSequential, ModeParallelizable} {
			res, err := exec.Run(context.Background(), Request{Definition: def, Mode: mode, Rows: rows})
			require.NoError(t, err)
			assert.Equal(t, int64(9), res.Value, "order %v mode %s", inputs, mode)
		}
	}
}

func TestRun_PartitionInvariance(t *testing.T) {
	cat := newCatalog(t)
	r := rand.New(rand.NewSource(42))

	numeric := make([][]types.Datum, 200)
	floats := make([][]types.Datum, 200)
	for i := range numeric {
		d := apd.New(r.Int63n(100000)-50000, -int32(r.Intn(4)))
		numeric[i] = []types.Datum{d}
		floats[i] = []types.Datum{r.NormFloat64() * 100}
	}
	numeric[17][0], floats[23][0] = nil, nil

	for _, id := range []string{"sum(numeric)", "avg(numeric)", "count(any)"} {
		def := lookup(t, cat, id)
		want, err := state.Fold(context.Background(), def.Regular(), numeric, nil)
		require.NoError(t, err)
		for _, workers := range []int{1, 2, 3, 7, 64, 500} {
			res, err := newExecutor(cat, WithWorkers(workers)).Run(context.Background(),
				Request{Definition: def, Mode: ModeParallelizable, Rows: numeric})
			require.NoError(t, err)
			assert.Equal(t, StrategyParallel, res.Strategy)
			sameDatum(t, want, res.Value, id)
		}
	}

	for _, id := range []string{"avg(float8)", "var_samp(float8)", "stddev(float8)"} {
		def := lookup(t, cat, id)
		want, err := state.Fold(context.Background(), def.Regular(), floats, nil)
		require.NoError(t, err)
		for _, workers := range []int{2, 5, 16} {
			res, err := newExecutor(cat, WithWorkers(workers)).Run(context.Background(),
				Request{Definition: def, Mode: ModeParallelizable, Rows: floats})
			require.NoError(t, err)
			assert.InDelta(t, want, res.Value, 1e-6, "%s with %d workers", id, workers)
		}
	}
}

// partial folds rows into a fresh state of def.
func partial(t *testing.T, def *aggregate.Definition, rows [][]types.Datum) *state.State {
	t.Helper()
	st, err := def.Regular().Initialize()
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, st.Advance(row))
	}
	return st
}

func TestCombineAssociativity(t *testing.T) {
	cat := newCatalog(t)
	a := column(dec(t, "1.25"), dec(t, "-3"))
	b := column(dec(t, "10.5"))
	c := column(dec(t, "0.125"), nil, dec(t, "7"))

	for _, id := range []string{"sum(numeric)", "avg(numeric)", "avg(int8)"} {
		def := lookup(t, cat, id)
		if id == "avg(int8)" {
			a, b, c = column(int64(4), int64(-9)), column(int64(11)), column(int64(3), nil, int64(100))
		}

		left := partial(t, def, a)
		require.NoError(t, left.Combine(partial(t, def, b)))
		require.NoError(t, left.Combine(partial(t, def, c)))

		bc := partial(t, def, b)
		require.NoError(t, bc.Combine(partial(t, def, c)))
		right := partial(t, def, a)
		require.NoError(t, right.Combine(bc))

		l, err := left.Finalize(nil)
		require.NoError(t, err)
		r, err := right.Finalize(nil)
		require.NoError(t, err)
		sameDatum(t, l, r, id)
	}
}

func sameDatum(t *testing.T, want, got types.Datum, msg string) {
	t.Helper()
	if s, ok := want.(string); ok {
		assert.Equal(t, s, got, msg)
		return
	}
	c, err := types.CompareValues(want, got)
	require.NoError(t, err)
	assert.Zero(t, c, "%s: want %v, got %v", msg, want, got)
}

func TestSerializationRoundTrip(t *testing.T) {
	cat := newCatalog(t)
	tests := []struct {
		id    string
		rows  [][]types.Datum
		third [][]types.Datum
	}{
		{"avg(numeric)", column(dec(t, "2.50"), nil, dec(t, "1")), column(dec(t, "0.125"))},
		{"sum(int8)", column(int64(5), nil, int64(8)), column(int64(1))},
		{"avg(int8)", column(int64(4), int64(-9)), column(int64(11), nil)},
		{"stddev_pop(numeric)", column(dec(t, "1.5"), dec(t, "2"), nil), column(dec(t, "4.25"))},
	}
	for _, tt := range tests {
		def := lookup(t, cat, tt.id)
		require.True(t, def.NeedsSerialization(), tt.id)

		original := partial(t, def, tt.rows)
		part, err := original.Export()
		require.NoError(t, err)
		require.NotEmpty(t, part.Data)
		restored, err := def.Regular().Import(part)
		require.NoError(t, err)
		assert.Equal(t, original.Rows(), restored.Rows())

		want, err := original.Finalize(nil)
		require.NoError(t, err)
		got, err := restored.Finalize(nil)
		require.NoError(t, err)
		sameDatum(t, want, got, tt.id)

		require.NoError(t, original.Combine(partial(t, def, tt.third)))
		require.NoError(t, restored.Combine(partial(t, def, tt.third)))
		want, err = original.Finalize(nil)
		require.NoError(t, err)
		got, err = restored.Finalize(nil)
		require.NoError(t, err)
		sameDatum(t, want, got, tt.id+" after combine")
	}
}

func TestRun_Windowed(t *testing.T) {
	cat := newCatalog(t)
	rows := column(int64(1), int64(2), nil, int64(4), int64(5))
	frames := window.RowsBetween(len(rows), 1, 0)

	res, err := newExecutor(cat).Run(context.Background(), Request{
		Aggregate: "sum(int4)", Mode: ModeWindowed, Rows: rows, Frames: frames,
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyMovingWindow, res.Strategy)
	assert.Equal(t, []types.Datum{int64(1), int64(3), int64(2), int64(4), int64(9)}, res.Values)
	assert.Equal(t, 4, res.Window.Incremental)

	floats := column(1.0, 2.0, 3.0)
	res, err = newExecutor(cat).Run(context.Background(), Request{
		Aggregate: "sum(float8)", Mode: ModeWindowed, Rows: floats, Frames: window.RowsBetween(3, window.Unbounded, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyWindowRecompute, res.Strategy)
	assert.Equal(t, []types.Datum{1.0, 3.0, 6.0}, res.Values)
	assert.Equal(t, 3, res.Window.Recomputes)
}

func TestRun_OrderedSet(t *testing.T) {
	cat := newCatalog(t)
	res, err := newExecutor(cat).Run(context.Background(), Request{
		Aggregate: "percentile_disc(float8,any)",
		Mode:      ModeOrderedSet,
		Rows:      column(40.0, 10.0, 30.0, 20.0),
		Direct:    []types.Datum{0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyOrderedSet, res.Strategy)
	assert.Equal(t, 20.0, res.Value)

	res, err = newExecutor(cat).Run(context.Background(), Request{
		Aggregate: "percent_rank(any,any)",
		Mode:      ModeParallelizable,
		Rows:      column("b", "a", "d", "c"),
		Direct:    []types.Datum{"c"},
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyOrderedSet, res.Strategy)
	assert.InDelta(t, 0.5, res.Value, 1e-12)
}

func TestRun_CallbackFailure(t *testing.T) {
	cat := newCatalog(t)
	register(t, cat, aggregate.Spec{
		Name: "total", ArgTypes: []string{"int8"}, TransFn: "int8pl", CombineFn: "int8pl", TransType: "int8",
	})
	exec := newExecutor(cat)

	_, err := exec.Run(context.Background(), Request{
		Aggregate: "total(int8)", Group: "region=eu", Rows: column(int64(math.MaxInt64), int64(1)),
	})
	require.Error(t, err)
	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "total(int8)", execErr.Aggregate)
	assert.Equal(t, "region=eu", execErr.Group)
	assert.Nil(t, execErr.Frame)
	var cbErr *state.CallbackError
	require.True(t, errors.As(err, &cbErr))
	assert.Equal(t, functions.RoleTransition, cbErr.Role)
	assert.ErrorIs(t, err, functions.ErrOverflow)
	assert.Contains(t, err.Error(), `group "region=eu"`)

	// the reducer fails while combining
	_, err = exec.Run(context.Background(), Request{
		Aggregate:  "total(int8)",
		Mode:       ModeParallelizable,
		Partitions: [][][]types.Datum{column(int64(math.MaxInt64)), column(int64(1))},
	})
	require.True(t, errors.As(err, &cbErr))
	assert.Equal(t, functions.RoleCombine, cbErr.Role)

	// window failures carry the frame
	_, err = exec.Run(context.Background(), Request{
		Aggregate: "total(int8)", Mode: ModeWindowed,
		Rows:   column(int64(math.MaxInt64), int64(1)),
		Frames: []window.Frame{{Start: 0, End: 1}, {Start: 0, End: 2}},
	})
	require.True(t, errors.As(err, &execErr))
	require.NotNil(t, execErr.Frame)
	assert.Equal(t, window.Frame{Start: 0, End: 2}, *execErr.Frame)
	assert.ErrorIs(t, err, functions.ErrOverflow)
}

func TestRun_OrderSensitive(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t)
	rows := [][]types.Datum{{"a", ","}, {"b", ","}, {"c", ","}, {"d", ","}}

	seq, err := newExecutor(cat).Run(ctx, Request{Aggregate: "string_agg(text,text)", Rows: rows})
	require.NoError(t, err)
	par, err := newExecutor(cat, WithWorkers(2)).Run(ctx, Request{
		Aggregate: "string_agg(text,text)", Mode: ModeParallelizable, Rows: rows,
	})
	require.NoError(t, err)
	assert.Equal(t, StrategySequential, par.Strategy)
	assert.Equal(t, "a,b,c,d", seq.Value)
	assert.Equal(t, seq.Value, par.Value)

	// a combinable aggregate that depends on input order still sees the
	// rows in delivery order across partitions
	for _, fn := range []functions.ExprSpec{
		{Name: "text_append", ArgTypes: []string{"text", "text"}, RetType: "text", Strict: true, Expression: "state + value"},
		{Name: "text_concat", ArgTypes: []string{"text", "text"}, RetType: "text", Strict: true, Expression: "a1 + a2"},
	} {
		_, err := cat.CreateFunction(ctx, fn)
		require.NoError(t, err)
	}
	concat := register(t, cat, aggregate.Spec{
		Name: "concat", ArgTypes: []string{"text"}, TransFn: "text_append", CombineFn: "text_concat", TransType: "text",
	})
	letters := column("a", "b", "c", "d", "e", "f", "g")
	for _, workers := range []int{1, 2, 3, 4, 7, 16} {
		res, err := newExecutor(cat, WithWorkers(workers)).Run(ctx, Request{
			Definition: concat, Mode: ModeParallelizable, Rows: letters,
		})
		require.NoError(t, err)
		assert.Equal(t, StrategyParallel, res.Strategy)
		assert.Equal(t, "abcdefg", res.Value, "%d workers", workers)
	}
}

func TestPartitions(t *testing.T) {
	rows := column(int64(1), int64(2), int64(3), int64(4), int64(5))
	assert.Equal(t, [][][]types.Datum{
		column(int64(1), int64(2)), column(int64(3), int64(4)), column(int64(5)),
	}, partitions(rows, 3))
	assert.Len(t, partitions(rows, 10), 5)
	assert.Equal(t, [][][]types.Datum{rows}, partitions(rows, 0))
	assert.Len(t, partitions(nil, 4), 1)
}

func TestRun_PartitionsOnly(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t)
	parts := [][][]types.Datum{column(int64(1), int64(2)), column(int64(3))}

	res, err := newExecutor(cat).Run(ctx, Request{Aggregate: "array_agg(any)", Mode: ModeParallelizable, Partitions: parts})
	require.NoError(t, err)
	assert.Equal(t, StrategySequential, res.Strategy)
	assert.Equal(t, []types.Datum{int64(1), int64(2), int64(3)}, res.Value)

	res, err = newExecutor(cat).Run(ctx, Request{
		Aggregate: "count(any)", Mode: ModeWindowed, Partitions: parts,
		Frames: window.RowsBetween(3, window.Unbounded, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Datum{int64(1), int64(2), int64(3)}, res.Values)

	res, err = newExecutor(cat).Run(ctx, Request{
		Aggregate: "percentile_disc(float8,any)", Partitions: parts, Direct: []types.Datum{1.0},
	})
	require.NoError(t, err)
	assert.Equal(t, StrategyOrderedSet, res.Strategy)
	assert.Equal(t, int64(3), res.Value)
}

func TestRun_CoercesInput(t *testing.T) {
	ctx := context.Background()
	cat := newCatalog(t)
	rows := column(1, 2, 3)

	for _, mode := range []Mode{ModeSequential, ModeParallelizable} {
		res, err := newExecutor(cat, WithWorkers(2)).Run(ctx, Request{Aggregate: "sum(int4)", Mode: mode, Rows: rows})
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(6), res.Value, mode.String())

		res, err = newExecutor(cat, WithWorkers(2)).Run(ctx, Request{
			Aggregate: "count()", Mode: mode, Partitions: [][][]types.Datum{{{}, {}}, {{}}},
		})
		require.NoError(t, err, mode.String())
		assert.Equal(t, int64(3), res.Value, mode.String())
	}

	res, err := newExecutor(cat).Run(ctx, Request{
		Aggregate: "sum(int4)", Mode: ModeWindowed, Rows: column(int32(1), "2", uint8(3)),
		Frames: window.RowsBetween(3, 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, []types.Datum{int64(1), int64(3), int64(5)}, res.Values)

	res, err = newExecutor(cat).Run(ctx, Request{
		Aggregate: "percentile_cont(float8,float8)", Rows: column(1, 2, 3, 4), Direct: []types.Datum{"0.5"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, res.Value, 1e-12)

	// coercion failures are reported before any callback runs
	_, err = newExecutor(cat).Run(ctx, Request{Aggregate: "sum(int4)", Rows: column(int64(math.MaxInt64))})
	require.Error(t, err)
	var execErr *ExecutionError
	assert.False(t, errors.As(err, &execErr))
	assert.Contains(t, err.Error(), "out of range for type int4")

	_, err = newExecutor(cat).Run(ctx, Request{Aggregate: "sum(int4)", Mode: ModeParallelizable,
		Partitions: [][][]types.Datum{column(1), column("x")}})
	assert.ErrorContains(t, err, "partition 1")

	_, err = newExecutor(cat).Run(ctx, Request{Aggregate: "string_agg(text,text)", Rows: column("a")})
	assert.ErrorContains(t, err, "want 2")
}

func TestRun_TwoArgumentStatistics(t *testing.T) {
	cat := newCatalog(t)
	r := rand.New(rand.NewSource(3))
	rows := make([][]types.Datum, 300)
	for i := range rows {
		x := r.NormFloat64() * 10
		rows[i] = []types.Datum{2*x + 5 + r.NormFloat64(), x}
	}
	rows[11][0], rows[40][1] = nil, nil

	for _, id := range []string{"corr(float8,float8)", "covar_pop(float8,float8)", "covar_samp(float8,float8)",
		"regr_slope(float8,float8)", "regr_intercept(float8,float8)", "regr_r2(float8,float8)"} {
		def := lookup(t, cat, id)
		want, err := state.Fold(context.Background(), def.Regular(), rows, nil)
		require.NoError(t, err)
		for _, workers := range []int{2, 7, 32} {
			res, err := newExecutor(cat, WithWorkers(workers)).Run(context.Background(),
				Request{Definition: def, Mode: ModeParallelizable, Rows: rows})
			require.NoError(t, err)
			assert.Equal(t, StrategyParallel, res.Strategy)
			assert.InDelta(t, want, res.Value, 1e-6, "%s with %d workers", id, workers)
		}
	}

	res, err := newExecutor(cat, WithWorkers(4)).Run(context.Background(),
		Request{Aggregate: "regr_count(float8,float8)", Mode: ModeParallelizable, Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, int64(298), res.Value)

	res, err = newExecutor(cat).Run(context.Background(),
		Request{Aggregate: "regr_slope(float8,float8)", Rows: rows})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Value, 0.1)
}

func TestRun_Cancelled(t *testing.T) {
	cat := newCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, mode := range []Mode{ModeSequential, ModeParallelizable, ModeWindowed} {
		_, err := newExecutor(cat, WithWorkers(2)).Run(ctx, Request{
			Aggregate: "count(any)", Mode: mode, Rows: column(int64(1), int64(2)),
			Frames: []window.Frame{{Start: 0, End: 2}},
		})
		assert.ErrorIs(t, err, context.Canceled, mode.String())
		var execErr *ExecutionError
		assert.False(t, errors.As(err, &execErr), mode.String())
	}
}

func TestRun_Resolution(t *testing.T) {
	_, err := New().Run(context.Background(), Request{Aggregate: "count(any)"})
	assert.Error(t, err)

	cat := newCatalog(t)
	_, err = newExecutor(cat).Run(context.Background(), Request{Aggregate: "nope(int8)"})
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = newExecutor(cat).Run(context.Background(), Request{})
	assert.Error(t, err)

	_, err = newExecutor(cat).Run(context.Background(), Request{Aggregate: "count(any)", Mode: ModeOrderedSet})
	assert.ErrorIs(t, err, ErrStrategyUnavailable)
}
