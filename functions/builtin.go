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
	"encoding/binary"
	"errors"
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/rulego/aggexec/types"
)

// ErrOverflow is returned when an integer accumulator leaves its range.
var ErrOverflow = errors.New("bigint out of range")

// BuiltinProcs returns every builtin aggregate support procedure.
func BuiltinProcs() []*Proc {
	var procs []*Proc
	for _, group := range [][]*Proc{
		countProcs(),
		minMaxProcs(),
		integerProcs(),
		floatProcs(),
		numericProcs(),
		boolProcs(),
		bitProcs(),
		stringProcs(),
		orderedSetProcs(),
		regrProcs(),
	} {
		procs = append(procs, group...)
	}
	return procs
}

func addInt64(a, b int64) (int64, error) {
	c := a + b
	if (c > a) != (b > 0) {
		return 0, ErrOverflow
	}
	return c, nil
}

func countProcs() []*Proc {
	inc := func(state int64, _ any) (int64, error) { return addInt64(state, 1) }
	dec := func(state int64, _ any) (int64, error) { return addInt64(state, -1) }
	plus := func(a, b int64) (int64, error) { return addInt64(a, b) }
	stateOnly := func(fn func(int64, any) (int64, error)) Callable {
		return func(args []types.Datum) (types.Datum, error) {
			state, err := as[int64](args[0])
			if err != nil {
				return nil, err
			}
			return fn(state, nil)
		}
	}

	return []*Proc{
		NewProc("int8inc", []string{"int8"}, "int8", true, stateOnly(inc)).
			WithDescription("increment"),
		NewProc("int8inc_any", []string{"int8", "any"}, "int8", true, Transition(inc)).
			WithDescription("increment, ignoring second argument"),
		NewProc("int8dec", []string{"int8"}, "int8", true, stateOnly(dec)).
			WithDescription("decrement"),
		NewProc("int8dec_any", []string{"int8", "any"}, "int8", true, Transition(dec)).
			WithDescription("decrement, ignoring second argument"),
		NewProc("int8pl", []string{"int8", "int8"}, "int8", true, Combine(plus)).
			WithDescription("add"),
	}
}

func larger(args []types.Datum) (types.Datum, error) {
	c, err := types.CompareValues(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if c >= 0 {
		return args[0], nil
	}
	return args[1], nil
}

func smaller(args []types.Datum) (types.Datum, error) {
	c, err := types.CompareValues(args[0], args[1])
	if err != nil {
		return nil, err
	}
	if c <= 0 {
		return args[0], nil
	}
	return args[1], nil
}

func minMaxProcs() []*Proc {
	var procs []*Proc
	for _, t := range []struct{ prefix, typ string }{
		{"int4", types.NameInt4},
		{"int8", types.NameInt8},
		{"float8", types.NameFloat8},
		{"numeric", types.NameNumeric},
		{"text", types.NameText},
	} {
		sig := []string{t.typ, t.typ}
		procs = append(procs,
			NewProc(t.prefix+"larger", sig, t.typ, true, larger).WithDescription("larger of two"),
			NewProc(t.prefix+"smaller", sig, t.typ, true, smaller).WithDescription("smaller of two"),
		)
	}
	return procs
}

// integerProcs covers sum(int4) and avg(int4). The int8[] state of the
// avg family is {count, sum}.
func integerProcs() []*Proc {
	return []*Proc{
		NewProc("int4_sum", []string{"int8", "int4"}, "int8", false, int4Sum).
			WithDescription("aggregate transition function"),
		NewProc("int4_avg_accum", []string{"int8[]", "int4"}, "int8[]", true,
			Transition(func(state []int64, in int64) ([]int64, error) { return int8PairAccum(state, in, 1) })).
			WithDescription("aggregate transition function"),
		NewProc("int4_avg_accum_inv", []string{"int8[]", "int4"}, "int8[]", true,
			Transition(func(state []int64, in int64) ([]int64, error) { return int8PairAccum(state, in, -1) })).
			WithDescription("aggregate inverse transition function"),
		NewProc("int4_avg_combine", []string{"int8[]", "int8[]"}, "int8[]", true, Combine(int8PairCombine)).
			WithDescription("aggregate combine function"),
		NewProc("int8_avg", []string{"int8[]"}, "numeric", true, Final(int8PairAvg)).
			WithDescription("aggregate final function"),
		NewProc("int2int4_sum", []string{"int8[]"}, "int8", true, Final(int8PairSum)).
			WithDescription("aggregate final function"),
	}
}

// int4Sum is non-strict: a NULL state is seeded with the first non-NULL input.
func int4Sum(args []types.Datum) (types.Datum, error) {
	state, in := args[0], args[1]
	switch {
	case state == nil:
		return in, nil
	case in == nil:
		return state, nil
	}
	a, err := as[int64](state)
	if err != nil {
		return nil, err
	}
	b, err := as[int64](in)
	if err != nil {
		return nil, err
	}
	return addInt64(a, b)
}

func int8PairAccum(state []int64, in int64, sign int64) ([]int64, error) {
	if len(state) != 2 {
		return nil, errors.New("expected 2-element int8 array")
	}
	count, err := addInt64(state[0], sign)
	if err != nil {
		return nil, err
	}
	sum, err := addInt64(state[1], sign*in)
	if err != nil {
		return nil, err
	}
	return []int64{count, sum}, nil
}

func int8PairCombine(a, b []int64) ([]int64, error) {
	if len(a) != 2 || len(b) != 2 {
		return nil, errors.New("expected 2-element int8 array")
	}
	count, err := addInt64(a[0], b[0])
	if err != nil {
		return nil, err
	}
	sum, err := addInt64(a[1], b[1])
	if err != nil {
		return nil, err
	}
	return []int64{count, sum}, nil
}

func int8PairAvg(state []int64) (*apd.Decimal, error) {
	if len(state) != 2 {
		return nil, errors.New("expected 2-element int8 array")
	}
	if state[0] == 0 {
		return nil, nil
	}
	return divide(apd.New(state[1], 0), apd.New(state[0], 0), 0)
}

func int8PairSum(state []int64) (any, error) {
	if len(state) != 2 {
		return nil, errors.New("expected 2-element int8 array")
	}
	if state[0] == 0 {
		return nil, nil
	}
	return state[1], nil
}

// floatProcs covers the float8 accumulators. The float8[] state is
// {N, Sx, Sxx} maintained with the Youngs-Cramer update so that partial
// states combine without loss of precision.
func floatProcs() []*Proc {
	return []*Proc{
		NewProc("float8pl", []string{"float8", "float8"}, "float8", true,
			Combine(func(a, b float64) (float64, error) { return a + b, nil })).
			WithDescription("add"),
		NewProc("float8_accum", []string{"float8[]", "float8"}, "float8[]", true, Transition(float8Accum)).
			WithDescription("aggregate transition function"),
		NewProc("float8_combine", []string{"float8[]", "float8[]"}, "float8[]", true, Combine(float8Combine)).
			WithDescription("aggregate combine function"),
		NewProc("float8_avg", []string{"float8[]"}, "float8", true, Final(float8Final(func(n, sx, _ float64) (any, error) {
			if n == 0 {
				return nil, nil
			}
			return sx / n, nil
		}))).WithDescription("aggregate final function"),
		NewProc("float8_var_pop", []string{"float8[]"}, "float8", true, Final(float8Final(func(n, _, sxx float64) (any, error) {
			if n == 0 {
				return nil, nil
			}
			return sxx / n, nil
		}))).WithDescription("aggregate final function"),
		NewProc("float8_var_samp", []string{"float8[]"}, "float8", true, Final(float8Final(func(n, _, sxx float64) (any, error) {
			if n <= 1 {
				return nil, nil
			}
			return sxx / (n - 1), nil
		}))).WithDescription("aggregate final function"),
		NewProc("float8_stddev_samp", []string{"float8[]"}, "float8", true, Final(float8Final(func(n, _, sxx float64) (any, error) {
			if n <= 1 {
				return nil, nil
			}
			return math.Sqrt(sxx / (n - 1)), nil
		}))).WithDescription("aggregate final function"),
		NewProc("float8_stddev_pop", []string{"float8[]"}, "float8", true, Final(float8Final(func(n, _, sxx float64) (any, error) {
			if n == 0 {
				return nil, nil
			}
			return math.Sqrt(sxx / n), nil
		}))).WithDescription("aggregate final function"),
	}
}

func checkFloat8Triple(state []float64) error {
	if len(state) != 3 {
		return errors.New("expected 3-element float8 array")
	}
	return nil
}

func float8Accum(state []float64, x float64) ([]float64, error) {
	if err := checkFloat8Triple(state); err != nil {
		return nil, err
	}
	n, sx, sxx := state[0]+1, state[1]+x, state[2]
	if n > 1 {
		tmp := x*n - sx
		sxx += tmp * tmp / (n * (n - 1))
	} else if math.IsInf(x, 0) || math.IsNaN(x) {
		sxx = math.NaN()
	}
	return []float64{n, sx, sxx}, nil
}

func float8Combine(a, b []float64) ([]float64, error) {
	if err := checkFloat8Triple(a); err != nil {
		return nil, err
	}
	if err := checkFloat8Triple(b); err != nil {
		return nil, err
	}
	switch {
	case a[0] == 0:
		return append([]float64(nil), b...), nil
	case b[0] == 0:
		return append([]float64(nil), a...), nil
	}
	n := a[0] + b[0]
	tmp := a[1]/a[0] - b[1]/b[0]
	return []float64{n, a[1] + b[1], a[2] + b[2] + a[0]*b[0]*tmp*tmp/n}, nil
}

func float8Final(fn func(n, sx, sxx float64) (any, error)) func([]float64) (any, error) {
	return func(state []float64) (any, error) {
		if err := checkFloat8Triple(state); err != nil {
			return nil, err
		}
		return fn(state[0], state[1], state[2])
	}
}

func boolProcs() []*Proc {
	and := func(a, b bool) (bool, error) { return a && b, nil }
	or := func(a, b bool) (bool, error) { return a || b, nil }
	return []*Proc{
		NewProc("booland_statefunc", []string{"bool", "bool"}, "bool", true, Combine(and)).
			WithDescription("aggregate transition function"),
		NewProc("boolor_statefunc", []string{"bool", "bool"}, "bool", true, Combine(or)).
			WithDescription("aggregate transition function"),
		NewProc("bool_accum", []string{"internal", "bool"}, "internal", false, boolAccum(1)).
			WithDescription("aggregate transition function"),
		NewProc("bool_accum_inv", []string{"internal", "bool"}, "internal", false, boolAccum(-1)).
			WithDescription("aggregate inverse transition function"),
		NewProc("bool_alltrue", []string{"internal"}, "bool", true, Final(func(s *boolState) (any, error) {
			if s == nil || s.count == 0 {
				return nil, nil
			}
			return s.trues == s.count, nil
		})).WithDescription("aggregate final function"),
		NewProc("bool_anytrue", []string{"internal"}, "bool", true, Final(func(s *boolState) (any, error) {
			if s == nil || s.count == 0 {
				return nil, nil
			}
			return s.trues > 0, nil
		})).WithDescription("aggregate final function"),
	}
}

// boolState counts non-NULL inputs and true inputs of a moving bool_and/bool_or.
type boolState struct {
	count int64
	trues int64
}

func boolAccum(sign int64) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := as[*boolState](args[0])
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = &boolState{}
		}
		if args[1] == nil {
			return s, nil
		}
		v, err := as[bool](args[1])
		if err != nil {
			return nil, err
		}
		s.count += sign
		if v {
			s.trues += sign
		}
		if s.count < 0 || s.trues < 0 {
			return nil, ErrUnderflow
		}
		return s, nil
	}
}

func bitProcs() []*Proc {
	return []*Proc{
		NewProc("int8and", []string{"int8", "int8"}, "int8", true,
			Combine(func(a, b int64) (int64, error) { return a & b, nil })).WithDescription("bitwise and"),
		NewProc("int8or", []string{"int8", "int8"}, "int8", true,
			Combine(func(a, b int64) (int64, error) { return a | b, nil })).WithDescription("bitwise or"),
	}
}

// strAccum accumulates delimiter+value pairs; cursor skips the first
// delimiter when the result is produced.
type strAccum struct {
	data   []byte
	cursor int
}

// arrayAccum buffers array_agg inputs in delivery order.
type arrayAccum struct {
	values []types.Datum
}

func stringProcs() []*Proc {
	return []*Proc{
		NewProc("string_agg_transfn", []string{"internal", "text", "text"}, "internal", false, stringAggTrans).
			WithDescription("aggregate transition function"),
		NewProc("string_agg_combine", []string{"internal", "internal"}, "internal", false, stringAggCombine).
			WithDescription("aggregate combine function"),
		NewProc("string_agg_serialize", []string{"internal"}, "bytea", true,
			Serialize(func(s *strAccum) ([]byte, error) { return encodeStrAccum(s), nil })).
			WithDescription("aggregate serial function"),
		NewProc("string_agg_deserialize", []string{"bytea"}, "internal", true,
			Deserialize(decodeStrAccum)).
			WithDescription("aggregate deserial function"),
		NewProc("string_agg_finalfn", []string{"internal"}, "text", false, func(args []types.Datum) (types.Datum, error) {
			s, err := as[*strAccum](args[0])
			if err != nil || s == nil {
				return nil, err
			}
			return string(s.data[s.cursor:]), nil
		}).WithDescription("aggregate final function"),
		NewProc("array_agg_transfn", []string{"internal", "any"}, "internal", false, func(args []types.Datum) (types.Datum, error) {
			s, err := as[*arrayAccum](args[0])
			if err != nil {
				return nil, err
			}
			if s == nil {
				s = &arrayAccum{}
			}
			s.values = append(s.values, types.CopyDatum(args[1]))
			return s, nil
		}).WithDescription("aggregate transition function"),
		NewProc("array_agg_finalfn", []string{"internal"}, "any", false, func(args []types.Datum) (types.Datum, error) {
			s, err := as[*arrayAccum](args[0])
			if err != nil || s == nil {
				return nil, err
			}
			return append([]types.Datum(nil), s.values...), nil
		}).WithDescription("aggregate final function"),
	}
}

func stringAggTrans(args []types.Datum) (types.Datum, error) {
	s, err := as[*strAccum](args[0])
	if err != nil {
		return nil, err
	}
	if args[1] == nil {
		// NULL values are skipped; the state stays unallocated until the first value
		if s == nil {
			return nil, nil
		}
		return s, nil
	}
	value, err := as[string](args[1])
	if err != nil {
		return nil, err
	}
	delim, err := as[string](args[2])
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = &strAccum{cursor: len(delim)}
	}
	s.data = append(s.data, delim...)
	s.data = append(s.data, value...)
	return s, nil
}

func stringAggCombine(args []types.Datum) (types.Datum, error) {
	a, err := as[*strAccum](args[0])
	if err != nil {
		return nil, err
	}
	b, err := as[*strAccum](args[1])
	if err != nil {
		return nil, err
	}
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		return &strAccum{data: append([]byte(nil), b.data...), cursor: b.cursor}, nil
	case b == nil:
		return &strAccum{data: append([]byte(nil), a.data...), cursor: a.cursor}, nil
	}
	data := make([]byte, 0, len(a.data)+len(b.data))
	data = append(append(data, a.data...), b.data...)
	return &strAccum{data: data, cursor: a.cursor}, nil
}

func encodeStrAccum(s *strAccum) []byte {
	out := appendUvarint(make([]byte, 0, len(s.data)+binary.MaxVarintLen64), uint64(s.cursor))
	return append(out, s.data...)
}

func decodeStrAccum(data []byte) (*strAccum, error) {
	cursor, n, err := readUvarint(data)
	if err != nil {
		return nil, err
	}
	if int(cursor) > len(data)-n {
		return nil, errors.New("string_agg state: cursor past end of data")
	}
	return &strAccum{data: append([]byte(nil), data[n:]...), cursor: int(cursor)}, nil
}
