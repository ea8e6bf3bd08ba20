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
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/rulego/aggexec/types"
)

const (
	// minSigDigits is the minimum number of significant digits of a
	// numeric quotient.
	minSigDigits = 16
	divPrecision = 100
)

var divContext = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(divPrecision)
	c.Rounding = apd.RoundHalfUp
	return c
}()

// numAccum is the exact accumulator behind sum/avg and the variance family
// over integers and numeric. NaN inputs are counted, never added.
// maxScale/maxScaleCount track the largest display scale seen so the sum
// keeps its scale when rows are removed again.
type numAccum struct {
	n     int64
	nan   int64
	sum   apd.Decimal
	sumX2 apd.Decimal
	// squares is set on variance states; only they maintain sumX2.
	squares       bool
	maxScale      int32
	maxScaleCount int64
}

func scaleOf(d *apd.Decimal) int32 {
	if d.Exponent < 0 {
		return -d.Exponent
	}
	return 0
}

func (a *numAccum) add(x *apd.Decimal) error {
	a.n++
	if x.Form == apd.NaN || x.Form == apd.NaNSignaling {
		a.nan++
		return nil
	}
	switch scale := scaleOf(x); {
	case scale > a.maxScale:
		a.maxScale, a.maxScaleCount = scale, 1
	case scale == a.maxScale:
		a.maxScaleCount++
	}
	if a.squares {
		var sq apd.Decimal
		if _, err := apd.BaseContext.Mul(&sq, x, x); err != nil {
			return err
		}
		if _, err := apd.BaseContext.Add(&a.sumX2, &a.sumX2, &sq); err != nil {
			return err
		}
	}
	_, err := apd.BaseContext.Add(&a.sum, &a.sum, x)
	return err
}

// discard removes x. It reports ErrUnderflow when x is the last value
// carrying the maximum scale, since the scale of the remaining rows is
// then unknown.
func (a *numAccum) discard(x *apd.Decimal) error {
	if a.n == 0 {
		return ErrUnderflow
	}
	if x.Form == apd.NaN || x.Form == apd.NaNSignaling {
		if a.nan == 0 {
			return ErrUnderflow
		}
		a.nan--
		a.n--
		return nil
	}
	if scaleOf(x) == a.maxScale {
		if a.maxScaleCount > 1 || a.maxScale == 0 {
			a.maxScaleCount--
		} else {
			return ErrUnderflow
		}
	}
	a.n--
	if a.n == 0 {
		*a = numAccum{squares: a.squares}
		return nil
	}
	if a.squares {
		var sq apd.Decimal
		if _, err := apd.BaseContext.Mul(&sq, x, x); err != nil {
			return err
		}
		if _, err := apd.BaseContext.Sub(&a.sumX2, &a.sumX2, &sq); err != nil {
			return err
		}
	}
	_, err := apd.BaseContext.Sub(&a.sum, &a.sum, x)
	return err
}

func (a *numAccum) clone() *numAccum {
	c := &numAccum{n: a.n, nan: a.nan, squares: a.squares, maxScale: a.maxScale, maxScaleCount: a.maxScaleCount}
	c.sum.Set(&a.sum)
	c.sumX2.Set(&a.sumX2)
	return c
}

func (a *numAccum) merge(b *numAccum) error {
	a.n += b.n
	a.nan += b.nan
	a.squares = a.squares || b.squares
	if _, err := apd.BaseContext.Add(&a.sumX2, &a.sumX2, &b.sumX2); err != nil {
		return err
	}
	switch {
	case b.maxScale > a.maxScale:
		a.maxScale, a.maxScaleCount = b.maxScale, b.maxScaleCount
	case b.maxScale == a.maxScale:
		a.maxScaleCount += b.maxScaleCount
	}
	_, err := apd.BaseContext.Add(&a.sum, &a.sum, &b.sum)
	return err
}

func (a *numAccum) result(avg bool) (types.Datum, error) {
	if a.n == 0 {
		return nil, nil
	}
	if a.nan > 0 {
		return &apd.Decimal{Form: apd.NaN}, nil
	}
	if !avg {
		return new(apd.Decimal).Set(&a.sum), nil
	}
	d, err := divide(&a.sum, apd.New(a.n, 0), a.maxScale)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// numAccumTrans builds a non-strict transition over numAccum that either
// accumulates or discards its input. squares selects the variance state.
func numAccumTrans(discard, squares bool) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := as[*numAccum](args[0])
		if err != nil {
			return nil, err
		}
		if s == nil {
			if discard {
				return nil, ErrUnderflow
			}
			s = &numAccum{squares: squares}
		}
		if args[1] == nil {
			return s, nil
		}
		d, err := types.ToDecimal(args[1])
		if err != nil {
			return nil, err
		}
		x := d.(*apd.Decimal)
		if discard {
			err = s.discard(x)
		} else {
			err = s.add(x)
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func numericProcs() []*Proc {
	final := func(avg bool) Callable {
		return func(args []types.Datum) (types.Datum, error) {
			s, err := as[*numAccum](args[0])
			if err != nil || s == nil {
				return nil, err
			}
			return s.result(avg)
		}
	}
	return []*Proc{
		NewProc("numeric_avg_accum", []string{"internal", "numeric"}, "internal", false, numAccumTrans(false, false)).
			WithDescription("aggregate transition function"),
		NewProc("numeric_accum_inv", []string{"internal", "numeric"}, "internal", false, numAccumTrans(true, false)).
			WithDescription("aggregate inverse transition function"),
		NewProc("int8_avg_accum", []string{"internal", "int8"}, "internal", false, numAccumTrans(false, false)).
			WithDescription("aggregate transition function"),
		NewProc("int8_avg_accum_inv", []string{"internal", "int8"}, "internal", false, numAccumTrans(true, false)).
			WithDescription("aggregate inverse transition function"),
		NewProc("numeric_accum", []string{"internal", "numeric"}, "internal", false, numAccumTrans(false, true)).
			WithDescription("aggregate transition function"),
		NewProc("numeric_var_accum_inv", []string{"internal", "numeric"}, "internal", false, numAccumTrans(true, true)).
			WithDescription("aggregate inverse transition function"),
		NewProc("int8_accum", []string{"internal", "int8"}, "internal", false, numAccumTrans(false, true)).
			WithDescription("aggregate transition function"),
		NewProc("int8_accum_inv", []string{"internal", "int8"}, "internal", false, numAccumTrans(true, true)).
			WithDescription("aggregate inverse transition function"),
		NewProc("int4_accum", []string{"internal", "int4"}, "internal", false, numAccumTrans(false, true)).
			WithDescription("aggregate transition function"),
		NewProc("int4_accum_inv", []string{"internal", "int4"}, "internal", false, numAccumTrans(true, true)).
			WithDescription("aggregate inverse transition function"),
		NewProc("numeric_avg_combine", []string{"internal", "internal"}, "internal", false, numAccumCombine).
			WithDescription("aggregate combine function"),
		NewProc("numeric_avg_serialize", []string{"internal"}, "bytea", true, Serialize(encodeNumAccum)).
			WithDescription("aggregate serial function"),
		NewProc("numeric_avg_deserialize", []string{"bytea"}, "internal", true, Deserialize(decodeNumAccum)).
			WithDescription("aggregate deserial function"),
		NewProc("numeric_avg", []string{"internal"}, "numeric", false, final(true)).
			WithDescription("aggregate final function"),
		NewProc("numeric_sum", []string{"internal"}, "numeric", false, final(false)).
			WithDescription("aggregate final function"),
		NewProc("numeric_var_pop", []string{"internal"}, "numeric", false, varianceFinal(false, false)).
			WithDescription("aggregate final function"),
		NewProc("numeric_var_samp", []string{"internal"}, "numeric", false, varianceFinal(true, false)).
			WithDescription("aggregate final function"),
		NewProc("numeric_stddev_pop", []string{"internal"}, "numeric", false, varianceFinal(false, true)).
			WithDescription("aggregate final function"),
		NewProc("numeric_stddev_samp", []string{"internal"}, "numeric", false, varianceFinal(true, true)).
			WithDescription("aggregate final function"),
	}
}

func varianceFinal(sample, stddev bool) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := as[*numAccum](args[0])
		if err != nil || s == nil {
			return nil, err
		}
		return s.variance(sample, stddev)
	}
}

// variance computes (n*sumX2 - sum*sum) / (n*n), or n*(n-1) for the sample
// form, optionally followed by a square root. Fewer rows than the form
// needs give NULL.
func (a *numAccum) variance(sample, stddev bool) (types.Datum, error) {
	if !a.squares {
		return nil, errors.New("numeric accumulator does not track squares")
	}
	if a.n == 0 || (sample && a.n == 1) {
		return nil, nil
	}
	if a.nan > 0 {
		return &apd.Decimal{Form: apd.NaN}, nil
	}
	n := apd.New(a.n, 0)
	var num, sq, den apd.Decimal
	if _, err := apd.BaseContext.Mul(&num, n, &a.sumX2); err != nil {
		return nil, err
	}
	if _, err := apd.BaseContext.Mul(&sq, &a.sum, &a.sum); err != nil {
		return nil, err
	}
	if _, err := apd.BaseContext.Sub(&num, &num, &sq); err != nil {
		return nil, err
	}
	if num.Sign() <= 0 {
		// rounding cannot make a variance negative
		return apd.New(0, -a.maxScale), nil
	}
	if sample {
		den.Set(apd.New(a.n*(a.n-1), 0))
	} else {
		den.Set(apd.New(a.n*a.n, 0))
	}
	v, err := divide(&num, &den, a.maxScale)
	if err != nil || !stddev {
		return v, err
	}
	root := new(apd.Decimal)
	if _, err := divContext.Sqrt(root, v); err != nil {
		return nil, err
	}
	if _, err := divContext.Quantize(root, root, v.Exponent); err != nil {
		return nil, err
	}
	return root, nil
}

// numAccumCombine never mutates its inputs.
func numAccumCombine(args []types.Datum) (types.Datum, error) {
	a, err := as[*numAccum](args[0])
	if err != nil {
		return nil, err
	}
	b, err := as[*numAccum](args[1])
	if err != nil {
		return nil, err
	}
	switch {
	case a == nil && b == nil:
		return nil, nil
	case a == nil:
		return b.clone(), nil
	case b == nil:
		return a.clone(), nil
	}
	out := a.clone()
	if err := out.merge(b); err != nil {
		return nil, err
	}
	return out, nil
}

// encodeNumAccum writes n, nan, maxScale, maxScaleCount and the squares
// flag as varints, then the length-prefixed sum in scientific string form
// and, for variance states, the sum of squares.
func encodeNumAccum(a *numAccum) ([]byte, error) {
	sum := a.sum.String()
	buf := make([]byte, 0, 6*binary.MaxVarintLen64+len(sum)+16)
	buf = binary.AppendVarint(buf, a.n)
	buf = binary.AppendVarint(buf, a.nan)
	buf = binary.AppendVarint(buf, int64(a.maxScale))
	buf = binary.AppendVarint(buf, a.maxScaleCount)
	squares := int64(0)
	if a.squares {
		squares = 1
	}
	buf = binary.AppendVarint(buf, squares)
	buf = appendUvarint(buf, uint64(len(sum)))
	buf = append(buf, sum...)
	if a.squares {
		buf = append(buf, a.sumX2.String()...)
	}
	return buf, nil
}

func decodeNumAccum(data []byte) (*numAccum, error) {
	var fields [5]int64
	rest := data
	for i := range fields {
		v, n := binary.Varint(rest)
		if n <= 0 {
			return nil, errors.New("numeric accumulator: truncated header")
		}
		fields[i] = v
		rest = rest[n:]
	}
	a := &numAccum{n: fields[0], nan: fields[1], maxScale: int32(fields[2]), maxScaleCount: fields[3], squares: fields[4] == 1}
	size, n, err := readUvarint(rest)
	if err != nil {
		return nil, fmt.Errorf("numeric accumulator: %w", err)
	}
	rest = rest[n:]
	if size > uint64(len(rest)) {
		return nil, errors.New("numeric accumulator: sum past end of data")
	}
	if _, _, err := a.sum.SetString(string(rest[:size])); err != nil {
		return nil, fmt.Errorf("numeric accumulator: %w", err)
	}
	rest = rest[size:]
	if a.squares {
		if _, _, err := a.sumX2.SetString(string(rest)); err != nil {
			return nil, fmt.Errorf("numeric accumulator: %w", err)
		}
	}
	return a, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	return binary.AppendUvarint(buf, v)
}

func readUvarint(data []byte) (uint64, int, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, 0, errors.New("truncated varint")
	}
	return v, n, nil
}

// divide computes num/den rounded half away from zero to a scale that
// keeps at least minSigDigits significant digits and never less than
// minScale.
func divide(num, den *apd.Decimal, minScale int32) (*apd.Decimal, error) {
	if den.IsZero() {
		return nil, errors.New("division by zero")
	}
	scale := int64(minSigDigits) - 4*(baseWeight(num)-baseWeight(den))
	scale = max(scale, int64(minScale), int64(scaleOf(num)), int64(scaleOf(den)), 0)

	q := new(apd.Decimal)
	if _, err := divContext.Quo(q, num, den); err != nil {
		return nil, err
	}
	if _, err := divContext.Quantize(q, q, int32(-scale)); err != nil {
		return nil, err
	}
	return q, nil
}

// baseWeight is the position of the most significant digit in base 10000.
func baseWeight(d *apd.Decimal) int64 {
	if d.IsZero() {
		return 0
	}
	adjusted := d.NumDigits() + int64(d.Exponent) - 1
	if adjusted < 0 {
		return -((-adjusted + 3) / 4)
	}
	return adjusted / 4
}
