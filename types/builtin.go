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
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/cast"
	"golang.org/x/text/unicode/norm"
)

// Builtin types. Integer types are carried as int64, float8 as float64,
// numeric as *apd.Decimal, arrays as Go slices.
var (
	Int4 Type = &scalarType{
		name:   NameInt4,
		parse:  func(s string) (Datum, error) { return strconv.ParseInt(strings.TrimSpace(s), 10, 32) },
		coerce: coerceInt4,
		format: formatInt,
	}
	Int8 Type = &scalarType{
		name:   NameInt8,
		parse:  func(s string) (Datum, error) { return strconv.ParseInt(strings.TrimSpace(s), 10, 64) },
		coerce: coerceInt8,
		format: formatInt,
	}
	Float8 Type = &scalarType{
		name:   NameFloat8,
		parse:  parseFloat8,
		coerce: coerceFloat8,
		format: func(d Datum) string { return formatFloat(d.(float64)) },
	}
	Numeric Type = &scalarType{
		name:   NameNumeric,
		parse:  parseNumeric,
		coerce: ToDecimal,
		format: func(d Datum) string { return d.(*apd.Decimal).Text('f') },
	}
	Bool Type = &scalarType{
		name:   NameBool,
		parse:  parseBool,
		coerce: func(v any) (Datum, error) { return cast.ToBoolE(v) },
		format: func(d Datum) string { return strconv.FormatBool(d.(bool)) },
	}
	Text Type = &scalarType{
		name:  NameText,
		parse: func(s string) (Datum, error) { return norm.NFC.String(s), nil },
		coerce: func(v any) (Datum, error) {
			s, err := cast.ToStringE(v)
			if err != nil {
				return nil, err
			}
			return norm.NFC.String(s), nil
		},
		format: func(d Datum) string { return d.(string) },
	}
	Bytea Type = &scalarType{
		name:   NameBytea,
		parse:  parseBytea,
		coerce: coerceBytea,
		format: func(d Datum) string { return `\x` + hex.EncodeToString(d.([]byte)) },
	}
	Int8Array Type = &scalarType{
		name: NameInt8Arr,
		parse: func(s string) (Datum, error) {
			return parseArray(s, func(e string) (int64, error) { return strconv.ParseInt(e, 10, 64) })
		},
		coerce: coerceInt8Array,
		format: func(d Datum) string {
			return formatArray(d.([]int64), func(v int64) string { return strconv.FormatInt(v, 10) })
		},
	}
	Float8Array Type = &scalarType{
		name:   NameFloat8Arr,
		parse:  func(s string) (Datum, error) { return parseArray(s, parseFloat8Elem) },
		coerce: coerceFloat8Array,
		format: func(d Datum) string { return formatArray(d.([]float64), formatFloat) },
	}
	// Internal is the opaque state type: values are arbitrary in-memory
	// structures owned by the transition functions that produce them.
	Internal Type = &scalarType{
		name:   NameInternal,
		opaque: true,
		compare: func(a, b Datum) (int, error) {
			return 0, fmt.Errorf("%w: internal", ErrNotComparable)
		},
	}
	// Any is the polymorphic pseudo-type accepted by generic callbacks.
	Any Type = &scalarType{name: NameAny}
)

// Builtins returns all builtin types.
func Builtins() []Type {
	return []Type{Int4, Int8, Float8, Numeric, Bool, Text, Bytea, Int8Array, Float8Array, Internal, Any}
}

func formatInt(d Datum) string { return strconv.FormatInt(d.(int64), 10) }

func coerceInt8(v any) (Datum, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case *apd.Decimal:
		return x.Int64()
	}
	return cast.ToInt64E(v)
}

func coerceInt4(v any) (Datum, error) {
	d, err := coerceInt8(v)
	if err != nil {
		return nil, err
	}
	n := d.(int64)
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, fmt.Errorf("value %d out of range for type int4", n)
	}
	return n, nil
}

func parseFloat8(s string) (Datum, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan":
		return math.NaN(), nil
	case "infinity", "inf", "+infinity":
		return math.Inf(1), nil
	case "-infinity", "-inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseFloat8Elem(s string) (float64, error) {
	v, err := parseFloat8(s)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func coerceFloat8(v any) (Datum, error) {
	switch x := v.(type) {
	case string:
		return parseFloat8(x)
	case *apd.Decimal:
		return x.Float64()
	}
	return cast.ToFloat64E(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func parseNumeric(s string) (Datum, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ToDecimal converts an integer, float, string or decimal into a fresh
// *apd.Decimal.
func ToDecimal(v any) (Datum, error) {
	switch x := v.(type) {
	case *apd.Decimal:
		return new(apd.Decimal).Set(x), nil
	case apd.Decimal:
		return new(apd.Decimal).Set(&x), nil
	case string:
		return parseNumeric(x)
	case float32, float64:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return nil, err
		}
		return new(apd.Decimal).SetFloat64(f)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, err
	}
	return apd.New(n, 0), nil
}

func parseBool(s string) (Datum, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "y", "yes", "on", "1":
		return true, nil
	case "f", "false", "n", "no", "off", "0":
		return false, nil
	}
	return nil, errors.New("not a boolean")
}

func parseBytea(s string) (Datum, error) {
	if strings.HasPrefix(s, `\x`) {
		return hex.DecodeString(s[2:])
	}
	return []byte(s), nil
}

func coerceBytea(v any) (Datum, error) {
	switch x := v.(type) {
	case []byte:
		return append([]byte(nil), x...), nil
	case string:
		return parseBytea(x)
	}
	return nil, fmt.Errorf("unsupported bytea source %T", v)
}

// parseArray reads a one-dimensional array literal such as {1,2,3}.
func parseArray[T any](s string, elem func(string) (T, error)) ([]T, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, errors.New(`array literal must be enclosed in "{}"`)
	}
	body := strings.TrimSpace(s[1 : len(s)-1])
	out := []T{}
	if body == "" {
		return out, nil
	}
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if strings.EqualFold(part, "null") {
			return nil, errors.New("array elements must not be NULL")
		}
		v, err := elem(part)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func formatArray[T any](vals []T, elem func(T) string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = elem(v)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func coerceInt8Array(v any) (Datum, error) {
	switch x := v.(type) {
	case []int64:
		return append([]int64(nil), x...), nil
	case string:
		return parseArray(x, func(e string) (int64, error) { return strconv.ParseInt(e, 10, 64) })
	case []any:
		out := make([]int64, len(x))
		for i, e := range x {
			n, err := cast.ToInt64E(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	ints, err := cast.ToIntSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(ints))
	for i, n := range ints {
		out[i] = int64(n)
	}
	return out, nil
}

func coerceFloat8Array(v any) (Datum, error) {
	switch x := v.(type) {
	case []float64:
		return append([]float64(nil), x...), nil
	case string:
		return parseArray(x, parseFloat8Elem)
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := cast.ToFloat64E(e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported float8[] source %T", v)
}
