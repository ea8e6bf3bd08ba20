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
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/cast"
)

// CompareValues orders two non-NULL values. Integers compare exactly,
// mixed integer/float pairs compare as float64 and NaN sorts above every
// other float.
func CompareValues(a, b Datum) (int, error) {
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			return compareBool(x, y), nil
		}
	case []byte:
		if y, ok := b.([]byte); ok {
			return bytes.Compare(x, y), nil
		}
	case *apd.Decimal:
		if isNumber(b) {
			y, err := ToDecimal(b)
			if err != nil {
				return 0, err
			}
			return x.Cmp(y.(*apd.Decimal)), nil
		}
	default:
		if _, ok := b.(*apd.Decimal); ok && isNumber(a) {
			c, err := CompareValues(b, a)
			return -c, err
		}
		if isInteger(a) && isInteger(b) {
			return cmp.Compare(cast.ToInt64(a), cast.ToInt64(b)), nil
		}
		if isNumber(a) && isNumber(b) {
			return compareFloat(cast.ToFloat64(a), cast.ToFloat64(b)), nil
		}
	}
	return 0, fmt.Errorf("%w: %T and %T", ErrNotComparable, a, b)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func compareFloat(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	return cmp.Compare(a, b)
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

func isNumber(v any) bool {
	switch v.(type) {
	case float32, float64, *apd.Decimal:
		return true
	}
	return isInteger(v)
}

// CopyDatum returns a copy of d that shares no mutable memory with it.
// Transition states seeded from an input value are copied so that later
// in-place updates never touch the caller's row.
func CopyDatum(d Datum) Datum {
	switch x := d.(type) {
	case *apd.Decimal:
		return new(apd.Decimal).Set(x)
	case []byte:
		return append([]byte(nil), x...)
	case []int64:
		return append([]int64(nil), x...)
	case []float64:
		return append([]float64(nil), x...)
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = CopyDatum(v)
		}
		return out
	}
	return d
}

var aliases = map[string]string{
	"integer":           NameInt4,
	"int":               NameInt4,
	"bigint":            NameInt8,
	"double precision":  NameFloat8,
	"float":             NameFloat8,
	"decimal":           NameNumeric,
	"boolean":           NameBool,
	"varchar":           NameText,
	"character varying": NameText,
	"anyelement":        NameAny,
	"\"any\"":           NameAny,
}

// Normalize maps a type name or SQL alias to its canonical name.
func Normalize(name string) string {
	n := strings.ToLower(strings.Join(strings.Fields(name), " "))
	suffix := ""
	if strings.HasSuffix(n, "[]") {
		n, suffix = strings.TrimSpace(strings.TrimSuffix(n, "[]")), "[]"
	}
	if canonical, ok := aliases[n]; ok {
		n = canonical
	}
	return n + suffix
}
