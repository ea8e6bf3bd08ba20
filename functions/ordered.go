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
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/rulego/aggexec/types"
)

// SortedRows is the state of the generic ordered-set transitions: the
// aggregated argument rows in the order they were delivered. The ordered-set
// protocol delivers them sorted.
type SortedRows struct {
	Rows [][]types.Datum
}

func orderedSetProcs() []*Proc {
	return []*Proc{
		NewProc("ordered_set_transition", []string{"internal", "any"}, "internal", false, orderedSetTransition(true)).
			WithDescription("aggregate transition function"),
		NewProc("ordered_set_transition_multi", []string{"internal", "any"}, "internal", false, orderedSetTransition(false)).
			WithVariadic().WithDescription("aggregate transition function"),
		NewProc("percentile_disc_final", []string{"internal", "float8"}, "any", false, percentileDiscFinal).
			WithDescription("aggregate final function"),
		NewProc("percentile_cont_float8_final", []string{"internal", "float8"}, "float8", false, percentileContFinal).
			WithDescription("aggregate final function"),
		NewProc("rank_final", []string{"internal", "any"}, "int8", false, hypotheticalFinal(rankOf)).
			WithVariadic().WithDescription("rank of hypothetical row"),
		NewProc("dense_rank_final", []string{"internal", "any"}, "int8", false, hypotheticalFinal(denseRankOf)).
			WithVariadic().WithDescription("rank of hypothetical row without gaps"),
		NewProc("percent_rank_final", []string{"internal", "any"}, "float8", false, hypotheticalFinal(percentRankOf)).
			WithVariadic().WithDescription("fractional rank of hypothetical row"),
		NewProc("cume_dist_final", []string{"internal", "any"}, "float8", false, hypotheticalFinal(cumeDistOf)).
			WithVariadic().WithDescription("cumulative distribution of hypothetical row"),
	}
}

// orderedSetTransition buffers one row. Single-column transitions skip
// NULL inputs; multi-column transitions keep them since the hypothetical
// row comparison sorts NULLs last.
func orderedSetTransition(skipNull bool) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := as[*SortedRows](args[0])
		if err != nil {
			return nil, err
		}
		if s == nil {
			s = &SortedRows{}
		}
		row := args[1:]
		if skipNull && len(row) > 0 && row[0] == nil {
			return s, nil
		}
		copied := make([]types.Datum, len(row))
		for i, v := range row {
			copied[i] = types.CopyDatum(v)
		}
		s.Rows = append(s.Rows, copied)
		return s, nil
	}
}

func fraction(v types.Datum) (float64, error) {
	p, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile value %g is not between 0 and 1", p)
	}
	return p, nil
}

func percentileArgs(args []types.Datum) (*SortedRows, float64, bool, error) {
	s, err := as[*SortedRows](args[0])
	if err != nil {
		return nil, 0, false, err
	}
	if len(args) < 2 || args[1] == nil || s == nil || len(s.Rows) == 0 {
		return nil, 0, false, nil
	}
	p, err := fraction(args[1])
	if err != nil {
		return nil, 0, false, err
	}
	return s, p, true, nil
}

func percentileDiscFinal(args []types.Datum) (types.Datum, error) {
	s, p, ok, err := percentileArgs(args)
	if !ok {
		return nil, err
	}
	idx := int(math.Ceil(p*float64(len(s.Rows)))) - 1
	if idx < 0 {
		idx = 0
	}
	return s.Rows[idx][0], nil
}

func percentileContFinal(args []types.Datum) (types.Datum, error) {
	s, p, ok, err := percentileArgs(args)
	if !ok {
		return nil, err
	}
	pos := p * float64(len(s.Rows)-1)
	lo, hi := int(math.Floor(pos)), int(math.Ceil(pos))
	first, err := cast.ToFloat64E(s.Rows[lo][0])
	if err != nil {
		return nil, err
	}
	if lo == hi {
		return first, nil
	}
	second, err := cast.ToFloat64E(s.Rows[hi][0])
	if err != nil {
		return nil, err
	}
	return first + (second-first)*(pos-float64(lo)), nil
}

// compareRows orders two rows column by column with NULLs last.
func compareRows(a, b []types.Datum) (int, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, err := CompareNullsLast(a[i], b[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	return 0, nil
}

// CompareNullsLast orders two values ascending with NULL after every
// non-NULL value.
func CompareNullsLast(a, b types.Datum) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return 1, nil
	case b == nil:
		return -1, nil
	}
	return types.CompareValues(a, b)
}

// hypotheticalCounts returns the number of rows sorting before the
// hypothetical row, the number of peers and the number of distinct row
// values sorting before it.
func hypotheticalCounts(rows [][]types.Datum, hyp []types.Datum) (before, peers, distinctBefore int64, err error) {
	var prev []types.Datum
	for _, row := range rows {
		c, err := compareRows(row, hyp)
		if err != nil {
			return 0, 0, 0, err
		}
		switch {
		case c < 0:
			before++
			if prev == nil {
				distinctBefore++
			} else if d, err := compareRows(prev, row); err != nil {
				return 0, 0, 0, err
			} else if d != 0 {
				distinctBefore++
			}
			prev = row
		case c == 0:
			peers++
		}
	}
	return before, peers, distinctBefore, nil
}

type hypotheticalFn func(n, before, peers, distinctBefore int64) types.Datum

func hypotheticalFinal(fn hypotheticalFn) Callable {
	return func(args []types.Datum) (types.Datum, error) {
		s, err := as[*SortedRows](args[0])
		if err != nil {
			return nil, err
		}
		hyp := args[1:]
		var rows [][]types.Datum
		if s != nil {
			rows = s.Rows
		}
		for _, row := range rows {
			if len(row) != len(hyp) {
				return nil, fmt.Errorf("hypothetical row has %d columns, ordered rows have %d", len(hyp), len(row))
			}
		}
		before, peers, distinctBefore, err := hypotheticalCounts(rows, hyp)
		if err != nil {
			return nil, err
		}
		return fn(int64(len(rows)), before, peers, distinctBefore), nil
	}
}

func rankOf(_, before, _, _ int64) types.Datum { return before + 1 }

func denseRankOf(_, _, _, distinctBefore int64) types.Datum { return distinctBefore + 1 }

func percentRankOf(n, before, _, _ int64) types.Datum {
	if n == 0 {
		return 0.0
	}
	return float64(before) / float64(n)
}

func cumeDistOf(n, before, peers, _ int64) types.Datum {
	return float64(before+peers+1) / float64(n+1)
}
