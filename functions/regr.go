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
	"math"

	"github.com/rulego/aggexec/types"
)

// regrState is the float8[] state of the two-argument statistics:
// {N, Sx, Sxx, Sy, Syy, Sxy}. Sxx, Syy and Sxy are sums of squared and
// cross deviations from the running means.
type regrState struct {
	n, sx, sxx, sy, syy, sxy float64
}

func toRegr(state []float64) (regrState, error) {
	if len(state) != 6 {
		return regrState{}, errors.New("expected 6-element float8 array")
	}
	return regrState{state[0], state[1], state[2], state[3], state[4], state[5]}, nil
}

func (r regrState) array() []float64 {
	return []float64{r.n, r.sx, r.sxx, r.sy, r.syy, r.sxy}
}

// float8RegrAccum takes (state, y, x), the dependent variable first.
func float8RegrAccum(args []types.Datum) (types.Datum, error) {
	state, err := arg[[]float64](args, 0)
	if err != nil {
		return nil, err
	}
	y, err := arg[float64](args, 1)
	if err != nil {
		return nil, err
	}
	x, err := arg[float64](args, 2)
	if err != nil {
		return nil, err
	}
	r, err := toRegr(state)
	if err != nil {
		return nil, err
	}
	r.n++
	r.sx += x
	r.sy += y
	if r.n > 1 {
		tmpX := x*r.n - r.sx
		tmpY := y*r.n - r.sy
		scale := 1 / (r.n * (r.n - 1))
		r.sxx += tmpX * tmpX * scale
		r.syy += tmpY * tmpY * scale
		r.sxy += tmpX * tmpY * scale
	} else {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			r.sxx, r.sxy = math.NaN(), math.NaN()
		}
		if math.IsInf(y, 0) || math.IsNaN(y) {
			r.syy, r.sxy = math.NaN(), math.NaN()
		}
	}
	return r.array(), nil
}

func float8RegrCombine(a, b []float64) ([]float64, error) {
	l, err := toRegr(a)
	if err != nil {
		return nil, err
	}
	r, err := toRegr(b)
	if err != nil {
		return nil, err
	}
	switch {
	case l.n == 0:
		return r.array(), nil
	case r.n == 0:
		return l.array(), nil
	}
	n := l.n + r.n
	dx := l.sx/l.n - r.sx/r.n
	dy := l.sy/l.n - r.sy/r.n
	return regrState{
		n:   n,
		sx:  l.sx + r.sx,
		sxx: l.sxx + r.sxx + l.n*r.n*dx*dx/n,
		sy:  l.sy + r.sy,
		syy: l.syy + r.syy + l.n*r.n*dy*dy/n,
		sxy: l.sxy + r.sxy + l.n*r.n*dx*dy/n,
	}.array(), nil
}

func regrFinal(fn func(r regrState) any) Callable {
	return Final(func(state []float64) (any, error) {
		r, err := toRegr(state)
		if err != nil {
			return nil, err
		}
		if r.n < 1 {
			return nil, nil
		}
		return fn(r), nil
	})
}

func regrProcs() []*Proc {
	return []*Proc{
		NewProc("float8_regr_accum", []string{"float8[]", "float8", "float8"}, "float8[]", true, float8RegrAccum).
			WithDescription("aggregate transition function"),
		NewProc("float8_regr_combine", []string{"float8[]", "float8[]"}, "float8[]", true, Combine(float8RegrCombine)).
			WithDescription("aggregate combine function"),
		NewProc("int8inc_float8_float8", []string{"int8", "float8", "float8"}, "int8", true,
			func(args []types.Datum) (types.Datum, error) {
				n, err := arg[int64](args, 0)
				if err != nil {
					return nil, err
				}
				return addInt64(n, 1)
			}).WithDescription("aggregate transition function"),
		NewProc("float8_covar_pop", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.sxy / r.n
		})).WithDescription("aggregate final function"),
		NewProc("float8_covar_samp", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			if r.n < 2 {
				return nil
			}
			return r.sxy / (r.n - 1)
		})).WithDescription("aggregate final function"),
		NewProc("float8_corr", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			if r.sxx == 0 || r.syy == 0 {
				return nil
			}
			return r.sxy / math.Sqrt(r.sxx*r.syy)
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_sxx", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.sxx
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_syy", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.syy
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_sxy", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.sxy
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_avgx", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.sx / r.n
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_avgy", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			return r.sy / r.n
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_slope", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			if r.sxx == 0 {
				return nil
			}
			return r.sxy / r.sxx
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_intercept", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			if r.sxx == 0 {
				return nil
			}
			return (r.sy - r.sx*r.sxy/r.sxx) / r.n
		})).WithDescription("aggregate final function"),
		NewProc("float8_regr_r2", []string{"float8[]"}, "float8", true, regrFinal(func(r regrState) any {
			switch {
			case r.sxx == 0:
				return nil
			case r.syy == 0:
				return 1.0
			}
			return r.sxy * r.sxy / (r.sxx * r.syy)
		})).WithDescription("aggregate final function"),
	}
}
