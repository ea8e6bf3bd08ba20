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

package catalog

import (
	"github.com/rulego/aggexec/aggregate"
)

var lit = aggregate.Literal

// numericAccum returns the spec of an aggregate over the internal numeric
// accumulator: parallel-safe through its serialization pair and movable
// through the inverse transition.
func numericAccum(name, arg, trans, inv, final string) aggregate.Spec {
	return aggregate.Spec{
		Name:        name,
		ArgTypes:    []string{arg},
		TransFn:     trans,
		FinalFn:     final,
		CombineFn:   "numeric_avg_combine",
		SerialFn:    "numeric_avg_serialize",
		DeserialFn:  "numeric_avg_deserialize",
		MTransFn:    trans,
		MInvTransFn: inv,
		MFinalFn:    final,
		TransType:   "internal",
		TransSpace:  128,
		MTransType:  "internal",
		MTransSpace: 128,
	}
}

// numericVariance returns the spec of a variance-family aggregate over the
// numeric accumulator that also tracks the sum of squares.
func numericVariance(name, arg, trans, inv, final string) aggregate.Spec {
	spec := numericAccum(name, arg, trans, inv, final)
	spec.TransSpace, spec.MTransSpace = 256, 256
	return spec
}

// regr returns the spec of a two-argument float8 statistic over the
// {N, Sx, Sxx, Sy, Syy, Sxy} state. Arguments are (Y, X).
func regr(name, final string) aggregate.Spec {
	return aggregate.Spec{
		Name:      name,
		ArgTypes:  []string{"float8", "float8"},
		TransFn:   "float8_regr_accum",
		FinalFn:   final,
		CombineFn: "float8_regr_combine",
		TransType: "float8[]",
		InitValue: lit("{0,0,0,0,0,0}"),
	}
}

func float8Stat(name, final string) aggregate.Spec {
	return aggregate.Spec{
		Name:      name,
		ArgTypes:  []string{"float8"},
		TransFn:   "float8_accum",
		FinalFn:   final,
		CombineFn: "float8_combine",
		TransType: "float8[]",
		InitValue: lit("{0,0,0}"),
	}
}

func minMax(name, typ, fn, sortop string) aggregate.Spec {
	return aggregate.Spec{
		Name:      name,
		ArgTypes:  []string{typ},
		TransFn:   fn,
		CombineFn: fn,
		SortOp:    sortop,
		TransType: typ,
	}
}

func boolAgg(name, fn, mfinal string) aggregate.Spec {
	return aggregate.Spec{
		Name:        name,
		ArgTypes:    []string{"bool"},
		TransFn:     fn,
		CombineFn:   fn,
		MTransFn:    "bool_accum",
		MInvTransFn: "bool_accum_inv",
		MFinalFn:    mfinal,
		SortOp:      sortopFor(name),
		TransType:   "bool",
		MTransType:  "internal",
		MTransSpace: 16,
	}
}

// bool_and is min over booleans and bool_or is max.
func sortopFor(name string) string {
	if name == "bool_or" {
		return ">"
	}
	return "<"
}

func orderedSet(name string, args []string, final string) aggregate.Spec {
	return aggregate.Spec{
		Name:          name,
		ArgTypes:      args,
		Kind:          aggregate.KindOrderedSet,
		NumDirectArgs: 1,
		TransFn:       "ordered_set_transition",
		FinalFn:       final,
		FinalExtra:    true,
		TransType:     "internal",
	}
}

func hypothetical(name, final string) aggregate.Spec {
	return aggregate.Spec{
		Name:          name,
		ArgTypes:      []string{"any", "any"},
		Kind:          aggregate.KindHypothetical,
		NumDirectArgs: 1,
		TransFn:       "ordered_set_transition_multi",
		FinalFn:       final,
		FinalExtra:    true,
		TransType:     "internal",
	}
}

// BuiltinSpecs returns the aggregates every catalog starts with.
func BuiltinSpecs() []aggregate.Spec {
	specs := []aggregate.Spec{
		{
			Name:        "count",
			TransFn:     "int8inc",
			CombineFn:   "int8pl",
			MTransFn:    "int8inc",
			MInvTransFn: "int8dec",
			TransType:   "int8",
			MTransType:  "int8",
			InitValue:   lit("0"),
			MInitValue:  lit("0"),
		},
		{
			Name:        "count",
			ArgTypes:    []string{"any"},
			TransFn:     "int8inc_any",
			CombineFn:   "int8pl",
			MTransFn:    "int8inc_any",
			MInvTransFn: "int8dec_any",
			TransType:   "int8",
			MTransType:  "int8",
			InitValue:   lit("0"),
			MInitValue:  lit("0"),
		},
		{
			Name:        "sum",
			ArgTypes:    []string{"int4"},
			TransFn:     "int4_sum",
			CombineFn:   "int8pl",
			MTransFn:    "int4_avg_accum",
			MInvTransFn: "int4_avg_accum_inv",
			MFinalFn:    "int2int4_sum",
			TransType:   "int8",
			MTransType:  "int8[]",
			MInitValue:  lit("{0,0}"),
		},
		numericAccum("sum", "int8", "int8_avg_accum", "int8_avg_accum_inv", "numeric_sum"),
		numericAccum("sum", "numeric", "numeric_avg_accum", "numeric_accum_inv", "numeric_sum"),
		{
			Name:      "sum",
			ArgTypes:  []string{"float8"},
			TransFn:   "float8pl",
			CombineFn: "float8pl",
			TransType: "float8",
		},
		{
			Name:        "avg",
			ArgTypes:    []string{"int4"},
			TransFn:     "int4_avg_accum",
			FinalFn:     "int8_avg",
			CombineFn:   "int4_avg_combine",
			MTransFn:    "int4_avg_accum",
			MInvTransFn: "int4_avg_accum_inv",
			MFinalFn:    "int8_avg",
			TransType:   "int8[]",
			MTransType:  "int8[]",
			InitValue:   lit("{0,0}"),
			MInitValue:  lit("{0,0}"),
		},
		numericAccum("avg", "int8", "int8_avg_accum", "int8_avg_accum_inv", "numeric_avg"),
		numericAccum("avg", "numeric", "numeric_avg_accum", "numeric_accum_inv", "numeric_avg"),
		float8Stat("avg", "float8_avg"),
		float8Stat("var_pop", "float8_var_pop"),
		float8Stat("var_samp", "float8_var_samp"),
		float8Stat("variance", "float8_var_samp"),
		float8Stat("stddev_samp", "float8_stddev_samp"),
		float8Stat("stddev", "float8_stddev_samp"),
		float8Stat("stddev_pop", "float8_stddev_pop"),
		numericVariance("stddev_pop", "int4", "int4_accum", "int4_accum_inv", "numeric_stddev_pop"),
		numericVariance("stddev_pop", "int8", "int8_accum", "int8_accum_inv", "numeric_stddev_pop"),
		numericVariance("stddev_pop", "numeric", "numeric_accum", "numeric_var_accum_inv", "numeric_stddev_pop"),
		numericVariance("stddev_samp", "numeric", "numeric_accum", "numeric_var_accum_inv", "numeric_stddev_samp"),
		numericVariance("var_pop", "numeric", "numeric_accum", "numeric_var_accum_inv", "numeric_var_pop"),
		numericVariance("var_samp", "numeric", "numeric_accum", "numeric_var_accum_inv", "numeric_var_samp"),
		{
			Name:      "regr_count",
			ArgTypes:  []string{"float8", "float8"},
			TransFn:   "int8inc_float8_float8",
			CombineFn: "int8pl",
			TransType: "int8",
			InitValue: lit("0"),
		},
		regr("regr_sxx", "float8_regr_sxx"),
		regr("regr_syy", "float8_regr_syy"),
		regr("regr_sxy", "float8_regr_sxy"),
		regr("regr_avgx", "float8_regr_avgx"),
		regr("regr_avgy", "float8_regr_avgy"),
		regr("regr_r2", "float8_regr_r2"),
		regr("regr_slope", "float8_regr_slope"),
		regr("regr_intercept", "float8_regr_intercept"),
		regr("covar_pop", "float8_covar_pop"),
		regr("covar_samp", "float8_covar_samp"),
		regr("corr", "float8_corr"),
		boolAgg("bool_and", "booland_statefunc", "bool_alltrue"),
		boolAgg("every", "booland_statefunc", "bool_alltrue"),
		boolAgg("bool_or", "boolor_statefunc", "bool_anytrue"),
		{Name: "bit_and", ArgTypes: []string{"int8"}, TransFn: "int8and", CombineFn: "int8and", TransType: "int8"},
		{Name: "bit_or", ArgTypes: []string{"int8"}, TransFn: "int8or", CombineFn: "int8or", TransType: "int8"},
		{
			Name:      "string_agg",
			ArgTypes:  []string{"text", "text"},
			TransFn:   "string_agg_transfn",
			FinalFn:   "string_agg_finalfn",
			TransType: "internal",
		},
		{
			Name:      "array_agg",
			ArgTypes:  []string{"any"},
			TransFn:   "array_agg_transfn",
			FinalFn:   "array_agg_finalfn",
			TransType: "internal",
		},
		orderedSet("percentile_disc", []string{"float8", "any"}, "percentile_disc_final"),
		orderedSet("percentile_cont", []string{"float8", "float8"}, "percentile_cont_float8_final"),
		hypothetical("rank", "rank_final"),
		hypothetical("dense_rank", "dense_rank_final"),
		hypothetical("percent_rank", "percent_rank_final"),
		hypothetical("cume_dist", "cume_dist_final"),
	}
	for _, typ := range []struct{ name, prefix string }{
		{"int4", "int4"}, {"int8", "int8"}, {"float8", "float8"}, {"numeric", "numeric"}, {"text", "text"},
	} {
		specs = append(specs,
			minMax("max", typ.name, typ.prefix+"larger", ">"),
			minMax("min", typ.name, typ.prefix+"smaller", "<"))
	}
	return specs
}
