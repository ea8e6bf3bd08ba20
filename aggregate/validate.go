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

package aggregate

import (
	"fmt"

	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/types"
)

// Check runs every validation rule against a resolved definition and
// returns all failures in rule order.
func Check(d *Definition) []*ValidationError {
	c := &checker{d: d}
	c.shape()
	c.pairing()
	c.signatures()
	c.serialization()
	c.sortOperator()
	c.initialLiterals()
	return c.errs
}

type checker struct {
	d    *Definition
	errs []*ValidationError
}

func (c *checker) fail(rule Rule, cause error, msg string, fields ...string) {
	c.errs = append(c.errs, &ValidationError{
		Rule:      rule,
		Aggregate: c.d.ID(),
		Fields:    fields,
		Message:   msg,
		Cause:     cause,
	})
}

func typeNames(ts []types.Type) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name()
	}
	return names
}

func (c *checker) shape() {
	d := c.d
	if !d.Kind.Valid() {
		c.fail(RuleArgumentShape, nil, fmt.Sprintf("unknown kind %q", rune(d.Kind)), "kind")
		return
	}
	if d.NumDirectArgs < 0 || d.NumDirectArgs > len(d.ArgTypes) {
		c.fail(RuleArgumentShape, nil,
			fmt.Sprintf("direct argument count %d outside [0, %d]", d.NumDirectArgs, len(d.ArgTypes)), "direct_args")
		return
	}
	switch d.Kind {
	case KindNormal:
		if d.NumDirectArgs != 0 {
			c.fail(RuleArgumentShape, nil, "normal aggregates take no direct arguments", "kind", "direct_args")
		}
	case KindOrderedSet:
		if d.NumDirectArgs == 0 {
			c.fail(RuleArgumentShape, nil, "ordered-set aggregates require direct arguments", "kind", "direct_args")
		}
	case KindHypothetical:
		direct, agg := typeNames(d.DirectArgTypes()), typeNames(d.AggregatedArgTypes())
		if len(direct) == 0 || len(direct) != len(agg) {
			c.fail(RuleArgumentShape, nil,
				fmt.Sprintf("hypothetical aggregates need as many direct as aggregated arguments, got %d and %d", len(direct), len(agg)),
				"kind", "direct_args")
			return
		}
		for i := range direct {
			if !types.Matches(direct[i], agg[i]) && !types.Matches(agg[i], direct[i]) {
				c.fail(RuleArgumentShape, nil,
					fmt.Sprintf("hypothetical argument %d is %s, aggregated argument is %s", i+1, direct[i], agg[i]), "args")
				return
			}
		}
	}
}

func (c *checker) pairing() {
	s := &c.d.Spec
	if (s.SerialFn == "") != (s.DeserialFn == "") {
		c.fail(RuleSerializationPair, nil, "serialfunc and deserialfunc must be given together", "serialfunc", "deserialfunc")
	}

	var present, missing []string
	for _, f := range []struct{ field, value string }{
		{"msfunc", s.MTransFn},
		{"minvfunc", s.MInvTransFn},
		{"mstype", s.MTransType},
	} {
		if f.value == "" {
			missing = append(missing, f.field)
		} else {
			present = append(present, f.field)
		}
	}
	switch {
	case len(present) > 0 && len(missing) > 0:
		c.fail(RuleMovingSet, nil, "moving-aggregate set is partially defined", missing...)
	case len(present) == 0 && (s.MFinalFn != "" || s.MInitValue != nil || s.MFinalExtra || s.MTransSpace != 0):
		c.fail(RuleMovingSet, nil, "moving-aggregate options given without msfunc, minvfunc and mstype",
			"mfinalfunc", "minitcond", "mfinalfunc_extra", "msspace")
	}
}

// expect checks that p can be called with params and returns ret.
func (c *checker) expect(field string, p *functions.Proc, params []string, ret string) bool {
	if p == nil {
		return true
	}
	if !p.AcceptsArity(len(params)) {
		c.fail(RuleSignature, nil, fmt.Sprintf("%s cannot take %d arguments", p.Signature(), len(params)), field)
		return false
	}
	for i, want := range params {
		got, _ := p.ParamType(i)
		if !types.Matches(got, want) {
			c.fail(RuleSignature, nil,
				fmt.Sprintf("%s argument %d is %s, want %s", p.Signature(), i+1, got, want), field)
			return false
		}
	}
	if ret != "" && !types.Matches(p.RetType, ret) {
		c.fail(RuleSignature, nil, fmt.Sprintf("%s returns %s, want %s", p.Signature(), p.RetType, ret), field)
		return false
	}
	return true
}

func transParams(state string, agg []string) []string {
	return append([]string{state}, agg...)
}

func finalParams(state string, extra bool, direct []string) []string {
	if !extra {
		return []string{state}
	}
	return append([]string{state}, direct...)
}

// seedable reports whether a strict transition without an initial value
// can adopt the first input as its state.
func seedable(state string, agg []string) bool {
	return len(agg) > 0 && types.Matches(state, agg[0])
}

func (c *checker) signatures() {
	d := c.d
	stype := d.TransType.Name()
	agg, direct := typeNames(d.AggregatedArgTypes()), typeNames(d.DirectArgTypes())
	result := d.ResultType.Name()

	if !c.expect("sfunc", d.TransFn, transParams(stype, agg), stype) {
		return
	}
	if d.TransFn.Strict && d.InitValue == nil && !seedable(stype, agg) {
		c.fail(RuleSignature, nil,
			fmt.Sprintf("strict %s without initcond needs a first argument of type %s", d.TransFn.Name, stype),
			"sfunc", "initcond")
		return
	}
	if !c.expect("finalfunc", d.FinalFn, finalParams(stype, d.FinalExtra, direct), result) {
		return
	}
	if d.TransType.Opaque() && d.FinalFn == nil {
		c.fail(RuleSignature, nil, fmt.Sprintf("state type %s requires a final function", stype), "stype", "finalfunc")
		return
	}
	if d.ResultType.Opaque() {
		c.fail(RuleSignature, nil, fmt.Sprintf("result type cannot be %s", result), "returns")
		return
	}
	if !c.expect("combinefunc", d.CombineFn, []string{stype, stype}, stype) ||
		!c.expect("serialfunc", d.SerialFn, []string{stype}, types.NameBytea) ||
		!c.expect("deserialfunc", d.DeserialFn, []string{types.NameBytea}, stype) {
		return
	}

	m := d.Moving
	if m == nil || m.TransFn == nil || m.InvTransFn == nil || m.TransType == nil {
		return
	}
	mtype := m.TransType.Name()
	if !c.expect("msfunc", m.TransFn, transParams(mtype, agg), mtype) ||
		!c.expect("minvfunc", m.InvTransFn, transParams(mtype, agg), mtype) {
		return
	}
	if m.TransFn.Strict != m.InvTransFn.Strict {
		c.fail(RuleSignature, nil, "msfunc and minvfunc must have the same strictness", "msfunc", "minvfunc")
		return
	}
	if m.TransFn.Strict && m.InitValue == nil && !seedable(mtype, agg) {
		c.fail(RuleSignature, nil,
			fmt.Sprintf("strict %s without minitcond needs a first argument of type %s", m.TransFn.Name, mtype),
			"msfunc", "minitcond")
		return
	}
	if m.FinalFn != nil {
		c.expect("mfinalfunc", m.FinalFn, finalParams(mtype, m.FinalExtra, direct), result)
		return
	}
	if !types.SameType(m.TransType, d.TransType) {
		c.fail(RuleSignature, nil,
			fmt.Sprintf("mstype %s differs from stype %s and no mfinalfunc is given", mtype, stype),
			"mstype", "mfinalfunc")
	}
}

func (c *checker) serialization() {
	d := c.d
	if d.SerialFn == nil && d.DeserialFn == nil {
		return
	}
	if !d.TransType.Opaque() {
		c.fail(RuleSerializationEligibility, nil,
			fmt.Sprintf("state type %s is transferred by value", d.TransType.Name()), "serialfunc", "deserialfunc")
		return
	}
	if d.CombineFn == nil {
		c.fail(RuleSerializationEligibility, nil, "serialization requires a combine function",
			"serialfunc", "deserialfunc", "combinefunc")
	}
}

func (c *checker) sortOperator() {
	d := c.d
	name := d.Spec.SortOp
	if name == "" {
		return
	}
	agg := d.AggregatedArgTypes()
	switch {
	case d.Kind != KindNormal:
		c.fail(RuleSortOperator, nil, "sort operators apply to normal aggregates only", "sortop")
	case len(agg) != 1:
		c.fail(RuleSortOperator, nil, "sort operators require exactly one aggregated argument", "sortop")
	case d.SortOp == nil:
		c.fail(RuleSortOperator, nil,
			fmt.Sprintf("operator %s does not take (%s, %s)", name, agg[0].Name(), agg[0].Name()), "sortop")
	case !d.SortOp.StrictOrdering():
		c.fail(RuleSortOperator, nil, fmt.Sprintf("operator %s is not a strict ordering", name), "sortop")
	}
}

func (c *checker) initialLiterals() {
	d := c.d
	if d.InitValue != nil {
		if _, err := d.TransType.ParseLiteral(*d.InitValue); err != nil {
			c.fail(RuleInitialLiteral, err, fmt.Sprintf("initcond %q is not a valid %s", *d.InitValue, d.TransType.Name()), "initcond")
		}
	}
	if m := d.Moving; m != nil && m.InitValue != nil && m.TransType != nil {
		if _, err := m.TransType.ParseLiteral(*m.InitValue); err != nil {
			c.fail(RuleInitialLiteral, err, fmt.Sprintf("minitcond %q is not a valid %s", *m.InitValue, m.TransType.Name()), "minitcond")
		}
	}
}
