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
	"errors"
	"fmt"
	"strings"
)

// Rule names a validation check. Rules are evaluated in declaration order.
type Rule int

const (
	RuleArgumentShape Rule = iota
	RuleSerializationPair
	RuleMovingSet
	RuleSignature
	RuleSerializationEligibility
	RuleSortOperator
	RuleInitialLiteral
)

// Sentinel errors, one per validation rule.
var (
	ErrInvalidArgumentShape        = errors.New("invalid argument shape")
	ErrIncompleteSerializationPair = errors.New("incomplete serialization pair")
	ErrIncompleteMovingSet         = errors.New("incomplete moving-aggregate set")
	ErrSignatureMismatch           = errors.New("signature mismatch")
	ErrUnnecessarySerialization    = errors.New("unnecessary serialization")
	ErrInvalidSortOperator         = errors.New("invalid sort operator")
	ErrInvalidInitialLiteral       = errors.New("invalid initial literal")
)

var ruleErrors = [...]error{
	RuleArgumentShape:            ErrInvalidArgumentShape,
	RuleSerializationPair:        ErrIncompleteSerializationPair,
	RuleMovingSet:                ErrIncompleteMovingSet,
	RuleSignature:                ErrSignatureMismatch,
	RuleSerializationEligibility: ErrUnnecessarySerialization,
	RuleSortOperator:             ErrInvalidSortOperator,
	RuleInitialLiteral:           ErrInvalidInitialLiteral,
}

var ruleNames = [...]string{
	RuleArgumentShape:            "INVALID_ARGUMENT_SHAPE",
	RuleSerializationPair:        "INCOMPLETE_SERIALIZATION_PAIR",
	RuleMovingSet:                "INCOMPLETE_MOVING_SET",
	RuleSignature:                "SIGNATURE_MISMATCH",
	RuleSerializationEligibility: "UNNECESSARY_SERIALIZATION",
	RuleSortOperator:             "INVALID_SORT_OPERATOR",
	RuleInitialLiteral:           "INVALID_INITIAL_LITERAL",
}

func (r Rule) String() string {
	if r < 0 || int(r) >= len(ruleNames) {
		return "UNKNOWN_RULE"
	}
	return ruleNames[r]
}

// Err returns the sentinel error of the rule.
func (r Rule) Err() error {
	if r < 0 || int(r) >= len(ruleErrors) {
		return nil
	}
	return ruleErrors[r]
}

// ValidationError reports an inconsistent aggregate definition. It matches
// the sentinel of its rule with errors.Is.
type ValidationError struct {
	Rule      Rule
	Aggregate string
	// Fields lists the catalog fields involved, e.g. serialfunc.
	Fields  []string
	Message string
	// Cause is an underlying error, such as a literal parse failure.
	Cause error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] aggregate %s: %s", e.Rule, e.Aggregate, e.Message))
	if len(e.Fields) > 0 {
		b.WriteString(fmt.Sprintf(" (fields: %s)", strings.Join(e.Fields, ", ")))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	errs := []error{e.Rule.Err()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}
