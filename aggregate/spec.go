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
	"strings"

	"github.com/rulego/aggexec/types"
)

// Spec is the persisted, name-based form of an aggregate definition.
// Function and type fields hold names; an empty name means absent.
// InitValue and MInitValue distinguish "no initial value" (nil) from the
// empty literal.
type Spec struct {
	Name          string   `yaml:"name"`
	ArgTypes      []string `yaml:"args,flow,omitempty"`
	Kind          Kind     `yaml:"kind,omitempty"`
	NumDirectArgs int      `yaml:"direct_args,omitempty"`

	TransFn    string `yaml:"sfunc"`
	FinalFn    string `yaml:"finalfunc,omitempty"`
	CombineFn  string `yaml:"combinefunc,omitempty"`
	SerialFn   string `yaml:"serialfunc,omitempty"`
	DeserialFn string `yaml:"deserialfunc,omitempty"`
	FinalExtra bool   `yaml:"finalfunc_extra,omitempty"`

	MTransFn    string `yaml:"msfunc,omitempty"`
	MInvTransFn string `yaml:"minvfunc,omitempty"`
	MFinalFn    string `yaml:"mfinalfunc,omitempty"`
	MFinalExtra bool   `yaml:"mfinalfunc_extra,omitempty"`

	SortOp string `yaml:"sortop,omitempty"`

	TransType   string  `yaml:"stype"`
	TransSpace  int     `yaml:"sspace,omitempty"`
	MTransType  string  `yaml:"mstype,omitempty"`
	MTransSpace int     `yaml:"msspace,omitempty"`
	InitValue   *string `yaml:"initcond,omitempty"`
	MInitValue  *string `yaml:"minitcond,omitempty"`

	// ResultType overrides the result type derived from the final function.
	ResultType string `yaml:"returns,omitempty"`
}

// ID returns the unique identifier name(argtype,...) of the aggregate.
func (s *Spec) ID() string {
	args := make([]string, len(s.ArgTypes))
	for i, a := range s.ArgTypes {
		args[i] = types.Normalize(a)
	}
	return strings.ToLower(s.Name) + "(" + strings.Join(args, ",") + ")"
}

// DirectArgTypes returns the leading direct argument types.
func (s *Spec) DirectArgTypes() []string {
	n := s.NumDirectArgs
	if n < 0 || n > len(s.ArgTypes) {
		return nil
	}
	return s.ArgTypes[:n]
}

// AggregatedArgTypes returns the argument types fed to the transition.
func (s *Spec) AggregatedArgTypes() []string {
	n := s.NumDirectArgs
	if n < 0 || n > len(s.ArgTypes) {
		return s.ArgTypes
	}
	return s.ArgTypes[n:]
}

// HasMoving reports whether any moving-window field is set.
func (s *Spec) HasMoving() bool {
	return s.MTransFn != "" || s.MInvTransFn != "" || s.MTransType != ""
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	c := s
	if s.ArgTypes != nil {
		c.ArgTypes = append([]string(nil), s.ArgTypes...)
	}
	if s.InitValue != nil {
		v := *s.InitValue
		c.InitValue = &v
	}
	if s.MInitValue != nil {
		v := *s.MInitValue
		c.MInitValue = &v
	}
	return c
}

// Literal returns a pointer to v, for initial values.
func Literal(v string) *string { return &v }
