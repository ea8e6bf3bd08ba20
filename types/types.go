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
	"errors"
	"fmt"
)

// Datum is a single SQL value. A nil Datum is SQL NULL.
type Datum = any

// Builtin type names.
const (
	NameInt4      = "int4"
	NameInt8      = "int8"
	NameFloat8    = "float8"
	NameNumeric   = "numeric"
	NameBool      = "bool"
	NameText      = "text"
	NameBytea     = "bytea"
	NameInt8Arr   = "int8[]"
	NameFloat8Arr = "float8[]"
	NameInternal  = "internal"
	NameAny       = "any"
)

var (
	// ErrNoLiteral is returned by ParseLiteral for types without a text input form.
	ErrNoLiteral = errors.New("type has no literal input form")
	// ErrNotComparable is returned when two values have no ordering.
	ErrNotComparable = errors.New("values are not comparable")
)

// Type is the collaborator contract every semantic type referenced by an
// aggregate definition exposes: a literal parser for initial values, an
// ordering comparator, input coercion and whether its values are opaque.
type Type interface {
	// Name returns the canonical type name.
	Name() string
	// Opaque reports whether values are pointer-like in-memory structures that
	// cannot be copied verbatim across a process or serialization boundary.
	Opaque() bool
	// ParseLiteral parses a persisted text literal into a value of this type.
	ParseLiteral(lit string) (Datum, error)
	// Compare orders two non-NULL values of this type.
	Compare(a, b Datum) (int, error)
	// Coerce converts a loosely typed Go value into this type's representation.
	Coerce(v any) (Datum, error)
	// Format renders a value the way ParseLiteral reads it back.
	Format(d Datum) string
}

// scalarType is the table-driven Type implementation used for all builtins.
type scalarType struct {
	name    string
	opaque  bool
	parse   func(string) (Datum, error)
	compare func(a, b Datum) (int, error)
	coerce  func(any) (Datum, error)
	format  func(Datum) string
}

func (t *scalarType) Name() string { return t.name }

func (t *scalarType) Opaque() bool { return t.opaque }

func (t *scalarType) ParseLiteral(lit string) (Datum, error) {
	if t.parse == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLiteral, t.name)
	}
	v, err := t.parse(lit)
	if err != nil {
		return nil, fmt.Errorf("invalid input syntax for type %s: %q: %w", t.name, lit, err)
	}
	return v, nil
}

func (t *scalarType) Compare(a, b Datum) (int, error) {
	if t.compare == nil {
		return CompareValues(a, b)
	}
	return t.compare(a, b)
}

func (t *scalarType) Coerce(v any) (Datum, error) {
	if v == nil {
		return nil, nil
	}
	if t.coerce == nil {
		return v, nil
	}
	d, err := t.coerce(v)
	if err != nil {
		return nil, fmt.Errorf("cannot coerce %T to %s: %w", v, t.name, err)
	}
	return d, nil
}

func (t *scalarType) Format(d Datum) string {
	if d == nil {
		return "NULL"
	}
	if t.format == nil {
		return fmt.Sprintf("%v", d)
	}
	return t.format(d)
}

func (t *scalarType) String() string { return t.name }

// Matches reports whether a value of type actual may be passed where param is
// declared. The pseudo-type "any" matches every type.
func Matches(param, actual string) bool {
	param, actual = Normalize(param), Normalize(actual)
	return param == NameAny || param == actual
}

// SameType reports whether two types have the same canonical name.
func SameType(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name() == b.Name()
}
