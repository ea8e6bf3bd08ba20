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
	"strings"
)

// Kind classifies how an aggregate consumes its arguments.
type Kind byte

const (
	// KindNormal aggregates have no direct arguments and are order-insensitive.
	KindNormal Kind = 'n'
	// KindOrderedSet aggregates see their aggregated arguments in sorted order
	// and receive direct arguments at finalization.
	KindOrderedSet Kind = 'o'
	// KindHypothetical aggregates rank a hypothetical row, given as the direct
	// arguments, against the sorted aggregated rows.
	KindHypothetical Kind = 'h'
)

// OrDefault maps the zero Kind to KindNormal.
func (k Kind) OrDefault() Kind {
	if k == 0 {
		return KindNormal
	}
	return k
}

// Valid reports whether k is one of the three kinds.
func (k Kind) Valid() bool {
	switch k.OrDefault() {
	case KindNormal, KindOrderedSet, KindHypothetical:
		return true
	}
	return false
}

// Ordered reports whether the kind consumes sorted input.
func (k Kind) Ordered() bool {
	k = k.OrDefault()
	return k == KindOrderedSet || k == KindHypothetical
}

func (k Kind) String() string {
	switch k.OrDefault() {
	case KindNormal:
		return "normal"
	case KindOrderedSet:
		return "ordered"
	case KindHypothetical:
		return "hypothetical"
	default:
		return fmt.Sprintf("kind(%q)", rune(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid aggregate kind %q", rune(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText accepts both the catalog letters and the long names.
func (k *Kind) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "n", "normal":
		*k = KindNormal
	case "o", "ordered", "ordered_set":
		*k = KindOrderedSet
	case "h", "hypothetical":
		*k = KindHypothetical
	default:
		return fmt.Errorf("invalid aggregate kind %q", string(text))
	}
	return nil
}
