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

package executor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rulego/aggexec/aggregate"
)

// ErrStrategyUnavailable is returned when no strategy can evaluate a
// definition in the requested mode.
var ErrStrategyUnavailable = errors.New("execution strategy unavailable")

// Mode is the execution context the caller asks for.
type Mode int

const (
	ModeSequential Mode = iota
	ModeParallelizable
	ModeWindowed
	ModeOrderedSet
)

var modeNames = map[Mode]string{
	ModeSequential:     "sequential",
	ModeParallelizable: "parallelizable",
	ModeWindowed:       "windowed",
	ModeOrderedSet:     "ordered_set",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses a mode name as printed by String.
func ParseMode(name string) (Mode, error) {
	n := strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	for m, s := range modeNames {
		if s == n {
			return m, nil
		}
	}
	if n == "parallel" {
		return ModeParallelizable, nil
	}
	return 0, fmt.Errorf("unknown execution mode %q", name)
}

// Strategy is the callback sequence chosen for a definition and mode.
type Strategy int

const (
	StrategySequential Strategy = iota
	StrategyParallel
	StrategyMovingWindow
	StrategyWindowRecompute
	StrategyOrderedSet
)

func (s Strategy) String() string {
	switch s {
	case StrategySequential:
		return "sequential"
	case StrategyParallel:
		return "parallel"
	case StrategyMovingWindow:
		return "moving_window"
	case StrategyWindowRecompute:
		return "window_recompute"
	case StrategyOrderedSet:
		return "ordered_set"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Select chooses the strategy for def in mode. It depends only on the
// definition's kind, the presence of its callbacks and the mode.
//
// Ordered-set and hypothetical-set aggregates always run the ordered-set
// protocol and are never parallelized or windowed. A parallelizable normal
// aggregate runs in parallel only with a combine function and a state that
// is either transferable by value or has a serialization pair; otherwise it
// falls back to sequential. Windowed execution is incremental with a moving
// set and recomputes every frame without one.
func Select(def *aggregate.Definition, mode Mode) (Strategy, error) {
	if def.Kind.Ordered() {
		switch mode {
		case ModeSequential, ModeParallelizable, ModeOrderedSet:
			return StrategyOrderedSet, nil
		case ModeWindowed:
			return 0, fmt.Errorf("%w: %s aggregate %s over window frames", ErrStrategyUnavailable, def.Kind, def.ID())
		}
		return 0, fmt.Errorf("%w: %s", ErrStrategyUnavailable, mode)
	}

	switch mode {
	case ModeSequential:
		return StrategySequential, nil
	case ModeParallelizable:
		if def.CanCombine() && (!def.TransType.Opaque() || def.NeedsSerialization()) {
			return StrategyParallel, nil
		}
		return StrategySequential, nil
	case ModeWindowed:
		if def.HasMoving() {
			return StrategyMovingWindow, nil
		}
		return StrategyWindowRecompute, nil
	case ModeOrderedSet:
		return 0, fmt.Errorf("%w: %s is not an ordered-set aggregate", ErrStrategyUnavailable, def.ID())
	}
	return 0, fmt.Errorf("%w: %s", ErrStrategyUnavailable, mode)
}
