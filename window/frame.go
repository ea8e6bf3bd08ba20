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

package window

import (
	"fmt"
)

const (
	TypeTumbling = "tumbling"
	TypeSliding  = "sliding"
	TypeRows     = "rows"
)

// Unbounded as a ROWS BETWEEN offset extends the frame to the partition edge.
const Unbounded = -1

// Frame is the half-open row interval [Start, End) of one window frame.
type Frame struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of rows in the frame.
func (f Frame) Len() int { return f.End - f.Start }

func (f Frame) String() string {
	return fmt.Sprintf("[%d,%d)", f.Start, f.End)
}

func (f Frame) check(n int) error {
	if f.Start < 0 || f.End < f.Start || f.End > n {
		return fmt.Errorf("%w: %s over %d rows", ErrInvalidFrame, f, n)
	}
	return nil
}

// Config describes a frame sequence.
type Config struct {
	Type string `json:"type" yaml:"type"`
	// Size and Slide are row counts for tumbling and sliding frames.
	Size  int `json:"size,omitempty" yaml:"size,omitempty"`
	Slide int `json:"slide,omitempty" yaml:"slide,omitempty"`
	// Preceding and Following are ROWS BETWEEN offsets; Unbounded reaches
	// the partition edge.
	Preceding int `json:"preceding,omitempty" yaml:"preceding,omitempty"`
	Following int `json:"following,omitempty" yaml:"following,omitempty"`
}

// CreateFrames builds the frame sequence described by config over n rows.
func CreateFrames(config Config, n int) ([]Frame, error) {
	switch config.Type {
	case TypeTumbling:
		if config.Size <= 0 {
			return nil, fmt.Errorf("tumbling frames need a positive size, got %d", config.Size)
		}
		return SlidingFrames(n, config.Size, config.Size), nil
	case TypeSliding:
		if config.Size <= 0 || config.Slide <= 0 {
			return nil, fmt.Errorf("sliding frames need a positive size and slide, got %d/%d", config.Size, config.Slide)
		}
		return SlidingFrames(n, config.Size, config.Slide), nil
	case TypeRows:
		if config.Preceding < Unbounded || config.Following < Unbounded {
			return nil, fmt.Errorf("invalid frame offsets %d/%d", config.Preceding, config.Following)
		}
		return RowsBetween(n, config.Preceding, config.Following), nil
	default:
		return nil, fmt.Errorf("unsupported window type: %s", config.Type)
	}
}

// SlidingFrames returns frames of size rows starting every slide rows. The
// last frames are truncated at n.
func SlidingFrames(n, size, slide int) []Frame {
	var frames []Frame
	for start := 0; start < n; start += slide {
		frames = append(frames, Frame{Start: start, End: min(start+size, n)})
	}
	return frames
}

// RowsBetween returns one frame per row i covering
// ROWS BETWEEN preceding PRECEDING AND following FOLLOWING.
func RowsBetween(n, preceding, following int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		start, end := 0, n
		if preceding != Unbounded {
			start = max(0, i-preceding)
		}
		if following != Unbounded {
			end = min(n, i+following+1)
		}
		frames[i] = Frame{Start: start, End: max(start, end)}
	}
	return frames
}
