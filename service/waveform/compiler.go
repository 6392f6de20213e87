// Copyright 2024 Yang Xie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package waveform turns pulse parameters into the transition sequences
// the output channels play back.
package waveform

import (
	"fmt"
	"math"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
)

const (
	// TicksPerMicro is the number of timing counter ticks per microsecond
	// (80 MHz counting clock, no divider).
	TicksPerMicro = 80
	// MaxTicks is the largest duration the 32-bit hardware counter can hold.
	MaxTicks = math.MaxUint32
)

// Segment is a single output level held for a number of counter ticks.
// A zero tick count is legal and means "transition immediately".
type Segment struct {
	Level bool
	Ticks uint32
}

// Waveform is the ordered sequence of segments for one output channel.
// A double pulse is always exactly four segments.
type Waveform []Segment

// TotalTicks returns the summed duration of all segments.
func (w Waveform) TotalTicks() uint64 {
	var sum uint64
	for _, s := range w {
		sum += uint64(s.Ticks)
	}
	return sum
}

// Inverted returns a copy of the waveform with every level flipped
// and all durations unchanged.
func (w Waveform) Inverted() Waveform {
	result := make(Waveform, len(w))
	for i, s := range w {
		result[i] = Segment{Level: !s.Level, Ticks: s.Ticks}
	}
	return result
}

// OverflowError indicates that a requested duration does not fit
// the hardware counter.
type OverflowError struct {
	// Name of the offending parameter field
	Field string
	// Requested duration in microseconds
	Micros uint32
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("duration '%s' of %dus exceeds %d counter ticks", e.Field, e.Micros, uint64(MaxTicks))
}

// Compile converts the given parameters into the positive and the
// complementary negative waveform.
// The positive waveform is high for pulse1-high, low for pulse1-low,
// high for pulse2-high and low for pulse2-low; the negative waveform
// has identical timing with every level inverted.
// Compile is pure: it performs no hardware access and no shared-state
// mutation, so it is safe to call with a parameter snapshot.
func Compile(p model.PulseParameters) (positive, negative Waveform, err error) {
	values := [4]uint32{p.Pulse1High, p.Pulse1Low, p.Pulse2High, p.Pulse2Low}
	names := [4]string{"p1h", "p1l", "p2h", "p2l"}
	ticks := [4]uint32{}
	for i, micros := range values {
		t := uint64(micros) * TicksPerMicro
		if t > MaxTicks {
			return nil, nil, &OverflowError{Field: names[i], Micros: micros}
		}
		ticks[i] = uint32(t)
	}
	positive = Waveform{
		{Level: true, Ticks: ticks[0]},
		{Level: false, Ticks: ticks[1]},
		{Level: true, Ticks: ticks[2]},
		{Level: false, Ticks: ticks[3]},
	}
	return positive, positive.Inverted(), nil
}
