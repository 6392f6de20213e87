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

// Package devices contains the hardware boundary of the pulse generator:
// the output channels the waveforms are played on and the trigger
// button input.
package devices

import (
	"context"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// Device contains the API that is supported by all types of devices.
type Device interface {
	// Configure is called once to put the device in the desired state.
	Configure(ctx context.Context) error
	// Close brings the device back to a safe state.
	Close() error
}

// PulseChannel is a single hardware output line that can play back
// a loaded waveform.
type PulseChannel interface {
	Device
	// Stop aborts any in-flight playback and drives the idle level.
	Stop(ctx context.Context) error
	// Load stores the given waveform in the channel's output buffer.
	// When startNow is set, playback begins immediately; otherwise the
	// channel waits for Start.
	Load(ctx context.Context, w waveform.Waveform, startNow bool) error
	// Start begins playback of the loaded waveform.
	// Start performs no logging and no allocation; it is called from
	// the latency-critical dual-start section.
	Start() error
	// WaitDone blocks until the loaded waveform has been fully played.
	// There is no hardware-side timeout; the wait is bounded only by
	// the waveform itself or the given context.
	WaitDone(ctx context.Context) error
}

// Button is the hardware trigger input.
type Button interface {
	Device
	// Read returns true while the button is pressed.
	Read(ctx context.Context) (bool, error)
}
