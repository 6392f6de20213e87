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

// Package trigger serializes generation requests from independent
// sources and implements the hardware button path.
package trigger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/params"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/transmit"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/util"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// Source identifies where a trigger request came from.
type Source string

const (
	// SourceNetwork is a trigger from the network configuration interface.
	SourceNetwork Source = "network"
	// SourceButton is a trigger from the hardware button.
	SourceButton Source = "button"
)

// Dispatcher serializes "start a generation" requests so that at most
// one generation runs at a time.
type Dispatcher interface {
	// RequestTrigger compiles the current parameters and transmits the
	// double pulse. When a generation is already running the request is
	// dropped and BusyError is returned.
	RequestTrigger(ctx context.Context, source Source) error
	// Busy returns true while a generation is running.
	Busy() bool
	// RegisterGenerationEventReceiver registers a callback that is
	// invoked after every generation attempt.
	RegisterGenerationEventReceiver(cb func(GenerationEvent)) context.CancelFunc
}

type Dependencies struct {
	Log         zerolog.Logger
	Params      params.Store
	Transmitter transmit.Transmitter
}

// NewDispatcher creates a Dispatcher instance and returns it.
func NewDispatcher(deps Dependencies) Dispatcher {
	deps.Log = deps.Log.With().Str("component", "dispatcher").Logger()
	return &dispatcher{
		Dependencies: deps,
		events:       newGenerationEvents(),
	}
}

type dispatcher struct {
	Dependencies

	// generationLock is the only serialization point for generation.
	// Try-acquire only; a busy lock means the request is dropped.
	generationLock util.SpinLock
	events         *generationEvents
}

// RequestTrigger compiles the current parameters and transmits the double pulse.
func (d *dispatcher) RequestTrigger(ctx context.Context, source Source) error {
	log := d.Log.With().Str("source", string(source)).Logger()
	if !d.generationLock.TryLock() {
		droppedTriggersTotal.WithLabelValues(string(source)).Inc()
		log.Info().Msg("Trigger dropped, generation in progress")
		return maskAny(BusyError)
	}
	defer d.generationLock.Unlock()

	// Once the lock is held the generation belongs to the engine, not
	// the requester. A client disconnecting mid-generation must not
	// abort the playback or fail the completion wait; shutdown unblocks
	// the wait through the channel Close path instead.
	ctx = context.WithoutCancel(ctx)

	triggersTotal.WithLabelValues(string(source)).Inc()
	start := time.Now()
	snapshot := d.Params.Snapshot()
	err := d.generate(ctx, snapshot)
	d.events.publish(GenerationEvent{
		Source:  source,
		Params:  snapshot,
		Error:   errorMessage(err),
		Elapsed: time.Since(start),
	})
	if err != nil {
		generationFailuresTotal.Inc()
		log.Error().Err(err).Msg("Generation failed")
		return err
	}
	log.Info().
		Uint32("p1h", snapshot.Pulse1High).
		Uint32("p1l", snapshot.Pulse1Low).
		Uint32("p2h", snapshot.Pulse2High).
		Uint32("p2l", snapshot.Pulse2Low).
		Msg("Double pulse generated")
	return nil
}

// generate runs one compile+transmit cycle against the given snapshot.
func (d *dispatcher) generate(ctx context.Context, snapshot model.PulseParameters) error {
	positive, negative, err := waveform.Compile(snapshot)
	if err != nil {
		// No partial waveform is ever transmitted.
		return maskAny(err)
	}
	if err := d.Transmitter.Transmit(ctx, positive, negative); err != nil {
		return maskAny(err)
	}
	return nil
}

// Busy returns true while a generation is running.
func (d *dispatcher) Busy() bool {
	return d.generationLock.Locked()
}

// RegisterGenerationEventReceiver registers a callback that is invoked
// after every generation attempt.
func (d *dispatcher) RegisterGenerationEventReceiver(cb func(GenerationEvent)) context.CancelFunc {
	return d.events.RegisterGenerationEventReceiver(cb)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
