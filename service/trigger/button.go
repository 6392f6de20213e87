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

package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/devices"
)

const (
	// DefaultPressDelay is the settle time between a detected press
	// and the actual trigger.
	DefaultPressDelay = time.Second
	// DefaultRearmDelay is the contact bounce guard between a finished
	// trigger and re-arming the edge detector.
	DefaultRearmDelay = time.Millisecond * 200
	// DefaultPollInterval is the sample interval of the button input.
	DefaultPollInterval = time.Millisecond * 5

	edgeQueueSize = 10
)

// ButtonMonitor watches the hardware button and triggers a generation
// on every debounced press.
type ButtonMonitor interface {
	// Run the monitor until the given context is cancelled.
	Run(ctx context.Context) error
}

type ButtonConfig struct {
	// Settle time between press detection and trigger.
	// Defaults to DefaultPressDelay when zero.
	PressDelay time.Duration
	// Bounce guard before the edge detector is re-armed.
	// Defaults to DefaultRearmDelay when zero.
	RearmDelay time.Duration
	// Sample interval of the button input.
	// Defaults to DefaultPollInterval when zero.
	PollInterval time.Duration
}

type ButtonDependencies struct {
	Log        zerolog.Logger
	Button     devices.Button
	Dispatcher Dispatcher
}

// NewButtonMonitor creates a ButtonMonitor instance and returns it.
func NewButtonMonitor(conf ButtonConfig, deps ButtonDependencies) (ButtonMonitor, error) {
	if conf.PressDelay == 0 {
		conf.PressDelay = DefaultPressDelay
	}
	if conf.RearmDelay == 0 {
		conf.RearmDelay = DefaultRearmDelay
	}
	if conf.PollInterval == 0 {
		conf.PollInterval = DefaultPollInterval
	}
	m := &buttonMonitor{
		ButtonConfig:       conf,
		ButtonDependencies: deps,
		edges:              make(chan struct{}, edgeQueueSize),
	}
	m.ButtonDependencies.Log = deps.Log.With().Str("component", "button").Logger()
	m.armed = 1
	return m, nil
}

type buttonMonitor struct {
	ButtonConfig
	ButtonDependencies

	// armed gates the edge detector; 0 while a press is being handled.
	armed uint32
	edges chan struct{}
}

// Run the monitor until the given context is cancelled.
func (m *buttonMonitor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.watchEdges(ctx) })
	g.Go(func() error { return m.handleEvents(ctx) })
	return g.Wait()
}

// watchEdges detects falling edges on the button input.
// This is the interrupt-service analogue: it only disarms itself and
// hands the event off, it never blocks and never touches the hardware
// output path.
func (m *buttonMonitor) watchEdges(ctx context.Context) error {
	lastPressed := false
	recentErrors := 0
	for {
		select {
		case <-time.After(m.PollInterval):
			// Continue
		case <-ctx.Done():
			// Context cancelled
			return nil
		}

		pressed, err := m.Button.Read(ctx)
		if err != nil {
			// Try again soon
			if recentErrors == 0 {
				m.Log.Info().Err(err).Msg("Button read failed")
			}
			recentErrors++
			continue
		}
		recentErrors = 0
		if pressed && !lastPressed && atomic.LoadUint32(&m.armed) == 1 {
			// Disarm before handing off, like disabling the interrupt
			// source inside the ISR.
			atomic.StoreUint32(&m.armed, 0)
			select {
			case m.edges <- struct{}{}:
				// Event handed off
			default:
				// Queue full, drop the edge
			}
		}
		lastPressed = pressed
	}
}

// handleEvents runs the deferred part of the button path: settle delay,
// trigger, bounce guard, re-arm.
func (m *buttonMonitor) handleEvents(ctx context.Context) error {
	for {
		select {
		case <-m.edges:
			// Button pressed
		case <-ctx.Done():
			// Context cancelled
			return nil
		}

		m.Log.Info().Msg("Button pressed, triggering double pulse")
		if !sleep(ctx, m.PressDelay) {
			return nil
		}
		if err := m.Dispatcher.RequestTrigger(ctx, SourceButton); err != nil && !IsBusy(err) {
			m.Log.Error().Err(err).Msg("Button trigger failed")
		}
		if !sleep(ctx, m.RearmDelay) {
			return nil
		}
		atomic.StoreUint32(&m.armed, 1)
	}
}

// sleep waits for the given duration.
// Returns false when the context was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
