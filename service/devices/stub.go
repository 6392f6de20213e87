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

package devices

import (
	"context"
	"sync"
	"time"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// stubChannel simulates a pulse channel in memory.
// Used on development machines without GPIO hardware.
type stubChannel struct {
	idleHigh bool

	mutex   sync.Mutex
	level   bool
	loaded  waveform.Waveform
	started bool
	doneC   chan struct{}
}

// NewStubPulseChannel creates a simulated pulse channel.
func NewStubPulseChannel(idleHigh bool) PulseChannel {
	return &stubChannel{
		idleHigh: idleHigh,
		level:    idleHigh,
	}
}

// Configure is called once to put the device in the desired state.
func (c *stubChannel) Configure(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.level = c.idleHigh
	return nil
}

// Stop aborts any in-flight playback and drives the idle level.
func (c *stubChannel) Stop(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.loaded = nil
	c.started = false
	c.doneC = nil
	c.level = c.idleHigh
	return nil
}

// Load stores the given waveform.
func (c *stubChannel) Load(ctx context.Context, w waveform.Waveform, startNow bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.loaded = append(waveform.Waveform(nil), w...)
	c.started = false
	c.doneC = make(chan struct{})
	if startNow {
		c.startLocked()
	}
	return nil
}

// Start begins simulated playback of the loaded waveform.
func (c *stubChannel) Start() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.loaded == nil {
		return NotLoadedError
	}
	if c.started {
		return AlreadyStartedError
	}
	c.startLocked()
	return nil
}

func (c *stubChannel) startLocked() {
	c.started = true
	doneC := c.doneC
	var total time.Duration
	for _, s := range c.loaded {
		total += tickDuration(s.Ticks)
	}
	go func() {
		time.Sleep(total)
		close(doneC)
	}()
}

// WaitDone blocks until the simulated playback has elapsed.
func (c *stubChannel) WaitDone(ctx context.Context) error {
	c.mutex.Lock()
	doneC := c.doneC
	c.mutex.Unlock()
	if doneC == nil {
		return maskAny(NotLoadedError)
	}
	select {
	case <-doneC:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close brings the device back to a safe state.
func (c *stubChannel) Close() error {
	return c.Stop(context.Background())
}

// stubButton simulates a trigger button that is never pressed.
type stubButton struct {
}

// NewStubButton creates a simulated button input.
func NewStubButton() Button {
	return &stubButton{}
}

// Configure is called once to put the device in the desired state.
func (b *stubButton) Configure(ctx context.Context) error {
	return nil
}

// Read returns true while the button is pressed.
func (b *stubButton) Read(ctx context.Context) (bool, error) {
	return false, nil
}

// Close brings the device back to a safe state.
func (b *stubButton) Close() error {
	return nil
}
