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
	"sync/atomic"
	"time"

	"github.com/ecc1/gpio"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// tickDuration converts counter ticks (12.5ns each) to a duration.
func tickDuration(ticks uint32) time.Duration {
	return time.Duration(uint64(ticks)*25/2) * time.Nanosecond
}

// gpioChannel plays waveforms on a single GPIO output pin.
// Segment timing relies on kernel timers, so actual edge placement is
// bounded by scheduler latency, not by the 12.5ns tick resolution.
type gpioChannel struct {
	pin      int
	idleHigh bool

	mutex sync.Mutex
	out   gpio.OutputPin
	play  *playback
}

// playback is one loaded waveform, waiting to be started or playing.
type playback struct {
	segments []waveform.Segment
	started  uint32
	err      error
	startC   chan struct{}
	stopC    chan struct{}
	stopOnce sync.Once
	doneC    chan struct{}
}

func (p *playback) requestStop() {
	p.stopOnce.Do(func() {
		close(p.stopC)
	})
}

// NewGPIOPulseChannel creates a pulse channel on the given GPIO pin.
// The channel drives idleHigh whenever no waveform is playing.
func NewGPIOPulseChannel(pin int, idleHigh bool) PulseChannel {
	return &gpioChannel{
		pin:      pin,
		idleHigh: idleHigh,
	}
}

// Configure is called once to put the device in the desired state.
func (c *gpioChannel) Configure(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	activeLow := false
	out, err := gpio.Output(c.pin, activeLow, c.idleHigh)
	if err != nil {
		return maskAny(err)
	}
	c.out = out
	return nil
}

// Stop aborts any in-flight playback and drives the idle level.
func (c *gpioChannel) Stop(ctx context.Context) error {
	c.mutex.Lock()
	p := c.play
	c.play = nil
	out := c.out
	c.mutex.Unlock()

	if p != nil {
		p.requestStop()
		select {
		case <-p.doneC:
			// Playback ended
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if out == nil {
		return maskAny(NotConfiguredError)
	}
	if err := out.Write(c.idleHigh); err != nil {
		return maskAny(err)
	}
	return nil
}

// Load stores the given waveform in the channel's output buffer.
func (c *gpioChannel) Load(ctx context.Context, w waveform.Waveform, startNow bool) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.out == nil {
		return maskAny(NotConfiguredError)
	}
	if prev := c.play; prev != nil {
		// Precondition is an idle line; abort whatever is left over.
		prev.requestStop()
		select {
		case <-prev.doneC:
			// Previous playback ended
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p := &playback{
		segments: append([]waveform.Segment(nil), w...),
		startC:   make(chan struct{}),
		stopC:    make(chan struct{}),
		doneC:    make(chan struct{}),
	}
	c.play = p
	go c.run(p)
	if startNow {
		atomic.StoreUint32(&p.started, 1)
		close(p.startC)
	}
	return nil
}

// Start begins playback of the loaded waveform.
// Kept free of allocation and logging; issued from the dual-start section.
func (c *gpioChannel) Start() error {
	c.mutex.Lock()
	p := c.play
	c.mutex.Unlock()
	if p == nil {
		return NotLoadedError
	}
	if !atomic.CompareAndSwapUint32(&p.started, 0, 1) {
		return AlreadyStartedError
	}
	close(p.startC)
	return nil
}

// WaitDone blocks until the loaded waveform has been fully played.
func (c *gpioChannel) WaitDone(ctx context.Context) error {
	c.mutex.Lock()
	p := c.play
	c.mutex.Unlock()
	if p == nil {
		return maskAny(NotLoadedError)
	}
	select {
	case <-p.doneC:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close brings the device back to a safe state.
func (c *gpioChannel) Close() error {
	return c.Stop(context.Background())
}

// run plays the segments of p once startC is closed.
func (c *gpioChannel) run(p *playback) {
	defer close(p.doneC)

	select {
	case <-p.startC:
		// Start playback
	case <-p.stopC:
		return
	}
	for _, s := range p.segments {
		if err := c.out.Write(s.Level); err != nil {
			p.err = maskAny(err)
			return
		}
		if s.Ticks == 0 {
			// Zero-length segment, transition immediately
			continue
		}
		select {
		case <-time.After(tickDuration(s.Ticks)):
			// Continue with next segment
		case <-p.stopC:
			c.out.Write(c.idleHigh)
			return
		}
	}
	if err := c.out.Write(c.idleHigh); err != nil {
		p.err = maskAny(err)
	}
}

// gpioButton reads the trigger button on a GPIO input pin.
// The pin is pulled up externally; a pressed button pulls the line low.
type gpioButton struct {
	pin int
	in  gpio.InputPin
}

// NewGPIOButton creates a button input on the given GPIO pin.
func NewGPIOButton(pin int) Button {
	return &gpioButton{
		pin: pin,
	}
}

// Configure is called once to put the device in the desired state.
func (b *gpioButton) Configure(ctx context.Context) error {
	activeLow := true
	in, err := gpio.Input(b.pin, activeLow)
	if err != nil {
		return maskAny(err)
	}
	b.in = in
	return nil
}

// Read returns true while the button is pressed.
func (b *gpioButton) Read(ctx context.Context) (bool, error) {
	if b.in == nil {
		return false, maskAny(NotConfiguredError)
	}
	value, err := b.in.Read()
	if err != nil {
		return false, maskAny(err)
	}
	return value, nil
}

// Close brings the device back to a safe state.
func (b *gpioButton) Close() error {
	return nil
}
