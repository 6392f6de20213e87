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

// Package transmit drives the two complementary output channels.
package transmit

import (
	"context"
	"runtime"
	"sync"
	"time"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/devices"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/util"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

const (
	// DefaultSettleDelay is the time both channels get to acknowledge
	// their waveform load before the synchronized start.
	DefaultSettleDelay = time.Millisecond * 50
)

// Transmitter sends a compiled waveform pair out on the hardware.
type Transmitter interface {
	// Transmit plays the positive waveform on channel A and the negative
	// waveform on channel B, starting both with minimum skew, and blocks
	// until both channels report completion.
	Transmit(ctx context.Context, positive, negative waveform.Waveform) error
}

type Config struct {
	// Delay between loading both channels and issuing the starts.
	// Defaults to DefaultSettleDelay when zero.
	SettleDelay time.Duration
}

type Dependencies struct {
	Log zerolog.Logger
	// Positive output channel (channel A)
	Positive devices.PulseChannel
	// Negative, complementary output channel (channel B)
	Negative devices.PulseChannel
}

// NewTransmitter creates a Transmitter for the given channel pair.
func NewTransmitter(conf Config, deps Dependencies) (Transmitter, error) {
	if conf.SettleDelay == 0 {
		conf.SettleDelay = DefaultSettleDelay
	}
	deps.Log = deps.Log.With().Str("component", "transmitter").Logger()
	return &transmitter{
		Config:       conf,
		Dependencies: deps,
	}, nil
}

type transmitter struct {
	Config
	Dependencies

	startLock util.SpinLock
}

// Transmit plays the waveform pair on both channels.
func (t *transmitter) Transmit(ctx context.Context, positive, negative waveform.Waveform) error {
	log := t.Log

	// Stop any in-flight output on both channels.
	var stopErrs aerr.AggregateError
	stopErrs.Add(t.Positive.Stop(ctx))
	stopErrs.Add(t.Negative.Stop(ctx))
	if err := stopErrs.AsError(); err != nil {
		return errors.Wrapf(TransmitError, "stop failed: %s", err)
	}

	// Load both channels without starting transmission.
	if err := t.Positive.Load(ctx, positive, false); err != nil {
		return errors.Wrapf(TransmitError, "load positive channel failed: %s", err)
	}
	if err := t.Negative.Load(ctx, negative, false); err != nil {
		return errors.Wrapf(TransmitError, "load negative channel failed: %s", err)
	}

	// Let both loads be acknowledged before starting.
	select {
	case <-time.After(t.SettleDelay):
		// Continue
	case <-ctx.Done():
		return ctx.Err()
	}

	// Issue both starts back to back.
	// Nothing else is allowed in this section; the device under test
	// needs the complementary start edges to align within minimum skew.
	runtime.LockOSThread()
	t.startLock.Lock()
	errPositive := t.Positive.Start()
	errNegative := t.Negative.Start()
	t.startLock.Unlock()
	runtime.UnlockOSThread()

	if errPositive != nil || errNegative != nil {
		// Never leave one channel running while the other never started.
		var abortErrs aerr.AggregateError
		abortErrs.Add(errPositive)
		abortErrs.Add(errNegative)
		abortErrs.Add(t.Positive.Stop(ctx))
		abortErrs.Add(t.Negative.Stop(ctx))
		return errors.Wrapf(TransmitError, "start failed: %s", abortErrs.AsError())
	}

	// Wait until both channels individually report completion.
	// A stuck channel is a fatal hardware condition, so no timeout here.
	var wg sync.WaitGroup
	var waitErrs util.SyncError
	wg.Add(2)
	go func() {
		defer wg.Done()
		waitErrs.Add(t.Positive.WaitDone(ctx))
	}()
	go func() {
		defer wg.Done()
		waitErrs.Add(t.Negative.WaitDone(ctx))
	}()
	wg.Wait()
	if err := waitErrs.AsError(); err != nil {
		return errors.Wrapf(TransmitError, "completion wait failed: %s", err)
	}

	log.Debug().Msg("complementary double pulse sent")
	return nil
}
