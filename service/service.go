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

// Package service wires the double pulse generation engine together:
// parameter store, waveform compiler, dual channel transmitter,
// trigger dispatcher and the hardware button path.
package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/devices"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/mqtt"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/params"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/transmit"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/trigger"
)

var (
	maskAny = errors.WithStack
)

const (
	// DefaultTriggerDelay is the fixed pre-delay the network trigger
	// path applies before starting a generation, matching the operator
	// experience of the button path.
	DefaultTriggerDelay = time.Second
)

// Service runs the double pulse generator.
type Service interface {
	API
	// Run the generator until the given context is cancelled.
	Run(ctx context.Context) error
}

type Config struct {
	// Pre-delay of the network trigger path.
	// Defaults to DefaultTriggerDelay when zero.
	TriggerDelay time.Duration
	// Settle delay between channel load and synchronized start.
	SettleDelay time.Duration
	// Button path delays.
	ButtonPressDelay time.Duration
	ButtonRearmDelay time.Duration
}

type Dependencies struct {
	Log zerolog.Logger
	// Positive output channel (channel A)
	Positive devices.PulseChannel
	// Negative, complementary output channel (channel B)
	Negative devices.PulseChannel
	// Trigger button input
	Button devices.Button
	// Optional event publisher; nil when MQTT is disabled
	Mqtt mqtt.Service
}

// NewService creates a Service instance and returns it.
func NewService(conf Config, deps Dependencies) (Service, error) {
	if conf.TriggerDelay == 0 {
		conf.TriggerDelay = DefaultTriggerDelay
	}
	deps.Log = deps.Log.With().Str("component", "service").Logger()

	store := params.NewStore()
	transmitter, err := transmit.NewTransmitter(transmit.Config{
		SettleDelay: conf.SettleDelay,
	}, transmit.Dependencies{
		Log:      deps.Log,
		Positive: deps.Positive,
		Negative: deps.Negative,
	})
	if err != nil {
		return nil, maskAny(err)
	}
	dispatcher := trigger.NewDispatcher(trigger.Dependencies{
		Log:         deps.Log,
		Params:      store,
		Transmitter: transmitter,
	})
	buttonMonitor, err := trigger.NewButtonMonitor(trigger.ButtonConfig{
		PressDelay: conf.ButtonPressDelay,
		RearmDelay: conf.ButtonRearmDelay,
	}, trigger.ButtonDependencies{
		Log:        deps.Log,
		Button:     deps.Button,
		Dispatcher: dispatcher,
	})
	if err != nil {
		return nil, maskAny(err)
	}
	s := &service{
		Config:        conf,
		Dependencies:  deps,
		params:        store,
		dispatcher:    dispatcher,
		buttonMonitor: buttonMonitor,
	}
	s.updateParameterMetrics(store.Snapshot())
	return s, nil
}

type service struct {
	Config
	Dependencies

	params        params.Store
	dispatcher    trigger.Dispatcher
	buttonMonitor trigger.ButtonMonitor
}

// Run the generator until the given context is cancelled.
func (s *service) Run(ctx context.Context) error {
	log := s.Log

	// Put the hardware in its desired state.
	if err := s.Positive.Configure(ctx); err != nil {
		return maskAny(err)
	}
	defer s.Positive.Close()
	if err := s.Negative.Configure(ctx); err != nil {
		return maskAny(err)
	}
	defer s.Negative.Close()
	if err := s.Button.Configure(ctx); err != nil {
		return maskAny(err)
	}
	defer s.Button.Close()
	if s.Mqtt != nil {
		// s.Mqtt is never mutated after construction; concurrent API
		// calls read it freely. An unconfigured client rejects every
		// Publish with "not connected", which the callers only log.
		if err := s.Mqtt.Configure(ctx); err != nil {
			// The generator must keep working without a broker.
			log.Warn().Err(err).Msg("MQTT configuration failed, events will not be published")
		} else {
			defer s.Mqtt.Close()
		}
	}

	// Forward generation events to the broker.
	cancelEvents := s.dispatcher.RegisterGenerationEventReceiver(func(ev trigger.GenerationEvent) {
		if s.Mqtt == nil {
			return
		}
		lctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.Mqtt.Publish(lctx, ev, "generation"); err != nil {
			log.Debug().Err(err).Msg("Publish of generation event failed")
		}
	})
	defer cancelEvents()

	log.Info().Msg("Double pulse generator ready")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.buttonMonitor.Run(ctx) })
	return g.Wait()
}
