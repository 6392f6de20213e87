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

package service

import (
	"context"
	"time"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/trigger"
)

// API is the contract the network configuration interface consumes.
type API interface {
	// GetParameters returns the current pulse parameters in microseconds.
	GetParameters(ctx context.Context) (model.PulseParameters, error)
	// SetParameters applies all supplied fields of the update atomically
	// and returns the resulting parameters.
	// No generation is triggered by a parameter change.
	SetParameters(ctx context.Context, update model.ParameterUpdate) (model.PulseParameters, error)
	// Trigger applies the fixed pre-delay and requests a generation.
	Trigger(ctx context.Context) error
	// Busy returns true while a generation is running.
	Busy() bool
}

// GetParameters returns the current pulse parameters in microseconds.
func (s *service) GetParameters(ctx context.Context) (model.PulseParameters, error) {
	return s.params.Snapshot(), nil
}

// SetParameters applies all supplied fields of the update atomically.
func (s *service) SetParameters(ctx context.Context, update model.ParameterUpdate) (model.PulseParameters, error) {
	s.params.Apply(update)
	parameterUpdatesTotal.Inc()
	result := s.params.Snapshot()
	s.updateParameterMetrics(result)
	s.Log.Info().
		Uint32("p1h", result.Pulse1High).
		Uint32("p1l", result.Pulse1Low).
		Uint32("p2h", result.Pulse2High).
		Uint32("p2l", result.Pulse2Low).
		Msg("Updated parameters")
	if s.Mqtt != nil {
		lctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := s.Mqtt.Publish(lctx, result, "params"); err != nil {
			s.Log.Debug().Err(err).Msg("Publish of parameter change failed")
		}
	}
	return result, nil
}

// Trigger applies the fixed pre-delay and requests a generation.
func (s *service) Trigger(ctx context.Context) error {
	select {
	case <-time.After(s.TriggerDelay):
		// Continue
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := s.dispatcher.RequestTrigger(ctx, trigger.SourceNetwork); err != nil {
		return maskAny(err)
	}
	return nil
}

// Busy returns true while a generation is running.
func (s *service) Busy() bool {
	return s.dispatcher.Busy()
}
