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
	"time"

	"github.com/mattn/go-pubsub"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
)

// GenerationEvent describes the outcome of one double pulse generation.
type GenerationEvent struct {
	// Source that requested the generation
	Source Source `json:"source"`
	// Parameter snapshot the waveforms were compiled from
	Params model.PulseParameters `json:"params"`
	// Error message, empty on success
	Error string `json:"error,omitempty"`
	// Time spent from trigger to completion
	Elapsed time.Duration `json:"elapsed"`
}

// generationEvents fans out generation events to registered receivers.
type generationEvents struct {
	events *pubsub.PubSub
}

func newGenerationEvents() *generationEvents {
	return &generationEvents{
		events: pubsub.New(),
	}
}

func (s *generationEvents) publish(ev GenerationEvent) {
	s.events.Pub(ev)
}

// RegisterGenerationEventReceiver registers a callback that is invoked
// after every generation attempt.
func (s *generationEvents) RegisterGenerationEventReceiver(cb func(GenerationEvent)) context.CancelFunc {
	s.events.Sub(cb)
	return func() {
		s.events.Leave(cb)
	}
}
