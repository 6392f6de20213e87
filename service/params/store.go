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

// Package params owns the live pulse timing parameters.
package params

import (
	"sync"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
)

// Store holds the pulse parameters in a concurrency safe container.
// Readers always observe a consistent record, never a partial update.
type Store interface {
	// Snapshot returns a consistent copy of all parameter fields.
	Snapshot() model.PulseParameters
	// Apply commits all supplied fields of the update as one atomic unit.
	// Fields not present in the update keep their previous value.
	Apply(update model.ParameterUpdate)
	// Reset puts all parameters back to their documented defaults.
	Reset()
}

// NewStore creates a Store initialized to the default parameters.
func NewStore() Store {
	return &store{
		current: model.DefaultPulseParameters(),
	}
}

type store struct {
	mutex   sync.RWMutex
	current model.PulseParameters
}

// Snapshot returns a consistent copy of all parameter fields.
func (s *store) Snapshot() model.PulseParameters {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.current
}

// Apply commits all supplied fields of the update as one atomic unit.
func (s *store) Apply(update model.ParameterUpdate) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = update.ApplyTo(s.current)
}

// Reset puts all parameters back to their documented defaults.
func (s *store) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = model.DefaultPulseParameters()
}
