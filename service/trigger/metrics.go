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
	"github.com/kevinxiey/Double-Pulse-Test-DPT/pkg/metrics"
)

const (
	subSystem = "trigger"
)

var (
	// Total number of accepted trigger requests per source
	triggersTotal = metrics.MustRegisterCounterVec(subSystem,
		"triggers_total",
		"Total number of accepted trigger requests per source",
		"source")
	// Total number of dropped trigger requests per source
	droppedTriggersTotal = metrics.MustRegisterCounterVec(subSystem,
		"dropped_triggers_total",
		"Total number of trigger requests dropped while a generation was running",
		"source")
	// Total number of failed generations
	generationFailuresTotal = metrics.MustRegisterCounter(subSystem,
		"generation_failures_total",
		"Total number of generations that failed to compile or transmit")
)
