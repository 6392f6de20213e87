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
	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/pkg/metrics"
)

const (
	subSystem = "service"
)

var (
	// Total number of parameter updates
	parameterUpdatesTotal = metrics.MustRegisterCounter(subSystem,
		"parameter_updates_total",
		"Total number of parameter updates")
	// Current parameter values in microseconds
	parameterGauge = metrics.MustRegisterGaugeVec(subSystem,
		"parameter_micros",
		"Current pulse parameter values in microseconds",
		"field")
)

// updateParameterMetrics reflects the given parameters in the gauges.
func (s *service) updateParameterMetrics(p model.PulseParameters) {
	parameterGauge.WithLabelValues("p1h").Set(float64(p.Pulse1High))
	parameterGauge.WithLabelValues("p1l").Set(float64(p.Pulse1Low))
	parameterGauge.WithLabelValues("p2h").Set(float64(p.Pulse2High))
	parameterGauge.WithLabelValues("p2l").Set(float64(p.Pulse2Low))
}
