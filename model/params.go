package model

// PulseParameters holds the four timing values of a double pulse,
// expressed in microseconds.
// A value of 0 is legal and collapses that segment to zero duration.
type PulseParameters struct {
	// Duration of the first (charging) pulse
	Pulse1High uint32 `json:"p1h"`
	// Off time between the first and second pulse
	Pulse1Low uint32 `json:"p1l"`
	// Duration of the second (measurement) pulse
	Pulse2High uint32 `json:"p2h"`
	// Off time after the second pulse
	Pulse2Low uint32 `json:"p2l"`
}

// DefaultPulseParameters returns the parameters the generator
// starts with after a restart.
func DefaultPulseParameters() PulseParameters {
	return PulseParameters{
		Pulse1High: 5,
		Pulse1Low:  1,
		Pulse2High: 3,
		Pulse2Low:  10000,
	}
}

// ParameterUpdate describes a partial change of pulse parameters.
// Only non-nil fields are applied; the others keep their previous value.
type ParameterUpdate struct {
	Pulse1High *uint32
	Pulse1Low  *uint32
	Pulse2High *uint32
	Pulse2Low  *uint32
}

// IsEmpty returns true when the update contains no fields.
func (u ParameterUpdate) IsEmpty() bool {
	return u.Pulse1High == nil && u.Pulse1Low == nil && u.Pulse2High == nil && u.Pulse2Low == nil
}

// ApplyTo returns a copy of the given parameters with all
// supplied fields of the update applied.
func (u ParameterUpdate) ApplyTo(p PulseParameters) PulseParameters {
	if u.Pulse1High != nil {
		p.Pulse1High = *u.Pulse1High
	}
	if u.Pulse1Low != nil {
		p.Pulse1Low = *u.Pulse1Low
	}
	if u.Pulse2High != nil {
		p.Pulse2High = *u.Pulse2High
	}
	if u.Pulse2Low != nil {
		p.Pulse2Low = *u.Pulse2Low
	}
	return p
}
