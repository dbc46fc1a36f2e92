package energy

// Watts is instantaneous power or a watt-denominated threshold.
type Watts float64

// KilowattHours is accumulated energy as stored in daily logs.
type KilowattHours float64

const wattsPerKilowatt = 1000.0

// AsEnergyThreshold converts a watt-denominated limit into the kWh units the
// daily logs use. Limits are stored in watts throughout the data model while
// every energy figure is kWh; this is the one sanctioned conversion point.
func (w Watts) AsEnergyThreshold() KilowattHours {
	return KilowattHours(float64(w) / wattsPerKilowatt)
}

// Threshold converts a kWh figure back into the watt scale used by limit
// documents, for display and audit records.
func (e KilowattHours) Threshold() Watts {
	return Watts(float64(e) * wattsPerKilowatt)
}
