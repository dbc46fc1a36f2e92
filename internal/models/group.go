package models

import (
	"encoding/json"
	"strings"
)

// NoLimit is the literal stored in combined_limit_watts when a group has no cap.
const NoLimit = "No Limit"

// Group device_control values. Same vocabulary as ControlState but kept on
// the group document, where it suppresses member re-activation after a
// combined cutoff.
const (
	GroupControlOn  = "on"
	GroupControlOff = "off"
)

// CombinedLimitGroup mirrors a combined_limit_settings document (global or
// per-department): a shared monthly energy cap over a named set of outlets.
type CombinedLimitGroup struct {
	Enabled           bool       `json:"enabled"`
	SelectedOutlets   []string   `json:"selected_outlets,omitempty"`
	CombinedLimit     LimitValue `json:"combined_limit_watts"`
	DeviceControl     string     `json:"device_control,omitempty"`
	EnforcementReason string     `json:"enforcement_reason,omitempty"`
	LastEnforcement   string     `json:"last_enforcement,omitempty"`
}

// LimitValue is a watt threshold that may also hold the literal "No Limit".
type LimitValue struct {
	Watts     float64
	Unlimited bool
}

// UnmarshalJSON accepts either a number (watts) or the "No Limit" string.
// Any other string is treated as unlimited rather than erroring; limit
// documents are edited by hand often enough that a typo must not take the
// whole sweep down.
func (v *LimitValue) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		v.Watts = n
		v.Unlimited = false
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v.Unlimited = true
		if !strings.EqualFold(strings.TrimSpace(s), NoLimit) && s != "" {
			// Numeric string, e.g. "2000".
			if err := json.Unmarshal([]byte(s), &n); err == nil {
				v.Watts = n
				v.Unlimited = false
			}
		}
		return nil
	}
	v.Unlimited = true
	return nil
}

// MarshalJSON writes the stored representation back out.
func (v LimitValue) MarshalJSON() ([]byte, error) {
	if v.Unlimited {
		return json.Marshal(NoLimit)
	}
	return json.Marshal(v.Watts)
}
