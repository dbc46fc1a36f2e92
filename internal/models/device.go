package models

// ControlState is the actuation flag consumed by the relay firmware.
type ControlState string

const (
	ControlOn  ControlState = "on"
	ControlOff ControlState = "off"
)

// Manual bypass flag values stored under relay_control.main_status.
const (
	MainStatusOn  = "ON"
	MainStatusOff = "OFF"
)

// Root-level display status values.
const (
	StatusOn     = "ON"
	StatusOff    = "OFF"
	StatusUnplug = "UNPLUG"
)

// Device mirrors one outlet document under devices/<outletKey>.
type Device struct {
	Control      Control             `json:"control"`
	RelayControl RelayControl        `json:"relay_control"`
	Schedule     *Schedule           `json:"schedule,omitempty"`
	DailyLogs    map[string]DailyLog `json:"daily_logs,omitempty"`
	Status       string              `json:"status,omitempty"`
	OfficeInfo   OfficeInfo          `json:"office_info,omitempty"`
}

// Control holds the actuation flag the relay firmware polls.
type Control struct {
	Device ControlState `json:"device"`
}

// RelayControl holds the manual override flag and the individual cutoff limit.
type RelayControl struct {
	MainStatus string     `json:"main_status,omitempty"`
	AutoCutoff AutoCutoff `json:"auto_cutoff"`
}

// AutoCutoff carries the individual limit threshold, in the same
// kWh-equivalent units as the daily logs. Zero means no individual limit.
type AutoCutoff struct {
	PowerLimit float64 `json:"power_limit"`
}

// Schedule is the on/off window descriptor for an outlet. Two encodings
// exist in the wild: a 24h StartTime/EndTime pair, or a single 12h
// TimeRange string ("h:mm AM/PM - h:mm AM/PM"). When both are present the
// TimeRange string wins.
type Schedule struct {
	StartTime        string `json:"startTime,omitempty"`
	EndTime          string `json:"endTime,omitempty"`
	TimeRange        string `json:"timeRange,omitempty"`
	Frequency        string `json:"frequency,omitempty"`
	DisabledByUnplug bool   `json:"disabled_by_unplug,omitempty"`
}

// HasWindow reports whether the schedule carries a usable time window.
func (s *Schedule) HasWindow() bool {
	if s == nil {
		return false
	}
	return s.TimeRange != "" || (s.StartTime != "" && s.EndTime != "")
}

// DailyLog is one day's aggregated statistics for an outlet. Energy is in
// kWh, power figures in watts. Append-only input; the control engine never
// mutates these.
type DailyLog struct {
	TotalEnergy    float64 `json:"total_energy"`
	AvgPower       float64 `json:"avg_power"`
	PeakPower      float64 `json:"peak_power"`
	UsageTimeHours float64 `json:"usage_time_hours"`
}

// OfficeInfo is display metadata kept on the device document.
type OfficeInfo struct {
	Office     string `json:"office,omitempty"`
	Department string `json:"department,omitempty"`
	Appliance  string `json:"appliance,omitempty"`
}

// CurrentControl returns the actuation flag, defaulting to off when the
// document has no control subtree yet.
func (d *Device) CurrentControl() ControlState {
	if d == nil || d.Control.Device == "" {
		return ControlOff
	}
	return d.Control.Device
}

// Bypassed reports whether the manual override flag is set.
func (d *Device) Bypassed() bool {
	return d != nil && d.RelayControl.MainStatus == MainStatusOn
}

// Unplugged reports whether the outlet was detected as physically
// disconnected.
func (d *Device) Unplugged() bool {
	return d != nil && d.Schedule != nil && d.Schedule.DisabledByUnplug
}
