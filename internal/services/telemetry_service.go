package services

import (
	"context"
	"log"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/aggregator"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/energy"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/store"
)

// Historian archives raw readings for reporting. Optional.
type Historian interface {
	SaveReading(reading *models.OutletReading) error
}

// TelemetryService drains outlet readings from the MQTT subscriber, rolls
// them into the store's per-day log buckets and flags unplug transitions.
// It is the single writer of daily_logs; the control engine only reads them.
type TelemetryService struct {
	st        store.Store
	agg       *aggregator.Telemetry
	historian Historian

	// Input channel from the MQTT subscriber
	ReadingChan chan *models.OutletReading

	devicesPath string
}

// NewTelemetryService creates a telemetry service reading from readingChan.
func NewTelemetryService(
	st store.Store,
	agg *aggregator.Telemetry,
	historian Historian,
	readingChan chan *models.OutletReading,
	devicesPath string,
) *TelemetryService {
	if devicesPath == "" {
		devicesPath = "devices"
	}
	return &TelemetryService{
		st:          st,
		agg:         agg,
		historian:   historian,
		ReadingChan: readingChan,
		devicesPath: devicesPath,
	}
}

// Start processes readings until the context is cancelled.
func (s *TelemetryService) Start(ctx context.Context) {
	log.Println("TelemetryService: Starting...")
	for {
		select {
		case <-ctx.Done():
			log.Println("TelemetryService: Shutting down...")
			return
		case reading, ok := <-s.ReadingChan:
			if !ok {
				return
			}
			s.process(ctx, reading)
		}
	}
}

// process handles one reading. Each step is best-effort and independently
// logged; a failed store write is healed by the next report.
func (s *TelemetryService) process(ctx context.Context, reading *models.OutletReading) {
	if s.historian != nil {
		if err := s.historian.SaveReading(reading); err != nil {
			log.Printf("Error archiving reading for %s: %v", reading.Outlet, err)
		}
	}

	devPath := s.devicesPath + "/" + reading.Outlet

	// Roll the reading into today's bucket.
	dateKey := energy.DateKey(reading.Timestamp)
	logPath := devPath + "/daily_logs/" + dateKey
	raw, err := s.st.Fetch(ctx, logPath)
	if err != nil {
		log.Printf("Error fetching day bucket for %s: %v", reading.Outlet, err)
		return
	}
	var bucket models.DailyLog
	if _, err := store.Decode(raw, &bucket); err != nil {
		log.Printf("Error decoding day bucket for %s: %v", reading.Outlet, err)
		return
	}
	next := s.agg.Merge(bucket, reading)
	fields := map[string]any{
		"total_energy":     next.TotalEnergy,
		"avg_power":        next.AvgPower,
		"peak_power":       next.PeakPower,
		"usage_time_hours": next.UsageTimeHours,
	}
	if err := s.st.Patch(ctx, logPath, fields); err != nil {
		log.Printf("Error writing day bucket for %s: %v", reading.Outlet, err)
	}

	s.updateUnplug(ctx, reading, devPath)
}

// updateUnplug flips schedule/disabled_by_unplug on state changes. The
// control engine picks the flag up on its next sweep and forces the
// off/UNPLUG state; re-plugging clears the flag and hands the outlet back to
// schedules.
func (s *TelemetryService) updateUnplug(ctx context.Context, reading *models.OutletReading, devPath string) {
	commandedOn := s.commandedOn(ctx, devPath)
	changed, unplugged := s.agg.UnplugVerdict(reading, commandedOn)
	if !changed {
		return
	}
	if err := s.st.Patch(ctx, devPath+"/schedule", map[string]any{"disabled_by_unplug": unplugged}); err != nil {
		log.Printf("Error updating unplug flag for %s: %v", reading.Outlet, err)
		return
	}
	if unplugged {
		log.Printf("Outlet %s marked unplugged", reading.Outlet)
	} else {
		log.Printf("Outlet %s plugged back in", reading.Outlet)
	}
}

func (s *TelemetryService) commandedOn(ctx context.Context, devPath string) bool {
	raw, err := s.st.Fetch(ctx, devPath+"/control/device")
	if err != nil {
		return false
	}
	var state string
	if _, err := store.Decode(raw, &state); err != nil {
		return false
	}
	return models.ControlState(state) == models.ControlOn
}
