package database

// SQL schemas for all ClickHouse tables

const (
	// OutletTelemetryTableSQL creates the outlet_telemetry table
	OutletTelemetryTableSQL = `
		CREATE TABLE IF NOT EXISTS outlet_telemetry (
			timestamp DateTime64(3),
			outlet String,
			power_w Float64,
			energy_kwh Float64,
			relay String,
			plugged Bool
		) ENGINE = MergeTree()
		ORDER BY (outlet, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// ControlDecisionsTableSQL creates the control_decisions audit table;
	// one row per applied (non-idempotent) arbiter write
	ControlDecisionsTableSQL = `
		CREATE TABLE IF NOT EXISTS control_decisions (
			timestamp DateTime64(3),
			outlet String,
			prev_state String,
			next_state String,
			reason String,
			regime String,
			group_key String
		) ENGINE = MergeTree()
		ORDER BY (outlet, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// GroupEventsTableSQL creates the group_events table for combined-limit
	// enforcement and recovery transitions
	GroupEventsTableSQL = `
		CREATE TABLE IF NOT EXISTS group_events (
			timestamp DateTime64(3),
			group_key String,
			action String,
			usage_kwh Float64,
			limit_w Float64
		) ENGINE = MergeTree()
		ORDER BY (group_key, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		OutletTelemetryTableSQL,
		ControlDecisionsTableSQL,
		GroupEventsTableSQL,
	}
}
