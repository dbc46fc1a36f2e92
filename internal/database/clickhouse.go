package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/engine"
	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	log.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	// Initialize schema
	if err := db.InitSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema() error {
	ctx := context.Background()

	tables := AllTables()
	for _, tableSQL := range tables {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Println("Database schema initialized successfully")
	return nil
}

// SaveReading archives a raw telemetry reading
func (db *ClickHouseDB) SaveReading(reading *models.OutletReading) error {
	ctx := context.Background()

	query := `
		INSERT INTO outlet_telemetry (timestamp, outlet, power_w, energy_kwh, relay, plugged)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	plugged := true
	if reading.Plugged != nil {
		plugged = *reading.Plugged
	}

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.Outlet,
		reading.PowerW,
		reading.EnergyKWh,
		reading.Relay,
		plugged,
	)

	if err != nil {
		return fmt.Errorf("failed to insert telemetry reading: %w", err)
	}

	return nil
}

// RecordDecision archives an applied control decision
func (db *ClickHouseDB) RecordDecision(ctx context.Context, d engine.Decision) error {
	query := `
		INSERT INTO control_decisions (timestamp, outlet, prev_state, next_state, reason, regime, group_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		d.At,
		d.Outlet,
		string(d.Prev),
		string(d.Next),
		d.Reason,
		d.Regime.String(),
		d.GroupKey,
	)

	if err != nil {
		return fmt.Errorf("failed to insert control decision: %w", err)
	}

	return nil
}

// SaveGroupEvent archives a combined-limit enforcement transition
func (db *ClickHouseDB) SaveGroupEvent(ev engine.GroupEvent) error {
	ctx := context.Background()

	query := `
		INSERT INTO group_events (timestamp, group_key, action, usage_kwh, limit_w)
		VALUES (?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		ev.At,
		ev.Group,
		ev.Action,
		ev.UsageKWh,
		ev.LimitW,
	)

	if err != nil {
		return fmt.Errorf("failed to insert group event: %w", err)
	}

	return nil
}

// DailyEnergy returns per-day summed energy for one outlet over [from, to],
// keyed by date in YYYY-MM-DD form. Backs the reporting API.
func (db *ClickHouseDB) DailyEnergy(ctx context.Context, outletKey string, from, to time.Time) (map[string]float64, error) {
	query := `
		SELECT toDate(timestamp) AS day, sum(energy_kwh) AS total
		FROM outlet_telemetry
		WHERE outlet = ? AND timestamp >= ? AND timestamp < ?
		GROUP BY day
		ORDER BY day
	`

	rows, err := db.conn.Query(ctx, query, outletKey, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily energy: %w", err)
	}
	defer rows.Close()

	result := make(map[string]float64)
	for rows.Next() {
		var day time.Time
		var total float64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily energy row: %w", err)
		}
		result[day.Format("2006-01-02")] = total
	}
	return result, rows.Err()
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	return db.conn.Close()
}
