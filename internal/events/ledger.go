// Package events publishes control decisions and combined-limit enforcement
// transitions to Kafka for downstream consumers (reporting, alerting).
// Everything here is best-effort: a broker outage never blocks a control
// write.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/engine"
)

// Event kinds.
const (
	KindDecision = "decision"
	KindGroup    = "group_limit"
)

// Event is the wire form of one ledger entry.
type Event struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Outlet   string    `json:"outlet,omitempty"`
	Group    string    `json:"group,omitempty"`
	Prev     string    `json:"prev,omitempty"`
	Next     string    `json:"next,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Action   string    `json:"action,omitempty"`
	UsageKWh float64   `json:"usage_kwh,omitempty"`
	LimitW   float64   `json:"limit_w,omitempty"`
	At       time.Time `json:"at"`
}

// Ledger wraps a kafka writer keyed by outlet/group so per-entity ordering
// is preserved within a partition.
type Ledger struct {
	writer *kafka.Writer
}

// NewLedger creates a ledger publishing to the given topic.
func NewLedger(brokers []string, topic string) *Ledger {
	return &Ledger{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    10,
			BatchTimeout: 100 * time.Millisecond,
		},
	}
}

// EmitDecision publishes one applied control decision.
func (l *Ledger) EmitDecision(ctx context.Context, d engine.Decision) error {
	ev := Event{
		ID:     uuid.NewString(),
		Kind:   KindDecision,
		Outlet: d.Outlet,
		Group:  d.GroupKey,
		Prev:   string(d.Prev),
		Next:   string(d.Next),
		Reason: d.Reason,
		At:     d.At,
	}
	return l.emit(ctx, d.Outlet, ev)
}

// EmitGroupEvent publishes a combined-limit enforcement or recovery.
func (l *Ledger) EmitGroupEvent(ctx context.Context, ge engine.GroupEvent) error {
	ev := Event{
		ID:       uuid.NewString(),
		Kind:     KindGroup,
		Group:    ge.Group,
		Action:   ge.Action,
		UsageKWh: ge.UsageKWh,
		LimitW:   ge.LimitW,
		At:       ge.At,
	}
	return l.emit(ctx, ge.Group, ev)
}

func (l *Ledger) emit(ctx context.Context, key string, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger event: %w", err)
	}
	if err := l.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish ledger event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (l *Ledger) Close() error {
	return l.writer.Close()
}
