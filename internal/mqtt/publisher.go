package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// Publisher mirrors applied control decisions to the relay firmware.
type Publisher struct {
	client mqtt.Client

	// Topic pattern, e.g. "ecoplug/{outlet}/relay/set"
	relayCommandTopic string
}

// PublisherConfig holds configuration for the command publisher.
type PublisherConfig struct {
	RelayCommandTopic string // e.g. "ecoplug/{outlet}/relay/set"
}

// RelayCommand is the payload the firmware consumes.
type RelayCommand struct {
	State  string    `json:"state"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// NewPublisher creates a relay command publisher on an existing client.
func NewPublisher(client mqtt.Client, config PublisherConfig) *Publisher {
	return &Publisher{
		client:            client,
		relayCommandTopic: config.RelayCommandTopic,
	}
}

// SendRelayCommand publishes the commanded state for one outlet. QoS 1: the
// relay must eventually see the command, duplicates are harmless because the
// payload is absolute state, not a toggle.
func (p *Publisher) SendRelayCommand(_ context.Context, outletKey string, state models.ControlState, reason string) error {
	cmd := RelayCommand{State: string(state), Reason: reason, At: time.Now()}
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal relay command: %w", err)
	}

	topic := formatTopic(p.relayCommandTopic, outletKey)
	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish relay command: %w", token.Error())
	}

	log.Printf("Published relay command %s for %s to topic: %s", state, outletKey, topic)
	return nil
}

// formatTopic replaces the {outlet} placeholder with the outlet key.
func formatTopic(topicPattern, outletKey string) string {
	return strings.ReplaceAll(topicPattern, "{outlet}", outletKey)
}
