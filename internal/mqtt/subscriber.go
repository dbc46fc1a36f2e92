package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/cuatrosht/SmartHomeAnalytics-sub001/internal/models"
)

// Subscriber receives outlet telemetry and writes readings to a channel.
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the telemetry service)
	ReadingChan chan *models.OutletReading

	telemetryTopic string
}

// SubscriberConfig holds configuration for the telemetry subscriber.
type SubscriberConfig struct {
	TelemetryTopic string // e.g. "ecoplug/+/telemetry"
	ChannelSize    int
}

// NewSubscriber creates a telemetry subscriber on an existing client.
func NewSubscriber(client mqtt.Client, config SubscriberConfig) *Subscriber {
	size := config.ChannelSize
	if size <= 0 {
		size = 100
	}
	return &Subscriber{
		client:         client,
		ReadingChan:    make(chan *models.OutletReading, size),
		telemetryTopic: config.TelemetryTopic,
	}
}

// SubscribeAll subscribes to the telemetry topic.
func (s *Subscriber) SubscribeAll() error {
	if s.telemetryTopic == "" {
		return nil
	}
	token := s.client.Subscribe(s.telemetryTopic, 1, s.handleTelemetry)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", token.Error())
	}
	log.Printf("Subscribed to telemetry topic: %s", s.telemetryTopic)
	return nil
}

// handleTelemetry parses a telemetry message and forwards it. The outlet key
// comes from the topic when the payload omits it (ecoplug/<outlet>/telemetry).
func (s *Subscriber) handleTelemetry(_ mqtt.Client, msg mqtt.Message) {
	var reading models.OutletReading
	if err := json.Unmarshal(msg.Payload(), &reading); err != nil {
		log.Printf("Error parsing telemetry message on %s: %v", msg.Topic(), err)
		return
	}

	if reading.Outlet == "" {
		reading.Outlet = outletFromTopic(msg.Topic())
	}
	if reading.Outlet == "" {
		log.Printf("Dropping telemetry message with no outlet (topic %s)", msg.Topic())
		return
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now()
	}

	select {
	case s.ReadingChan <- &reading:
	default:
		log.Printf("Telemetry channel full, dropping reading for %s", reading.Outlet)
	}
}

// outletFromTopic extracts the outlet key from ecoplug/<outlet>/telemetry.
func outletFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
