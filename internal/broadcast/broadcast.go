// Package broadcast is the live-update port: newly accepted reads are pushed
// to connected viewers. Best-effort and non-blocking for ingestion.
package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"alpr-service/internal/config"
	"alpr-service/internal/model"
)

// NewReadEvent is the payload published for each accepted occurrence.
type NewReadEvent struct {
	EventID         string          `json:"event_id"`
	ReadID          int64           `json:"read_id"`
	PlateNumber     string          `json:"plate_number"`
	CanonicalPlate  string          `json:"canonical_plate"`
	Timestamp       time.Time       `json:"timestamp"`
	CameraName      *string         `json:"camera_name"`
	ImageData       *string         `json:"image_data"`
	OccurrenceCount int64           `json:"occurrence_count"`
	KnownName       *string         `json:"known_name"`
	Tags            []model.TagInfo `json:"tags"`
}

type Broadcaster interface {
	NewRead(event NewReadEvent) error
}

// MQTTBroadcaster publishes read events to a fixed topic.
type MQTTBroadcaster struct {
	client mqtt.Client
	topic  string
}

func NewMQTTBroadcaster(cfg config.MQTTConfig) (*MQTTBroadcaster, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("alpr-service").
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect timeout for %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	return &MQTTBroadcaster{client: client, topic: cfg.Topic}, nil
}

func (b *MQTTBroadcaster) NewRead(event NewReadEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	token := b.client.Publish(b.topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish timeout")
	}
	return token.Error()
}

func (b *MQTTBroadcaster) Close() {
	b.client.Disconnect(250)
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) NewRead(NewReadEvent) error { return nil }
