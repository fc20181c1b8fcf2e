package gamma

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/saaga0h/gammad/pkg/mqtt"
)

// ContextMessage is published after every applied preset change
type ContextMessage struct {
	Source    string    `json:"source"`
	Host      string    `json:"host"`
	Preset    string    `json:"preset"`
	Gamma     []float64 `json:"gamma"`
	RunID     string    `json:"run_id"`
	Timestamp string    `json:"timestamp"`
}

// MQTTPublisher implements Notifier by publishing display context over MQTT
type MQTTPublisher struct {
	client mqtt.Client
	host   string
	runID  string
	now    func() time.Time
	logger *slog.Logger
}

// NewMQTTPublisher creates a publisher for host's context topic
func NewMQTTPublisher(client mqtt.Client, host, runID string, logger *slog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		host:   host,
		runID:  runID,
		now:    time.Now,
		logger: logger,
	}
}

// PresetApplied publishes a retained context message. Failures are logged only.
func (m *MQTTPublisher) PresetApplied(ctx context.Context, p Preset) {
	if !m.client.IsConnected() {
		m.logger.Debug("MQTT not connected, skipping display context", "preset", p.Name)
		return
	}

	msg := ContextMessage{
		Source:    "gammad",
		Host:      m.host,
		Preset:    p.Name,
		Gamma:     p.Channels(),
		RunID:     m.runID,
		Timestamp: m.now().Format(time.RFC3339),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Failed to marshal display context", "error", err)
		return
	}

	topic := mqtt.DisplayContextTopic(m.host)
	if err := m.client.Publish(topic, 0, true, payload); err != nil {
		m.logger.Warn("Failed to publish display context", "topic", topic, "error", err)
		return
	}

	m.logger.Debug("Published display context", "topic", topic, "preset", p.Name)
}
