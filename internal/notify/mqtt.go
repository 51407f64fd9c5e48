package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Timeout     time.Duration
}

// MQTT publishes alerts as JSON to <prefix>/<organization_id>/safety.
type MQTT struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

func NewMQTT(cfg MQTTConfig, log *slog.Logger) (*MQTT, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("Connected to MQTT broker", slog.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("Lost MQTT connection", slog.String("broker", cfg.Broker), slog.Any("error", err))
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		// SetConnectRetry keeps trying in the background; publishes fail until then.
		log.Warn("MQTT broker not reachable yet", slog.String("broker", cfg.Broker))
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTT{client: client, prefix: cfg.TopicPrefix, timeout: cfg.Timeout}, nil
}

// Topic returns the topic alerts of an organization are published on.
func Topic(prefix string, orgID uuid.UUID) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return orgID.String() + "/safety"
	}
	return prefix + "/" + orgID.String() + "/safety"
}

func (m *MQTT) Notify(ctx context.Context, alert Alert) error {
	if !m.client.IsConnected() {
		return errors.New("not connected to MQTT broker")
	}
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	token := m.client.Publish(Topic(m.prefix, alert.OrganizationID), 1, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.timeout):
		return errors.New("MQTT publish timeout")
	}
}

func (m *MQTT) Close() {
	if m.client.IsConnected() {
		m.client.Disconnect(250)
	}
}
