// Package notify pushes urgent safety alerts to chat services and MQTT.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/config"
	"github.com/n1kh11p/blokt-sub000/internal/models"
)

// Alert is the payload sent for a safety alert.
type Alert struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID uuid.UUID       `json:"organization_id"`
	ProjectID      *uuid.UUID      `json:"project_id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Severity       models.Severity `json:"severity"`
	OSHACode       string          `json:"osha_code,omitempty"`
	ReportedBy     string          `json:"reported_by"`
	ReportedAt     time.Time       `json:"reported_at"`
}

// FromSafetyAlert builds the payload for a stored alert.
func FromSafetyAlert(alert *models.SafetyAlert, reporter string) Alert {
	return Alert{
		ID:             alert.ID,
		OrganizationID: alert.OrganizationID,
		ProjectID:      alert.ProjectID,
		Title:          alert.Title,
		Description:    alert.Description,
		Severity:       alert.Severity,
		OSHACode:       alert.OSHACode,
		ReportedBy:     reporter,
		ReportedAt:     alert.CreatedAt,
	}
}

// Message renders the alert as a short human-readable text.
func (a Alert) Message() string {
	msg := fmt.Sprintf("[%s] %s", a.Severity, a.Title)
	if a.OSHACode != "" {
		msg += " (OSHA " + a.OSHACode + ")"
	}
	if a.Description != "" {
		msg += "\n" + a.Description
	}
	if a.ReportedBy != "" {
		msg += "\nReported by " + a.ReportedBy
	}
	return msg
}

// Notifier delivers alerts to one channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	Close()
}

// Noop drops every alert.
type Noop struct{}

func (Noop) Notify(context.Context, Alert) error { return nil }
func (Noop) Close()                              {}

// Multi fans an alert out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() {
	for _, n := range m {
		n.Close()
	}
}

// New builds the notifiers enabled in cfg. With none configured it returns Noop.
func New(cfg *config.Config, log *slog.Logger) (Notifier, error) {
	var notifiers Multi

	if len(cfg.NotifyURLs) > 0 {
		s, err := NewShoutrrr(cfg.NotifyURLs, cfg.NotifyTimeout)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, s)
	}

	if cfg.MQTTBroker != "" {
		m, err := NewMQTT(MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Timeout:     cfg.NotifyTimeout,
		}, log)
		if err != nil {
			notifiers.Close()
			return nil, err
		}
		notifiers = append(notifiers, m)
	}

	switch len(notifiers) {
	case 0:
		return Noop{}, nil
	case 1:
		return notifiers[0], nil
	default:
		return notifiers, nil
	}
}
