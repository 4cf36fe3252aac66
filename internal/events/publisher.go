package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hfl-auth/internal/client"
	"hfl-auth/internal/util"
)

const (
	TypeOTPRequested = "otp_requested"
	TypeOTPVerified  = "otp_verified"
	TypeOTPRejected  = "otp_rejected"
	TypeLogin        = "login"
)

// Event is one auth lifecycle occurrence. It never carries the code itself.
type Event struct {
	ID     string            `json:"id"`
	Type   string            `json:"type"`
	Phone  string            `json:"phone"`
	At     time.Time         `json:"at"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Publisher fans auth events out to kafka. A nil Publisher is valid and drops
// everything, so callers never branch on whether eventing is configured.
type Publisher struct {
	producer *client.KafkaProducer
}

func NewPublisher(producer *client.KafkaProducer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish is fire-and-forget: a broker fault is logged, never surfaced to the
// auth flow.
func (p *Publisher) Publish(ctx context.Context, eventType, phone string, fields map[string]string) {
	if p == nil || p.producer == nil {
		return
	}

	event := Event{
		ID:     uuid.NewString(),
		Type:   eventType,
		Phone:  phone,
		At:     time.Now().UTC(),
		Fields: fields,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		util.Error("Failed to encode auth event", zap.Error(err))
		return
	}

	if err := p.producer.ProduceMessage(ctx, []byte(phone), payload, map[string]string{
		"event_type": eventType,
	}); err != nil {
		util.Warn("Failed to publish auth event",
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}
