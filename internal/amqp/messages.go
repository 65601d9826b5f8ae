package amqp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"finsheet/internal/core"
)

const contentType = "application/json"

var ErrMalformedEvent = errors.New("malformed ledger event")

// NewEventPublishing wraps a ledger event in a persistent AMQP message. The
// event id doubles as the message id so consumers can deduplicate.
func NewEventPublishing(ev core.LedgerEvent) (amqp091.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Type:         string(ev.Kind),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}, nil
}

// EventFromDelivery decodes a delivery body. Events without an id or kind are
// rejected.
func EventFromDelivery(body []byte) (core.LedgerEvent, error) {
	var ev core.LedgerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return core.LedgerEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.ID == "" || ev.Kind == "" {
		return core.LedgerEvent{}, fmt.Errorf("%w: missing id or kind", ErrMalformedEvent)
	}
	return ev, nil
}
