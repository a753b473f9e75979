// Package events delivers domain events after the unit of work that
// produced them has committed. Delivery is best effort.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josh-kwaku/ledger-engine/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// Envelope is the wire form of an event.
type Envelope struct {
	EventID    uuid.UUID        `json:"event_id"`
	Type       domain.EventType `json:"type"`
	AccountID  uuid.UUID        `json:"account_id"`
	OccurredAt time.Time        `json:"occurred_at"`
	Data       json.RawMessage  `json:"data"`
}

func NewEnvelope(e domain.Event) (Envelope, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("NewEnvelope: %w", err)
	}
	meta := e.Meta()
	return Envelope{
		EventID:    meta.EventID,
		Type:       e.Type(),
		AccountID:  e.Aggregate(),
		OccurredAt: meta.OccurredAt,
		Data:       data,
	}, nil
}

type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events []domain.Event) error {
	for _, e := range events {
		p.logger.InfoContext(ctx, "domain event",
			"event_type", e.Type(),
			"event_id", e.Meta().EventID,
			"account_id", e.Aggregate(),
		)
	}
	return nil
}

type fanout []Publisher

// Fanout publishes to every publisher and joins their errors.
func Fanout(pubs ...Publisher) Publisher {
	return fanout(pubs)
}

func (f fanout) Publish(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
