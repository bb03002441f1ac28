package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventDeleted EventType = "transaction.deleted"
)

var ErrInvalidEvent = errors.New("invalid transaction event")

// TransactionEvent announces a change to one transaction. It carries only
// the id; consumers fetch the current row from the store.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(t EventType, id string) *TransactionEvent {
	return &TransactionEvent{
		Type:      t,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (e *TransactionEvent) Validate() error {
	switch e.Type {
	case EventCreated, EventDeleted:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	return nil
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return &e, nil
}
