// Package events carries domain events between the API process and the
// export worker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type Type string

const (
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
	TransactionsReset  Type = "transaction.reset"
	SavingsSaved       Type = "savings.saved"
)

// Event is a lightweight notification. Consumers load the full record from
// the store.
type Event struct {
	Type          Type      `json:"type"`
	OwnerID       string    `json:"ownerId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Year          int       `json:"year,omitempty"`
	Month         int       `json:"month,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionEvent(t Type, ownerID, transactionID string) Event {
	return Event{Type: t, OwnerID: ownerID, TransactionID: transactionID, Timestamp: time.Now().UTC()}
}

func NewSavingsEvent(ownerID string, year, month int) Event {
	return Event{Type: SavingsSaved, OwnerID: ownerID, Year: year, Month: month, Timestamp: time.Now().UTC()}
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes an event and rejects payloads without type or owner.
func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, err
	}
	if e.Type == "" || e.OwnerID == "" {
		return Event{}, fmt.Errorf("event missing type or owner")
	}
	return e, nil
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	var out []Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
