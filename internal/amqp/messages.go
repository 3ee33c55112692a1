package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Record kinds and actions carried by a LedgerEvent.
const (
	KindTransaction = "transaction"
	KindBudget      = "budget"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// LedgerEvent announces that a ledger record changed and which month it touched.
// Consumers reload whatever they need from the store.
type LedgerEvent struct {
	Owner     string    `json:"owner"`
	Kind      string    `json:"kind"`
	Action    string    `json:"action"`
	RecordID  string    `json:"recordId"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(owner, kind, action, recordID string, month, year int) *LedgerEvent {
	return &LedgerEvent{
		Owner:     owner,
		Kind:      kind,
		Action:    action,
		RecordID:  recordID,
		Month:     month,
		Year:      year,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Owner == "" {
		return nil, errors.New("ledger event without owner")
	}
	if msg.Month < 1 || msg.Month > 12 || msg.Year == 0 {
		return nil, errors.New("ledger event without a valid month")
	}
	return &msg, nil
}
