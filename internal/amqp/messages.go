package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType tells the consumer what changed.
type MessageType string

const (
	TypeChargeSync   MessageType = "charge.sync"
	TypePeriodClosed MessageType = "period.closed"
)

// Message is the envelope published on the sync queue. It carries only
// identifiers; consumers load the current record from storage.
type Message struct {
	Type      MessageType `json:"type"`
	ChargeID  int64       `json:"charge_id,omitempty"`
	Period    string      `json:"period,omitempty"`
	ClosureID string      `json:"closure_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewChargeSyncMessage(chargeID int64) *Message {
	return &Message{Type: TypeChargeSync, ChargeID: chargeID, Timestamp: time.Now()}
}

func NewPeriodClosedMessage(period, closureID string) *Message {
	return &Message{Type: TypePeriodClosed, Period: period, ClosureID: closureID, Timestamp: time.Now()}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects envelopes a consumer could not act on.
func (m *Message) Validate() error {
	switch m.Type {
	case TypeChargeSync:
		if m.ChargeID <= 0 {
			return fmt.Errorf("charge sync message without charge id")
		}
	case TypePeriodClosed:
		if m.Period == "" {
			return fmt.Errorf("period closed message without period")
		}
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// MessageFromJSON decodes and validates an envelope.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
