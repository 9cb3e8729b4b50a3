package amqp

import (
	"encoding/json"
	"time"

	"lifebalance/internal/section"
)

// RecordCreatedMessage announces a record appended to a device's collection.
// It carries identifiers only; record contents stay on the device.
type RecordCreatedMessage struct {
	Device  string    `json:"device"`
	Section string    `json:"section"`
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
}

// NewRecordCreatedMessage builds the message for a section event.
func NewRecordCreatedMessage(e section.Event) *RecordCreatedMessage {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	return &RecordCreatedMessage{
		Device:  e.Device,
		Section: string(e.Kind),
		ID:      e.ID,
		Type:    e.Type,
		At:      at.UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordCreatedMessageFromJSON creates a message from JSON bytes
func RecordCreatedMessageFromJSON(data []byte) (*RecordCreatedMessage, error) {
	var msg RecordCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
