package amqp

import (
	"encoding/json"
	"time"
)

// Mutation actions carried on the wire.
const (
	ActionObligationCreated = "obligation:created"
	ActionObligationUpdated = "obligation:updated"
	ActionPaymentRecorded   = "payment:recorded"
	ActionEntityDeleted     = "entity:deleted"
	ActionSettingsUpdated   = "settings:updated"
)

// MutationMessage announces that the record set changed and any cached
// dashboard summary is no longer current. It carries only identifiers;
// consumers reload from the store.
type MutationMessage struct {
	Action       string    `json:"action"`
	ObligationID int64     `json:"obligation_id,omitempty"`
	EntityID     int64     `json:"entity_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewMutationMessage(action string, obligationID, entityID int64) *MutationMessage {
	return &MutationMessage{
		Action:       action,
		ObligationID: obligationID,
		EntityID:     entityID,
		Timestamp:    time.Now(),
	}
}

func (m *MutationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MutationMessageFromJSON(data []byte) (*MutationMessage, error) {
	var msg MutationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
