package event

import "time"

const KeyCodeIssuedDestination string = "key.code.issued"
const KeyCodeIssuedConsumerNotification string = "key_code_issued_notification"

// KeyCodeIssuedMessage asks for a one-time code to be delivered by SMS.
// EventID and CorrelationID travel in the body because not every broker
// carries headers.
type KeyCodeIssuedMessage struct {
	EventID       string    `json:"event_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Phone         string    `json:"phone"`
	KeyID         string    `json:"key_id"`
	Op            string    `json:"op"`
	Code          string    `json:"code"`
	IssuedAt      time.Time `json:"issued_at"`
}
