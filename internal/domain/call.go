package domain

import "time"

// CallState represents the lifecycle state of a telephony call
type CallState string

const (
	CallStateConnecting   CallState = "connecting"
	CallStateConnected    CallState = "connected"
	CallStateStreaming    CallState = "streaming"
	CallStateDisconnected CallState = "disconnected"
)

// CallSession represents one telephony call tracked by the gateway.
// The call connection id is the opaque handle issued by the call-control
// platform; all control operations (hang-up, media queries) key on it.
type CallSession struct {
	CallConnectionID string    `json:"call_connection_id"`
	CallerID         string    `json:"caller_id"`
	CorrelationID    string    `json:"correlation_id"`
	State            CallState `json:"state"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
