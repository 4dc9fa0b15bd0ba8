package acs

import "encoding/json"

// Event Grid event types delivered to the incoming-call webhook
const (
	SubscriptionValidationEventType = "Microsoft.EventGrid.SubscriptionValidationEvent"
	IncomingCallEventType           = "Microsoft.Communication.IncomingCall"
)

// Call Automation lifecycle event types delivered to the callback webhook
const (
	CallConnectedEventType         = "Microsoft.Communication.CallConnected"
	CallDisconnectedEventType      = "Microsoft.Communication.CallDisconnected"
	MediaStreamingStartedEventType = "Microsoft.Communication.MediaStreamingStarted"
	MediaStreamingStoppedEventType = "Microsoft.Communication.MediaStreamingStopped"
	MediaStreamingFailedEventType  = "Microsoft.Communication.MediaStreamingFailed"
)

// EventGridEvent is the Event Grid envelope. Data is kept raw and decoded
// per event type.
type EventGridEvent struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic,omitempty"`
	Subject     string          `json:"subject,omitempty"`
	EventType   string          `json:"eventType"`
	EventTime   string          `json:"eventTime,omitempty"`
	DataVersion string          `json:"dataVersion,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// SubscriptionValidationData is the handshake payload Event Grid sends
// when a webhook subscription is created.
type SubscriptionValidationData struct {
	ValidationCode string `json:"validationCode"`
	ValidationURL  string `json:"validationUrl,omitempty"`
}

// SubscriptionValidationResponse must echo the validation code verbatim
// for the platform to activate the webhook.
type SubscriptionValidationResponse struct {
	ValidationResponse string `json:"validationResponse"`
}

// PhoneNumberIdentifier carries an E.164 phone number
type PhoneNumberIdentifier struct {
	Value string `json:"value"`
}

// CommunicationIdentifier identifies a call participant. Kind selects
// which optional sub-object is populated.
type CommunicationIdentifier struct {
	Kind        string                 `json:"kind"`
	RawID       string                 `json:"rawId"`
	PhoneNumber *PhoneNumberIdentifier `json:"phoneNumber,omitempty"`
}

// CallerID returns the phone number for phoneNumber identifiers and the
// raw id otherwise.
func (ci CommunicationIdentifier) CallerID() string {
	if ci.Kind == "phoneNumber" && ci.PhoneNumber != nil {
		return ci.PhoneNumber.Value
	}
	return ci.RawID
}

// IncomingCallData is the payload of an IncomingCall event
type IncomingCallData struct {
	From                CommunicationIdentifier `json:"from"`
	To                  CommunicationIdentifier `json:"to"`
	CallerDisplayName   string                  `json:"callerDisplayName,omitempty"`
	IncomingCallContext string                  `json:"incomingCallContext"`
	CorrelationID       string                  `json:"correlationId,omitempty"`
}

// CallbackEvent is the cloud-event envelope for call lifecycle
// notifications posted to the callback webhook.
type CallbackEvent struct {
	ID   string       `json:"id,omitempty"`
	Type string       `json:"type"`
	Data CallbackData `json:"data"`
}

// CallbackData is the common payload of lifecycle notifications
type CallbackData struct {
	CallConnectionID     string                `json:"callConnectionId"`
	ServerCallID         string                `json:"serverCallId,omitempty"`
	CorrelationID        string                `json:"correlationId,omitempty"`
	MediaStreamingUpdate *MediaStreamingUpdate `json:"mediaStreamingUpdate,omitempty"`
	ResultInformation    *ResultInformation    `json:"resultInformation,omitempty"`
}

// MediaStreamingUpdate reports streaming status changes
type MediaStreamingUpdate struct {
	ContentType                string `json:"contentType,omitempty"`
	MediaStreamingStatus       string `json:"mediaStreamingStatus,omitempty"`
	MediaStreamingStatusDetail string `json:"mediaStreamingStatusDetails,omitempty"`
}

// ResultInformation carries platform error details on failure events
type ResultInformation struct {
	Code    int    `json:"code,omitempty"`
	SubCode int    `json:"subCode,omitempty"`
	Message string `json:"message,omitempty"`
}
