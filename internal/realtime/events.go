package realtime

import "encoding/json"

// Server event type discriminators
const (
	TypeSessionCreated              = "session.created"
	TypeError                       = "error"
	TypeInputAudioBufferCleared     = "input_audio_buffer.cleared"
	TypeSpeechStarted               = "input_audio_buffer.speech_started"
	TypeSpeechStopped               = "input_audio_buffer.speech_stopped"
	TypeInputTranscriptionCompleted = "conversation.item.input_audio_transcription.completed"
	TypeInputTranscriptionFailed    = "conversation.item.input_audio_transcription.failed"
	TypeResponseDone                = "response.done"
	TypeResponseAudioTranscriptDone = "response.audio_transcript.done"
	TypeResponseAudioDelta          = "response.audio.delta"
	TypeFunctionCallArgumentsDone   = "response.function_call_arguments.done"
)

// ServerEvent is one event received from the speech model. Exactly one
// concrete type exists per known discriminator; everything else decodes
// to UnknownEvent so new server event kinds never break the session.
type ServerEvent interface {
	EventType() string
}

// envelope is used for the first decoding pass to pick the variant
type envelope struct {
	Type string `json:"type"`
}

// ErrorDetail is the error payload shared by error-carrying events
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionCreatedEvent is sent once when the session is established
type SessionCreatedEvent struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	Session struct {
		ID    string `json:"id"`
		Model string `json:"model,omitempty"`
		Voice string `json:"voice,omitempty"`
	} `json:"session"`
}

// ErrorEvent reports an API or conversation level error
type ErrorEvent struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// InputAudioBufferClearedEvent confirms the input buffer was cleared
type InputAudioBufferClearedEvent struct {
	Type string `json:"type"`
}

// SpeechStartedEvent signals voice activity detection at the caller
type SpeechStartedEvent struct {
	Type         string `json:"type"`
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id,omitempty"`
}

// SpeechStoppedEvent signals the end of detected caller speech
type SpeechStoppedEvent struct {
	Type       string `json:"type"`
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id,omitempty"`
}

// InputTranscriptionCompletedEvent carries the caller-side transcript
type InputTranscriptionCompletedEvent struct {
	Type       string `json:"type"`
	ItemID     string `json:"item_id,omitempty"`
	Transcript string `json:"transcript"`
}

// InputTranscriptionFailedEvent reports a transcription failure
type InputTranscriptionFailedEvent struct {
	Type   string      `json:"type"`
	ItemID string      `json:"item_id,omitempty"`
	Error  ErrorDetail `json:"error"`
}

// ResponseDoneEvent marks the end of a model response
type ResponseDoneEvent struct {
	Type     string `json:"type"`
	Response struct {
		ID            string          `json:"id"`
		Status        string          `json:"status,omitempty"`
		StatusDetails json.RawMessage `json:"status_details,omitempty"`
	} `json:"response"`
}

// ResponseAudioTranscriptDoneEvent carries the model-side transcript
type ResponseAudioTranscriptDoneEvent struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

// ResponseAudioDeltaEvent carries one base64 PCM16 audio chunk
type ResponseAudioDeltaEvent struct {
	Type       string `json:"type"`
	ResponseID string `json:"response_id,omitempty"`
	ItemID     string `json:"item_id,omitempty"`
	Delta      string `json:"delta"`
}

// FunctionCallArgumentsDoneEvent signals a complete tool invocation.
// Arguments is a JSON-encoded string; decoding it is the dispatcher's
// concern and may fail without failing the session.
type FunctionCallArgumentsDoneEvent struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// UnknownEvent is any event kind this client does not recognize
type UnknownEvent struct {
	Type string `json:"type"`
	Raw  json.RawMessage
}

func (e *SessionCreatedEvent) EventType() string              { return e.Type }
func (e *ErrorEvent) EventType() string                       { return e.Type }
func (e *InputAudioBufferClearedEvent) EventType() string     { return e.Type }
func (e *SpeechStartedEvent) EventType() string               { return e.Type }
func (e *SpeechStoppedEvent) EventType() string               { return e.Type }
func (e *InputTranscriptionCompletedEvent) EventType() string { return e.Type }
func (e *InputTranscriptionFailedEvent) EventType() string    { return e.Type }
func (e *ResponseDoneEvent) EventType() string                { return e.Type }
func (e *ResponseAudioTranscriptDoneEvent) EventType() string { return e.Type }
func (e *ResponseAudioDeltaEvent) EventType() string          { return e.Type }
func (e *FunctionCallArgumentsDoneEvent) EventType() string   { return e.Type }
func (e *UnknownEvent) EventType() string                     { return e.Type }

// ParseServerEvent decodes one server event into its tagged variant
func ParseServerEvent(raw []byte) (ServerEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}

	var ev ServerEvent
	switch env.Type {
	case TypeSessionCreated:
		ev = &SessionCreatedEvent{}
	case TypeError:
		ev = &ErrorEvent{}
	case TypeInputAudioBufferCleared:
		ev = &InputAudioBufferClearedEvent{}
	case TypeSpeechStarted:
		ev = &SpeechStartedEvent{}
	case TypeSpeechStopped:
		ev = &SpeechStoppedEvent{}
	case TypeInputTranscriptionCompleted:
		ev = &InputTranscriptionCompletedEvent{}
	case TypeInputTranscriptionFailed:
		ev = &InputTranscriptionFailedEvent{}
	case TypeResponseDone:
		ev = &ResponseDoneEvent{}
	case TypeResponseAudioTranscriptDone:
		ev = &ResponseAudioTranscriptDoneEvent{}
	case TypeResponseAudioDelta:
		ev = &ResponseAudioDeltaEvent{}
	case TypeFunctionCallArgumentsDone:
		ev = &FunctionCallArgumentsDoneEvent{}
	default:
		return &UnknownEvent{Type: env.Type, Raw: raw}, nil
	}

	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
