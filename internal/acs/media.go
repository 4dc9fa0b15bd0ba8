package acs

import "encoding/json"

// Media streaming websocket frames. Note the asymmetric casing: frames
// from the platform use lowerCamel keys, frames sent back use UpperCamel.
// Both shapes are fixed by the platform contract.

// Frame kinds
const (
	KindAudioData = "AudioData"
	KindStopAudio = "StopAudio"
)

// InboundFrame is one JSON text frame received from the platform
type InboundFrame struct {
	Kind      string            `json:"kind"`
	AudioData *InboundAudioData `json:"audioData,omitempty"`
}

// InboundAudioData carries base64 caller audio. Silent is a pointer
// because a frame without the flag must be treated as silent.
type InboundAudioData struct {
	Data        string `json:"data"`
	Timestamp   string `json:"timestamp,omitempty"`
	Participant string `json:"participantRawID,omitempty"`
	Silent      *bool  `json:"silent,omitempty"`
}

// IsSilent reports whether the frame carries no caller speech
func (a *InboundAudioData) IsSilent() bool {
	return a == nil || a.Silent == nil || *a.Silent
}

// ParseInboundFrame decodes one media streaming frame
func ParseInboundFrame(raw []byte) (*InboundFrame, error) {
	var f InboundFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// OutboundFrame is one JSON text frame sent to the platform
type OutboundFrame struct {
	Kind      string             `json:"Kind"`
	AudioData *OutboundAudioData `json:"AudioData"`
	StopAudio *StopAudioData     `json:"StopAudio"`
}

// OutboundAudioData wraps base64 model audio
type OutboundAudioData struct {
	Data string `json:"Data"`
}

// StopAudioData is the empty stop-audio control payload
type StopAudioData struct{}

// NewAudioDataFrame wraps base64 audio for relay to the caller
func NewAudioDataFrame(data string) OutboundFrame {
	return OutboundFrame{
		Kind:      KindAudioData,
		AudioData: &OutboundAudioData{Data: data},
	}
}

// NewStopAudioFrame builds the hard-interrupt control frame that discards
// any model audio the platform has buffered for playback.
func NewStopAudioFrame() OutboundFrame {
	return OutboundFrame{
		Kind:      KindStopAudio,
		StopAudio: &StopAudioData{},
	}
}
