package realtime

// SampleRate is the PCM sample rate shared with the telephony leg
const SampleRate = 24000

// SessionUpdate is the session.update configuration payload
type SessionUpdate struct {
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	Modalities              []string                 `json:"modalities,omitempty"`
	ToolChoice              string                   `json:"tool_choice,omitempty"`
	Tools                   []Tool                   `json:"tools,omitempty"`
}

// InputAudioTranscription selects the transcription model for caller audio
type InputAudioTranscription struct {
	Model string `json:"model"`
}

// TurnDetection holds the server VAD configuration
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Tool is a function schema registered with the model
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  ToolParameters `json:"parameters"`
}

// ToolParameters is a JSON-schema object describing tool arguments
type ToolParameters struct {
	Type       string                  `json:"type"`
	Properties map[string]ToolProperty `json:"properties"`
	Required   []string                `json:"required"`
}

// ToolProperty describes one tool argument
type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Tool names recognized by the dispatcher
const (
	ToolGetTicket    = "get_ticket"
	ToolCreateTicket = "create_ticket"
	ToolEndCall      = "end_call"
)

const agentInstructions = "Your name is Mudasir, you work for Novizant Services. " +
	"You're a helpful, calm and cheerful agent who responds with a clam British accent, " +
	"but also can speak in any language or accent. Always start the conversation with a " +
	"cheery hello, stating your name and who do you work for! You can also call functions " +
	"when requested. Ask if the user has any questions or if they need help with anything " +
	"if not then end the call."

// DefaultSessionConfig returns the voice agent configuration sent on
// session start: whisper transcription, server VAD, the agent persona,
// and the three registered tools.
func DefaultSessionConfig() SessionUpdate {
	return SessionUpdate{
		InputAudioTranscription: &InputAudioTranscription{Model: "whisper-1"},
		TurnDetection: &TurnDetection{
			Type:              "server_vad",
			Threshold:         0.4,
			SilenceDurationMs: 600,
		},
		Instructions: agentInstructions,
		Voice:        "shimmer",
		Modalities:   []string{"text", "audio"},
		ToolChoice:   "auto",
		Tools: []Tool{
			{
				Type:        "function",
				Name:        ToolGetTicket,
				Description: "Get the ticket from the server",
				Parameters: ToolParameters{
					Type: "object",
					Properties: map[string]ToolProperty{
						"ticket_id": {Type: "string", Description: "The id of the ticket to get"},
					},
					Required: []string{"ticket_id"},
				},
			},
			{
				Type:        "function",
				Name:        ToolCreateTicket,
				Description: "Create a new ticket on the server",
				Parameters: ToolParameters{
					Type: "object",
					Properties: map[string]ToolProperty{
						"description": {Type: "string", Description: "The description of the ticket to create"},
					},
					Required: []string{"description"},
				},
			},
			{
				Type:        "function",
				Name:        ToolEndCall,
				Description: "End the current phone call",
				Parameters: ToolParameters{
					Type:       "object",
					Properties: map[string]ToolProperty{},
					Required:   []string{},
				},
			},
		},
	}
}
