package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// Config holds the model endpoint configuration
type Config struct {
	Endpoint   string // https://<resource>.openai.azure.com
	APIVersion string
	APIKey     string
	Deployment string
}

// WebsocketURL builds the realtime session URL from the HTTP endpoint
func (c Config) WebsocketURL() (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("realtime: invalid endpoint %q", c.Endpoint)
	}
	q := url.Values{}
	q.Set("api-version", c.APIVersion)
	q.Set("deployment", c.Deployment)
	ws := url.URL{Scheme: "wss", Host: u.Host, Path: "/openai/realtime", RawQuery: q.Encode()}
	return ws.String(), nil
}

// Conn is one realtime session with the speech model. Reads happen on a
// single goroutine; writes are serialized by a mutex because control
// frames originate from both the model event loop and the media loop.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// Dial opens a realtime session websocket
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	wsURL, err := cfg.WebsocketURL()
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set("api-key", cfg.APIKey)

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("realtime: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime: dial failed: %w", err)
	}

	return &Conn{ws: ws}, nil
}

// ConversationItem is the item payload of conversation.item.create.
// It covers both user messages and function call outputs.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []ItemContent `json:"content,omitempty"`
	CallID  string        `json:"call_id,omitempty"`
	Output  string        `json:"output,omitempty"`
}

// ItemContent is one content part of a conversation item
type ItemContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewUserMessageItem builds a plain text user message item
func NewUserMessageItem(text string) ConversationItem {
	return ConversationItem{
		Type:    "message",
		Role:    "user",
		Content: []ItemContent{{Type: "input_text", Text: text}},
	}
}

// NewFunctionCallOutputItem wraps a tool result keyed by its call id
func NewFunctionCallOutputItem(callID, output string) ConversationItem {
	return ConversationItem{
		Type:   "function_call_output",
		CallID: callID,
		Output: output,
	}
}

type sessionUpdateEvent struct {
	Type    string        `json:"type"`
	Session SessionUpdate `json:"session"`
}

type conversationItemCreateEvent struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

type inputAudioBufferAppendEvent struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type responseCreateEvent struct {
	Type string `json:"type"`
}

// UpdateSession sends the session configuration
func (c *Conn) UpdateSession(session SessionUpdate) error {
	return c.writeJSON(sessionUpdateEvent{Type: "session.update", Session: session})
}

// CreateConversationItem injects an item into the conversation
func (c *Conn) CreateConversationItem(item ConversationItem) error {
	return c.writeJSON(conversationItemCreateEvent{Type: "conversation.item.create", Item: item})
}

// AppendInputAudio appends base64 caller audio to the input buffer
func (c *Conn) AppendInputAudio(audio string) error {
	return c.writeJSON(inputAudioBufferAppendEvent{Type: "input_audio_buffer.append", Audio: audio})
}

// CreateResponse asks the model to produce a new response
func (c *Conn) CreateResponse() error {
	return c.writeJSON(responseCreateEvent{Type: "response.create"})
}

// ReadEvent blocks for the next server event. Unknown event kinds are
// returned as UnknownEvent, never as an error.
func (c *Conn) ReadEvent() (ServerEvent, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return ParseServerEvent(raw)
}

// Close releases the model session. Safe to call from any goroutine and
// more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

func (c *Conn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}
