package acs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

const apiVersion = "2024-04-15"

// Client is a minimal Call Automation REST client. It covers the two
// control operations the bridge needs: answering an inbound call with
// bidirectional media streaming, and hanging up.
type Client struct {
	endpoint   string
	accessKey  []byte
	httpClient *http.Client
	now        func() time.Time
}

// MediaStreamingOptions configures the audio streaming websocket the
// platform opens back to this service when a call is answered.
type MediaStreamingOptions struct {
	TransportURL        string `json:"transportUrl"`
	TransportType       string `json:"transportType"`
	ContentType         string `json:"contentType"`
	AudioChannelType    string `json:"audioChannelType"`
	StartMediaStreaming bool   `json:"startMediaStreaming"`
	EnableBidirectional bool   `json:"enableBidirectional"`
	AudioFormat         string `json:"audioFormat"`
}

// DefaultMediaStreamingOptions returns bidirectional mixed-channel
// PCM 24 kHz mono streaming over the given websocket URL.
func DefaultMediaStreamingOptions(transportURL string) MediaStreamingOptions {
	return MediaStreamingOptions{
		TransportURL:        transportURL,
		TransportType:       "websocket",
		ContentType:         "audio",
		AudioChannelType:    "mixed",
		StartMediaStreaming: true,
		EnableBidirectional: true,
		AudioFormat:         "Pcm24KMono",
	}
}

// AnswerCallRequest is the answer operation payload
type AnswerCallRequest struct {
	IncomingCallContext   string                 `json:"incomingCallContext"`
	CallbackURI           string                 `json:"callbackUri"`
	OperationContext      string                 `json:"operationContext,omitempty"`
	MediaStreamingOptions *MediaStreamingOptions `json:"mediaStreamingOptions,omitempty"`
}

// AnswerCallResult holds the call connection properties returned by the
// answer operation.
type AnswerCallResult struct {
	CallConnectionID string `json:"callConnectionId"`
	CorrelationID    string `json:"correlationId"`
	CallbackURI      string `json:"callbackUri"`
}

// NewClient creates a client from a parsed connection string
func NewClient(conn *ConnectionString) *Client {
	return &Client{
		endpoint:   conn.Endpoint,
		accessKey:  conn.AccessKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		now:        time.Now,
	}
}

// NewClientFromConnectionString parses raw and creates a client
func NewClientFromConnectionString(raw string) (*Client, error) {
	conn, err := ParseConnectionString(raw)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// AnswerCall answers an inbound call identified by its incoming call
// context token.
func (c *Client) AnswerCall(ctx context.Context, req AnswerCallRequest) (*AnswerCallResult, error) {
	u := fmt.Sprintf("%s/calling/callConnections:answer?api-version=%s", c.endpoint, apiVersion)

	var result AnswerCallResult
	if err := c.do(ctx, http.MethodPost, u, req, &result); err != nil {
		return nil, fmt.Errorf("answer call: %w", err)
	}
	return &result, nil
}

// HangUp ends a call. With forEveryone the call is terminated for all
// participants; otherwise only this leg is dropped.
func (c *Client) HangUp(ctx context.Context, callConnectionID string, forEveryone bool) error {
	escaped := url.PathEscape(callConnectionID)
	if forEveryone {
		u := fmt.Sprintf("%s/calling/callConnections/%s:terminate?api-version=%s", c.endpoint, escaped, apiVersion)
		if err := c.do(ctx, http.MethodPost, u, nil, nil); err != nil {
			return fmt.Errorf("terminate call %s: %w", callConnectionID, err)
		}
		return nil
	}

	u := fmt.Sprintf("%s/calling/callConnections/%s?api-version=%s", c.endpoint, escaped, apiVersion)
	if err := c.do(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return fmt.Errorf("hang up call %s: %w", callConnectionID, err)
	}
	return nil
}

// do executes a signed JSON request and decodes the response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, rawURL string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// The platform deduplicates retried control operations on these headers
	req.Header.Set("Repeatability-Request-ID", uuid.New().String())
	req.Header.Set("Repeatability-First-Sent", c.now().UTC().Format(http.TimeFormat))
	signRequest(req, body, c.accessKey, c.now())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// APIError is a non-2xx response from the call-control platform
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("acs: platform returned %d: %s", e.StatusCode, e.Body)
}
