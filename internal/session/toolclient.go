package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"voicebridge-backend/pkg/logger"
)

// HTTPToolInvoker executes tool calls over plain HTTP against this
// service's own API, the same way the speech model's collaborators are
// reachable from anywhere else.
type HTTPToolInvoker struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPToolInvoker creates an invoker rooted at the service base URL
func NewHTTPToolInvoker(baseURL string) *HTTPToolInvoker {
	return &HTTPToolInvoker{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetTicket fetches a ticket and returns the response body as the tool
// result text, whatever its status.
func (t *HTTPToolInvoker) GetTicket(ctx context.Context, ticketID string) (string, error) {
	u := fmt.Sprintf("%s/api/ticket/%s", t.baseURL, url.PathEscape(ticketID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	return t.doText(req)
}

// CreateTicket creates a ticket and returns the response body
func (t *HTTPToolInvoker) CreateTicket(ctx context.Context, description string) (string, error) {
	payload, err := json.Marshal(map[string]string{"description": description})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/ticket", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.doText(req)
}

// EndCall asks the service to hang up the active call. Failures fold
// into the result text so the model can tell the caller.
func (t *HTTPToolInvoker) EndCall(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/endCall", nil)
	if err != nil {
		return "Failed to end call due to an error.", nil
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.Error("end call request failed", zap.Error(err))
		return "Failed to end call due to an error.", nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK {
		return "Call ended successfully. Thank you for calling!", nil
	}
	return "Failed to end call. Please try again.", nil
}

func (t *HTTPToolInvoker) doText(req *http.Request) (string, error) {
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
