// Package gateway wraps the call-control platform client. It answers
// inbound calls with media streaming enabled, consumes lifecycle
// callbacks, and owns the call-session registry used by end-call.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicebridge-backend/internal/acs"
	"voicebridge-backend/internal/domain"
	"voicebridge-backend/internal/registry"
	apperrors "voicebridge-backend/pkg/errors"
	"voicebridge-backend/pkg/logger"
	"voicebridge-backend/pkg/metrics"
)

// CallClient is the subset of the platform client the gateway uses
type CallClient interface {
	AnswerCall(ctx context.Context, req acs.AnswerCallRequest) (*acs.AnswerCallResult, error)
	HangUp(ctx context.Context, callConnectionID string, forEveryone bool) error
}

// Gateway coordinates call control against the external platform
type Gateway struct {
	client       CallClient
	registry     registry.Registry
	callbackHost string
	metrics      *metrics.Metrics
}

// New creates a gateway. callbackHost is the public base URL of this
// service (scheme + host), used to build callback and websocket URLs.
func New(client CallClient, reg registry.Registry, callbackHost string, m *metrics.Metrics) *Gateway {
	return &Gateway{
		client:       client,
		registry:     reg,
		callbackHost: callbackHost,
		metrics:      m,
	}
}

// HandleInboundCall processes a batch of Event Grid events. When the
// batch is a subscription-validation handshake the echo response is
// returned and nothing else is processed. Answer failures are logged,
// not surfaced: the platform will retry ringing on its own schedule.
func (g *Gateway) HandleInboundCall(ctx context.Context, events []acs.EventGridEvent) (*acs.SubscriptionValidationResponse, error) {
	for _, event := range events {
		switch event.EventType {
		case acs.SubscriptionValidationEventType:
			var data acs.SubscriptionValidationData
			if err := json.Unmarshal(event.Data, &data); err != nil {
				return nil, apperrors.ValidationError("malformed subscription validation event")
			}
			logger.Info("validating webhook subscription")
			return &acs.SubscriptionValidationResponse{ValidationResponse: data.ValidationCode}, nil

		case acs.IncomingCallEventType:
			var data acs.IncomingCallData
			if err := json.Unmarshal(event.Data, &data); err != nil {
				logger.Warn("malformed incoming call event", zap.Error(err))
				continue
			}
			g.answerCall(ctx, data)
		}
	}
	return nil, nil
}

func (g *Gateway) answerCall(ctx context.Context, data acs.IncomingCallData) {
	callerID := data.From.CallerID()
	correlationID := uuid.New().String()
	callbackURI := g.buildCallbackURI(correlationID, callerID)

	websocketURL, err := g.websocketURL()
	if err != nil {
		logger.Error("cannot build media streaming URL", zap.Error(err))
		return
	}

	logger.Info("answering inbound call",
		zap.String("caller_id", callerID),
		zap.String("callback_uri", callbackURI),
		zap.String("websocket_url", websocketURL))

	streaming := acs.DefaultMediaStreamingOptions(websocketURL)
	result, err := g.client.AnswerCall(ctx, acs.AnswerCallRequest{
		IncomingCallContext:   data.IncomingCallContext,
		CallbackURI:           callbackURI,
		OperationContext:      "incomingCall",
		MediaStreamingOptions: &streaming,
	})
	if err != nil {
		// No retry: declining to answer just lets the call keep ringing
		logger.Error("platform rejected answer", zap.String("caller_id", callerID), zap.Error(err))
		return
	}

	logger.Info("answered call",
		zap.String("call_connection_id", result.CallConnectionID),
		zap.String("correlation_id", correlationID))
	g.metrics.RecordCallAnswered()

	now := time.Now().UTC()
	if err := g.registry.Put(ctx, domain.CallSession{
		CallConnectionID: result.CallConnectionID,
		CallerID:         callerID,
		CorrelationID:    correlationID,
		State:            domain.CallStateConnecting,
		CreatedAt:        now,
		UpdatedAt:        now,
	}); err != nil {
		logger.Error("failed to register call session", zap.Error(err))
	}
}

func (g *Gateway) buildCallbackURI(correlationID, callerID string) string {
	query := url.Values{}
	query.Set("callerId", callerID)
	return fmt.Sprintf("%s/api/callbacks/%s?%s", g.callbackHost, correlationID, query.Encode())
}

// websocketURL derives the media streaming URL from the callback host
func (g *Gateway) websocketURL() (string, error) {
	u, err := url.Parse(g.callbackHost)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid callback host %q", g.callbackHost)
	}
	ws := url.URL{Scheme: "wss", Host: u.Host, Path: "/ws"}
	return ws.String(), nil
}

// HandleCallback consumes call lifecycle notifications. Failures here
// are logged only; the webhook always acknowledges.
func (g *Gateway) HandleCallback(ctx context.Context, contextID string, events []acs.CallbackEvent) {
	for _, event := range events {
		callID := event.Data.CallConnectionID
		g.metrics.RecordCallbackEvent(event.Type)
		logger.Info("received callback event",
			zap.String("type", event.Type),
			zap.String("context_id", contextID),
			zap.String("call_connection_id", callID),
			zap.String("correlation_id", event.Data.CorrelationID))

		switch event.Type {
		case acs.CallConnectedEventType:
			g.updateState(ctx, event.Data, domain.CallStateConnected)
			if err := g.registry.SetActive(ctx, callID); err != nil {
				logger.Error("failed to set active call", zap.Error(err))
			}
			g.metrics.CallConnected()

		case acs.CallDisconnectedEventType:
			if err := g.registry.Remove(ctx, callID); err != nil {
				logger.Error("failed to remove call session", zap.Error(err))
			}
			g.metrics.CallDisconnected()

		case acs.MediaStreamingStartedEventType:
			g.logStreamingUpdate(event)
			g.updateState(ctx, event.Data, domain.CallStateStreaming)

		case acs.MediaStreamingStoppedEventType:
			g.logStreamingUpdate(event)
			g.updateState(ctx, event.Data, domain.CallStateConnected)

		case acs.MediaStreamingFailedEventType:
			// Logged only; the call itself continues without streaming
			if ri := event.Data.ResultInformation; ri != nil {
				logger.Warn("media streaming failed",
					zap.String("call_connection_id", callID),
					zap.Int("code", ri.Code),
					zap.Int("sub_code", ri.SubCode),
					zap.String("message", ri.Message))
			}
		}
	}
}

func (g *Gateway) logStreamingUpdate(event acs.CallbackEvent) {
	if u := event.Data.MediaStreamingUpdate; u != nil {
		logger.Info("media streaming update",
			zap.String("call_connection_id", event.Data.CallConnectionID),
			zap.String("content_type", u.ContentType),
			zap.String("status", u.MediaStreamingStatus),
			zap.String("status_details", u.MediaStreamingStatusDetail))
	}
}

func (g *Gateway) updateState(ctx context.Context, data acs.CallbackData, state domain.CallState) {
	session, err := g.registry.Get(ctx, data.CallConnectionID)
	if err == registry.ErrNotFound {
		// Callback for a call this worker never answered; track it anyway
		session = domain.CallSession{
			CallConnectionID: data.CallConnectionID,
			CorrelationID:    data.CorrelationID,
			CreatedAt:        time.Now().UTC(),
		}
	} else if err != nil {
		logger.Error("failed to load call session", zap.Error(err))
		return
	}

	session.State = state
	session.UpdatedAt = time.Now().UTC()
	if err := g.registry.Put(ctx, session); err != nil {
		logger.Error("failed to update call session", zap.Error(err))
	}
}

// EndActiveCall hangs up the tracked active call for all participants.
// It cannot distinguish "already ended" from "never started": both
// surface as a no-active-call failure.
func (g *Gateway) EndActiveCall(ctx context.Context) error {
	callID, err := g.registry.Active(ctx)
	if err != nil {
		return apperrors.RegistryError(err)
	}
	if callID == "" {
		return apperrors.CallNotActiveError()
	}

	if err := g.client.HangUp(ctx, callID, true); err != nil {
		g.metrics.RecordEndCallFailure()
		logger.Error("failed to hang up call", zap.String("call_connection_id", callID), zap.Error(err))
		return apperrors.EndCallFailedError(err)
	}

	if err := g.registry.ClearActive(ctx); err != nil {
		logger.Error("failed to clear active call", zap.Error(err))
	}
	if err := g.registry.Remove(ctx, callID); err != nil {
		logger.Error("failed to remove call session", zap.Error(err))
	}

	logger.Info("ended active call", zap.String("call_connection_id", callID))
	return nil
}
