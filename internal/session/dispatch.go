package session

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"voicebridge-backend/internal/realtime"
	"voicebridge-backend/pkg/logger"
)

// ErrAlreadyStarted is returned by Start on a handler that already ran
var ErrAlreadyStarted = errors.New("session: already started")

// toolArguments covers the argument shapes of every registered tool.
// Arguments arrive as a JSON-encoded string; a decode failure yields the
// zero value rather than aborting the invocation.
type toolArguments struct {
	TicketID    string `json:"ticket_id"`
	Description string `json:"description"`
}

func parseToolArguments(raw string) toolArguments {
	var args toolArguments
	if raw == "" {
		return args
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		logger.Warn("failed to parse tool arguments", zap.String("arguments", raw), zap.Error(err))
		return toolArguments{}
	}
	return args
}

// handleFunctionCall dispatches a completed tool invocation by name and
// submits the text result back to the model keyed by the call id.
func (h *Handler) handleFunctionCall(ctx context.Context, ev *realtime.FunctionCallArgumentsDoneEvent) {
	logger.Info("function call received",
		zap.String("name", ev.Name),
		zap.String("call_id", ev.CallID))
	h.metrics.RecordToolCall(ev.Name)

	args := parseToolArguments(ev.Arguments)

	var result string
	var err error
	switch ev.Name {
	case realtime.ToolGetTicket:
		result, err = h.tools.GetTicket(ctx, args.TicketID)
	case realtime.ToolCreateTicket:
		result, err = h.tools.CreateTicket(ctx, args.Description)
	case realtime.ToolEndCall:
		result, err = h.tools.EndCall(ctx)
	default:
		// The model hallucinated a tool name; tell it so and move on
		result = "Unknown function: " + ev.Name
	}

	if err != nil {
		logger.Error("tool call failed",
			zap.String("name", ev.Name),
			zap.String("call_id", ev.CallID),
			zap.Error(err))
		return
	}

	h.sendFunctionCallResult(ev.CallID, result)
}

func (h *Handler) sendFunctionCallResult(callID, result string) {
	if err := h.model.CreateConversationItem(realtime.NewFunctionCallOutputItem(callID, result)); err != nil {
		logger.Warn("failed to send function call result", zap.String("call_id", callID), zap.Error(err))
		return
	}
	if err := h.model.CreateResponse(); err != nil {
		logger.Warn("failed to request response after tool call", zap.String("call_id", callID), zap.Error(err))
		return
	}
	logger.Debug("sent function call result", zap.String("call_id", callID), zap.String("result", result))
}
